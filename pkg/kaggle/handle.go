package kaggle

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ajitpratap0/spotify-dataset/pkg/errors"
)

// Handle identifies a dataset as owner/slug, optionally pinned to a version
type Handle struct {
	Owner   string
	Slug    string
	Version int
}

// ParseHandle accepts "owner/slug" and "owner/slug/versions/N"
func ParseHandle(s string) (Handle, error) {
	parts := strings.Split(strings.Trim(s, "/"), "/")

	invalid := func() (Handle, error) {
		return Handle{}, errors.Newf(errors.ErrorTypeValidation,
			"invalid dataset handle %q, expected owner/slug or owner/slug/versions/N", s)
	}

	switch len(parts) {
	case 2:
	case 4:
		if parts[2] != "versions" {
			return invalid()
		}
	default:
		return invalid()
	}

	h := Handle{Owner: parts[0], Slug: parts[1]}
	if h.Owner == "" || h.Slug == "" {
		return invalid()
	}

	if len(parts) == 4 {
		v, err := strconv.Atoi(parts[3])
		if err != nil || v <= 0 {
			return invalid()
		}
		h.Version = v
	}
	return h, nil
}

// String renders the handle the way ParseHandle accepts it
func (h Handle) String() string {
	if h.Version > 0 {
		return fmt.Sprintf("%s/%s/versions/%d", h.Owner, h.Slug, h.Version)
	}
	return h.Owner + "/" + h.Slug
}
