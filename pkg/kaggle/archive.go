package kaggle

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/ajitpratap0/spotify-dataset/pkg/errors"
)

var zipMagic = []byte("PK\x03\x04")

func isZip(path string) (bool, error) {
	f, err := os.Open(path) //nolint:gosec // temp file created by the client
	if err != nil {
		return false, errors.Wrap(err, errors.ErrorTypeFile, "failed to open downloaded file")
	}
	defer f.Close()

	head := make([]byte, len(zipMagic))
	n, err := io.ReadFull(f, head)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, errors.ErrorTypeFile, "failed to read downloaded file")
	}
	return bytes.Equal(head[:n], zipMagic), nil
}

// extractZip unpacks archive into dest. Entries resolving outside dest are rejected.
func extractZip(archive, dest string) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to open dataset archive")
	}
	defer r.Close()

	root := filepath.Clean(dest) + string(os.PathSeparator)

	for _, entry := range r.File {
		target := filepath.Join(dest, entry.Name)
		if !strings.HasPrefix(target, root) {
			return errors.Newf(errors.ErrorTypeData, "archive entry %q escapes the extraction directory", entry.Name)
		}

		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return errors.Wrap(err, errors.ErrorTypeFile, "failed to create directory").WithDetail("dir", target)
			}
			continue
		}

		if err := extractEntry(entry, target); err != nil {
			return err
		}
	}
	return nil
}

func extractEntry(entry *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create directory").WithDetail("dir", filepath.Dir(target))
	}

	src, err := entry.Open()
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to open archive entry").WithDetail("entry", entry.Name)
	}
	defer src.Close()

	dst, err := os.Create(target) //nolint:gosec // target is checked against the extraction root
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create file").WithDetail("path", target)
	}

	_, err = io.Copy(dst, src) //nolint:gosec // archive comes from the registry the user asked for
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to extract archive entry").WithDetail("entry", entry.Name)
	}

	if mod := entry.Modified; !mod.IsZero() {
		_ = os.Chtimes(target, mod, mod)
	}
	return nil
}
