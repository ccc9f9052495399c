// Package kaggle is a minimal client for the Kaggle dataset registry. It
// resolves a dataset handle to a version, downloads the version archive once
// and serves later requests from a local cache laid out like kagglehub's:
//
//	<cache>/datasets/<owner>/<slug>/versions/<N>/
package kaggle

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/net/http2"

	"github.com/ajitpratap0/spotify-dataset/pkg/errors"
	"github.com/ajitpratap0/spotify-dataset/pkg/metrics"
)

const (
	userAgent = "spotify-dataset/1.0"
	// completeMarker is written last, so a cache dir without it is partial
	completeMarker = ".complete"
)

// Client downloads datasets from the registry into the cache
type Client struct {
	config     *Config
	logger     *zap.Logger
	httpClient *http.Client
}

// NewClient creates a registry client. A nil config means DefaultConfig.
func NewClient(config *Config, logger *zap.Logger) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.CacheDir == "" {
		config.CacheDir = DefaultCacheDir()
	}

	logger = logger.With(zap.String("component", "kaggle_client"))

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   config.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: config.Timeout,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}

	if config.HTTP2 {
		if err := http2.ConfigureTransport(transport); err != nil {
			logger.Warn("failed to configure HTTP/2", zap.Error(err))
		}
	}

	return &Client{
		config: config,
		logger: logger,
		httpClient: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
	}
}

// CachePath returns the cache directory of a pinned handle
func (c *Client) CachePath(h Handle) string {
	return filepath.Join(c.config.CacheDir, "datasets", h.Owner, h.Slug, "versions", strconv.Itoa(h.Version))
}

// Download returns a local directory holding the files of the dataset
// named by handle, downloading and extracting the archive on a cache miss.
func (c *Client) Download(ctx context.Context, handle string) (string, error) {
	h, err := ParseHandle(handle)
	if err != nil {
		return "", err
	}

	if h.Version == 0 {
		version, err := c.ResolveVersion(ctx, h)
		if err != nil {
			return "", err
		}
		h.Version = version
	}

	log := c.logger.With(zap.String("dataset", h.String()))
	dir := c.CachePath(h)

	if _, err := os.Stat(filepath.Join(dir, completeMarker)); err == nil {
		metrics.CacheHits.Inc()
		log.Info("using cached dataset", zap.String("path", dir))
		return dir, nil
	}

	log.Info("downloading dataset", zap.String("path", dir))
	if err := c.fetchVersion(ctx, h, dir); err != nil {
		return "", err
	}
	return dir, nil
}

type datasetView struct {
	Ref                  string `json:"ref"`
	CurrentVersionNumber int    `json:"currentVersionNumber"`
}

// ResolveVersion asks the registry for the current version of h
func (c *Client) ResolveVersion(ctx context.Context, h Handle) (int, error) {
	endpoint := fmt.Sprintf("%s/datasets/view/%s/%s", c.config.BaseURL, url.PathEscape(h.Owner), url.PathEscape(h.Slug))

	resp, err := c.get(ctx, endpoint)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var view datasetView
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeData, "failed to decode dataset metadata").
			WithDetail("dataset", h.String())
	}
	if view.CurrentVersionNumber <= 0 {
		return 0, errors.Newf(errors.ErrorTypeNotFound, "dataset %s has no published version", h)
	}
	return view.CurrentVersionNumber, nil
}

func (c *Client) fetchVersion(ctx context.Context, h Handle, dir string) error {
	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create cache directory").WithDetail("dir", parent)
	}

	endpoint := fmt.Sprintf("%s/datasets/download/%s/%s?datasetVersionNumber=%d",
		c.config.BaseURL, url.PathEscape(h.Owner), url.PathEscape(h.Slug), h.Version)

	resp, err := c.get(ctx, endpoint)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	archive, err := os.CreateTemp(parent, ".download-*")
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create download file")
	}
	defer os.Remove(archive.Name())

	n, err := io.Copy(archive, resp.Body)
	metrics.BytesDownloaded.Add(float64(n))
	if closeErr := archive.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to download dataset archive").
			WithDetail("dataset", h.String())
	}
	c.logger.Debug("archive downloaded", zap.String("dataset", h.String()), zap.Int64("bytes", n))

	staging, err := os.MkdirTemp(parent, ".staging-*")
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create staging directory")
	}
	defer os.RemoveAll(staging)

	zipped, err := isZip(archive.Name())
	if err != nil {
		return err
	}
	if zipped {
		if err := extractZip(archive.Name(), staging); err != nil {
			return err
		}
	} else {
		name := attachmentName(resp.Header.Get("Content-Disposition"), h.Slug)
		if err := os.Rename(archive.Name(), filepath.Join(staging, name)); err != nil {
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to move downloaded file")
		}
	}

	if err := os.WriteFile(filepath.Join(staging, completeMarker), nil, 0o600); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to mark cache entry complete")
	}

	// A partial entry from an interrupted run is replaced
	if err := os.RemoveAll(dir); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to clear cache entry").WithDetail("dir", dir)
	}
	if err := os.Rename(staging, dir); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to publish cache entry").WithDetail("dir", dir)
	}
	return nil
}

func (c *Client) get(ctx context.Context, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeValidation, "failed to build registry request")
	}
	req.Header.Set("User-Agent", userAgent)
	if c.config.HasCredentials() {
		req.SetBasicAuth(c.config.Username, c.config.Key)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "registry request failed").WithDetail("url", endpoint)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, statusError(resp.StatusCode, endpoint, string(body))
	}
	return resp, nil
}

func statusError(status int, endpoint, body string) error {
	errType := errors.ErrorTypeConnection
	switch status {
	case http.StatusNotFound:
		errType = errors.ErrorTypeNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		errType = errors.ErrorTypeAuthentication
	}
	return errors.Newf(errType, "registry returned %d %s", status, http.StatusText(status)).
		WithDetail("url", endpoint).
		WithDetail("body", body)
}

// attachmentName takes the file name from a Content-Disposition header
func attachmentName(header, fallback string) string {
	if header != "" {
		if _, params, err := mime.ParseMediaType(header); err == nil {
			if name := filepath.Base(params["filename"]); name != "" && name != "." && name != string(filepath.Separator) {
				return name
			}
		}
	}
	return fallback
}
