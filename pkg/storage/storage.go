// Package storage resolves output locations to writers. A location is a
// local path, a file:// URL, an s3://bucket/key URL or a gs://bucket/object URL.
package storage

import (
	"context"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	gcs "cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ajitpratap0/spotify-dataset/pkg/errors"
)

// Scheme identifies where a location lives
type Scheme string

const (
	// SchemeFile is the local filesystem
	SchemeFile Scheme = "file"
	// SchemeS3 is Amazon S3
	SchemeS3 Scheme = "s3"
	// SchemeGCS is Google Cloud Storage
	SchemeGCS Scheme = "gs"
)

// Location is a parsed output location
type Location struct {
	Scheme Scheme
	Bucket string
	// Path is the local path for SchemeFile and the object key otherwise
	Path string
}

// ParseLocation parses a path or URL
func ParseLocation(raw string) (Location, error) {
	if raw == "" {
		return Location{}, errors.New(errors.ErrorTypeValidation, "empty location")
	}

	if !strings.Contains(raw, "://") {
		return Location{Scheme: SchemeFile, Path: filepath.Clean(raw)}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, errors.Wrap(err, errors.ErrorTypeValidation, "invalid location").WithDetail("location", raw)
	}

	switch Scheme(u.Scheme) {
	case SchemeFile:
		return Location{Scheme: SchemeFile, Path: filepath.Clean(u.Path)}, nil
	case SchemeS3, SchemeGCS:
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return Location{}, errors.Newf(errors.ErrorTypeValidation, "location %q needs a bucket and a key", raw)
		}
		return Location{Scheme: Scheme(u.Scheme), Bucket: u.Host, Path: key}, nil
	default:
		return Location{}, errors.Newf(errors.ErrorTypeValidation, "unsupported location scheme %q", u.Scheme)
	}
}

// String renders the location back to the form ParseLocation accepts
func (l Location) String() string {
	if l.Scheme == SchemeFile {
		return l.Path
	}
	return string(l.Scheme) + "://" + l.Bucket + "/" + l.Path
}

// IsLocal reports whether the location is on the local filesystem
func (l Location) IsLocal() bool {
	return l.Scheme == SchemeFile
}

// Ext returns the extension of the final path element
func (l Location) Ext() string {
	return path.Ext(filepath.ToSlash(l.Path))
}

// WithExt returns the location with its extension replaced by ext
func (l Location) WithExt(ext string) Location {
	out := l
	out.Path = strings.TrimSuffix(l.Path, l.Ext()) + ext
	return out
}

// Create opens a writer for loc. Local parent directories are created.
// The object only becomes visible remotely once Close returns nil.
func Create(ctx context.Context, loc Location) (io.WriteCloser, error) {
	switch loc.Scheme {
	case SchemeFile:
		return createLocal(loc.Path)
	case SchemeS3:
		return createS3(ctx, loc)
	case SchemeGCS:
		return createGCS(ctx, loc)
	default:
		return nil, errors.Newf(errors.ErrorTypeValidation, "unsupported location scheme %q", loc.Scheme)
	}
}

// EnsureDir creates dir and its parents. Existing directories are fine.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create directory").WithDetail("dir", dir)
	}
	return nil
}

func createLocal(p string) (io.WriteCloser, error) {
	if err := EnsureDir(filepath.Dir(p)); err != nil {
		return nil, err
	}
	file, err := os.Create(p) //nolint:gosec // output path is chosen by the caller
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create file").WithDetail("path", p)
	}
	return file, nil
}

// uploader is the part of manager.Uploader the S3 writer uses
type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// s3Writer streams into a multipart upload through a pipe
type s3Writer struct {
	pw   *io.PipeWriter
	done chan error
}

func createS3(ctx context.Context, loc Location) (io.WriteCloser, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to load AWS configuration")
	}
	return newS3Writer(ctx, manager.NewUploader(s3.NewFromConfig(cfg)), loc), nil
}

func newS3Writer(ctx context.Context, up uploader, loc Location) *s3Writer {
	pr, pw := io.Pipe()
	w := &s3Writer{pw: pw, done: make(chan error, 1)}

	go func() {
		_, err := up.Upload(ctx, &s3.PutObjectInput{
			Bucket: aws.String(loc.Bucket),
			Key:    aws.String(loc.Path),
			Body:   pr,
		})
		_ = pr.CloseWithError(err)
		w.done <- err
	}()

	return w
}

func (w *s3Writer) Write(p []byte) (int, error) {
	return w.pw.Write(p)
}

func (w *s3Writer) Close() error {
	_ = w.pw.Close()
	if err := <-w.done; err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to upload to S3")
	}
	return nil
}

// CloseWithError aborts the upload so no partial object is created
func (w *s3Writer) CloseWithError(cause error) error {
	_ = w.pw.CloseWithError(cause)
	<-w.done
	return nil
}

// gcsWriter closes the client together with the object writer
type gcsWriter struct {
	*gcs.Writer
	client *gcs.Client
	cancel context.CancelFunc
}

func createGCS(ctx context.Context, loc Location) (io.WriteCloser, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create GCS client")
	}
	ctx, cancel := context.WithCancel(ctx)
	return &gcsWriter{
		Writer: client.Bucket(loc.Bucket).Object(loc.Path).NewWriter(ctx),
		client: client,
		cancel: cancel,
	}, nil
}

func (w *gcsWriter) Close() error {
	err := w.Writer.Close()
	w.cancel()
	_ = w.client.Close()
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to upload to GCS")
	}
	return nil
}

// CloseWithError cancels the upload so no partial object is created
func (w *gcsWriter) CloseWithError(error) error {
	w.cancel()
	_ = w.Writer.Close()
	_ = w.client.Close()
	return nil
}
