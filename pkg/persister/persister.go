// Package persister writes frames to CSV or Parquet. Parquet support is
// looked up in the columnar capability registry before anything is written;
// when the build carries no Parquet codec the frame is written as CSV instead.
package persister

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/spotify-dataset/pkg/errors"
	"github.com/ajitpratap0/spotify-dataset/pkg/formats/columnar"
	"github.com/ajitpratap0/spotify-dataset/pkg/frame"
	"github.com/ajitpratap0/spotify-dataset/pkg/metrics"
	"github.com/ajitpratap0/spotify-dataset/pkg/storage"
)

// Format is an output format
type Format string

const (
	// FormatCSV is comma separated text with a header row
	FormatCSV Format = "csv"
	// FormatParquet is Apache Parquet
	FormatParquet Format = "parquet"
)

// BaseName is the default output file name without extension
const BaseName = "spotify_dataset"

// ParseFormat accepts csv and parquet in any case
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatParquet:
		return FormatParquet, nil
	default:
		return "", errors.Newf(errors.ErrorTypeValidation, "unsupported format %q, expected csv or parquet", s)
	}
}

// Ext is the file extension of the format
func (f Format) Ext() string {
	return "." + string(f)
}

// Persister saves and reloads frames
type Persister struct {
	logger       *zap.Logger
	capabilities columnar.Capabilities
	writerConfig *columnar.WriterConfig
	projectRoot  string
}

// Option configures a Persister
type Option func(*Persister)

// WithCapabilities replaces the columnar registry consulted before writing
func WithCapabilities(c columnar.Capabilities) Option {
	return func(p *Persister) {
		p.capabilities = c
	}
}

// WithWriterConfig sets the columnar writer options
func WithWriterConfig(cfg *columnar.WriterConfig) Option {
	return func(p *Persister) {
		if cfg != nil {
			p.writerConfig = cfg
		}
	}
}

// WithProjectRoot sets the root that an empty output path resolves against
func WithProjectRoot(root string) Option {
	return func(p *Persister) {
		p.projectRoot = root
	}
}

// New creates a Persister backed by the default columnar registry
func New(logger *zap.Logger, opts ...Option) *Persister {
	p := &Persister{
		logger:       logger.With(zap.String("component", "persister")),
		capabilities: columnar.Default,
		writerConfig: columnar.DefaultWriterConfig(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// DefaultOutputPath is <project root>/data/spotify_dataset.<format>
func (p *Persister) DefaultOutputPath(format Format) string {
	root := p.projectRoot
	if root == "" {
		if wd, err := os.Getwd(); err == nil {
			root = wd
		}
	}
	return filepath.Join(root, "data", BaseName+format.Ext())
}

// Save writes f to outputPath and returns the path actually written, which
// differs from outputPath when Parquet was requested but is unavailable.
func (p *Persister) Save(ctx context.Context, f *frame.Frame, outputPath string, format Format) (string, error) {
	format, err := ParseFormat(string(format))
	if err != nil {
		return "", err
	}
	if f == nil {
		return "", errors.New(errors.ErrorTypeValidation, "nothing to save")
	}
	if outputPath == "" {
		outputPath = p.DefaultOutputPath(format)
	}

	loc, err := storage.ParseLocation(outputPath)
	if err != nil {
		return "", err
	}

	if format == FormatParquet && !p.capabilities.Supports(columnar.Parquet) {
		p.logger.Warn("parquet support is not available, saving as CSV instead",
			zap.String("requested_path", loc.String()))
		metrics.FormatFallbacks.WithLabelValues(string(FormatParquet)).Inc()
		format = FormatCSV
		if strings.EqualFold(loc.Ext(), FormatParquet.Ext()) {
			loc = loc.WithExt(FormatCSV.Ext())
		}
	}

	log := p.logger.With(zap.String("path", loc.String()), zap.String("format", string(format)))
	log.Info("saving dataset")

	if err := p.write(ctx, loc, f, format); err != nil {
		log.Error("failed to save dataset", zap.Error(err))
		return "", err
	}

	log.Info("dataset saved", zap.Int("rows", f.NumRows()))
	return loc.String(), nil
}

func (p *Persister) write(ctx context.Context, loc storage.Location, f *frame.Frame, format Format) error {
	var encode func(w *bufio.Writer) error

	switch format {
	case FormatParquet:
		codec, err := p.capabilities.Lookup(columnar.Parquet)
		if err != nil {
			return err
		}
		encode = func(w *bufio.Writer) error { return codec.Write(w, f, p.writerConfig) }
	default:
		encode = func(w *bufio.Writer) error { return frame.WriteCSV(w, f) }
	}

	out, err := storage.Create(ctx, loc)
	if err != nil {
		return err
	}

	w := bufio.NewWriterSize(out, 1<<20)
	err = encode(w)
	if err == nil {
		err = w.Flush()
	}
	if aborter, ok := out.(interface{ CloseWithError(error) error }); ok && err != nil {
		_ = aborter.CloseWithError(err)
	} else if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		if errors.IsType(err, errors.ErrorTypeFile) || errors.IsType(err, errors.ErrorTypeConnection) {
			return err
		}
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write dataset").WithDetail("path", loc.String())
	}
	return nil
}

// Load reads a local CSV or Parquet file, choosing the reader by extension.
// Remote locations are rejected.
func (p *Persister) Load(_ context.Context, path string) (*frame.Frame, error) {
	loc, err := storage.ParseLocation(path)
	if err != nil {
		return nil, err
	}
	if !loc.IsLocal() {
		return nil, errors.Newf(errors.ErrorTypeValidation, "cannot load %s, only local files can be read", loc).
			WithDetail("location", loc.String())
	}
	path = loc.Path

	switch strings.ToLower(filepath.Ext(path)) {
	case FormatParquet.Ext():
		codec, err := p.capabilities.Lookup(columnar.Parquet)
		if err != nil {
			return nil, err
		}
		if codec.Read == nil {
			return nil, errors.Newf(errors.ErrorTypeCapability, "format %s cannot be read in this build", columnar.Parquet)
		}

		file, err := os.Open(path) //nolint:gosec // path is chosen by the caller
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open dataset").WithDetail("path", path)
		}
		defer file.Close()

		f, err := codec.Read(file)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read parquet dataset").WithDetail("path", path)
		}
		return f, nil
	default:
		return frame.ReadCSVFile(path)
	}
}
