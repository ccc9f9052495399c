// Package fetcher obtains the Spotify dataset from the registry, loads its
// CSV into a frame and keeps an untouched copy of the raw file next to the
// processed outputs.
package fetcher

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/ajitpratap0/spotify-dataset/pkg/errors"
	"github.com/ajitpratap0/spotify-dataset/pkg/frame"
	"github.com/ajitpratap0/spotify-dataset/pkg/metrics"
	"github.com/ajitpratap0/spotify-dataset/pkg/storage"
)

const (
	// DefaultDataset is the registry handle of the 900k Spotify tracks dataset
	DefaultDataset = "devdope/900k-spotify"
	// OriginalFileName is the name of the raw copy inside the output directory
	OriginalFileName = "spotify_dataset_original.csv"
	// DataDirName is the output directory under the project root
	DataDirName = "data"
)

// Downloader makes a dataset available locally and returns its directory
type Downloader interface {
	Download(ctx context.Context, handle string) (string, error)
}

// Result is what a fetch produced
type Result struct {
	Frame        *frame.Frame
	SourcePath   string
	OriginalPath string
}

// Fetcher downloads the dataset and loads it
type Fetcher struct {
	downloader  Downloader
	logger      *zap.Logger
	dataset     string
	file        string
	projectRoot string
}

// Option configures a Fetcher
type Option func(*Fetcher)

// WithDataset overrides the registry handle
func WithDataset(handle string) Option {
	return func(f *Fetcher) {
		if handle != "" {
			f.dataset = handle
		}
	}
}

// WithFile selects a file inside the downloaded dataset instead of the first CSV
func WithFile(name string) Option {
	return func(f *Fetcher) {
		f.file = name
	}
}

// WithProjectRoot sets the root that an empty output directory resolves against
func WithProjectRoot(root string) Option {
	return func(f *Fetcher) {
		f.projectRoot = root
	}
}

// New creates a Fetcher
func New(downloader Downloader, logger *zap.Logger, opts ...Option) *Fetcher {
	f := &Fetcher{
		downloader: downloader,
		logger:     logger.With(zap.String("component", "fetcher")),
		dataset:    DefaultDataset,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// DefaultOutputDir is <project root>/data
func (f *Fetcher) DefaultOutputDir() string {
	root := f.projectRoot
	if root == "" {
		if wd, err := os.Getwd(); err == nil {
			root = wd
		}
	}
	return filepath.Join(root, DataDirName)
}

// Fetch downloads the dataset, loads its CSV and copies the raw file to
// outputDir. An empty outputDir means DefaultOutputDir.
func (f *Fetcher) Fetch(ctx context.Context, outputDir string) (*Result, error) {
	if outputDir == "" {
		outputDir = f.DefaultOutputDir()
	}
	log := f.logger.With(zap.String("dataset", f.dataset), zap.String("output_dir", outputDir))

	if err := storage.EnsureDir(outputDir); err != nil {
		log.Error("failed to create output directory", zap.Error(err))
		return nil, err
	}

	log.Info("downloading dataset")
	dir, err := f.downloader.Download(ctx, f.dataset)
	if err != nil {
		log.Error("dataset download failed", zap.Error(err))
		var typed *errors.Error
		if errors.As(err, &typed) {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to download dataset").
			WithDetail("dataset", f.dataset)
	}
	log.Info("dataset available", zap.String("path", dir))

	source, err := f.pickCSV(dir)
	if err != nil {
		log.Error("no dataset file to load", zap.Error(err))
		return nil, err
	}

	df, err := frame.ReadCSVFile(source)
	if err != nil {
		log.Error("failed to load dataset", zap.String("source", source), zap.Error(err))
		if errors.IsType(err, errors.ErrorTypeFile) || errors.IsType(err, errors.ErrorTypeData) {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to parse dataset").WithDetail("source", source)
	}
	rows, cols := df.Shape()
	metrics.RowsLoaded.Add(float64(rows))
	log.Info("dataset loaded", zap.String("source", source), zap.Int("rows", rows), zap.Int("columns", cols))

	original := filepath.Join(outputDir, OriginalFileName)
	if err := copyFile(source, original); err != nil {
		log.Error("failed to copy raw dataset", zap.String("destination", original), zap.Error(err))
		return nil, err
	}
	log.Info("raw dataset copied", zap.String("destination", original))

	return &Result{Frame: df, SourcePath: source, OriginalPath: original}, nil
}

// pickCSV returns the explicit file when one is configured, otherwise the
// first *.csv in dir by name
func (f *Fetcher) pickCSV(dir string) (string, error) {
	if f.file != "" {
		path := filepath.Join(dir, filepath.Clean("/" + f.file)[1:])
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			return "", errors.Newf(errors.ErrorTypeNotFound, "file %q not found in the downloaded dataset", f.file).
				WithDetail("dir", dir)
		}
		return path, nil
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeFile, "failed to list dataset files").WithDetail("dir", dir)
	}
	if len(matches) == 0 {
		return "", errors.New(errors.ErrorTypeNotFound, "no CSV files found in the downloaded dataset").
			WithDetail("dir", dir)
	}
	sort.Strings(matches)
	return matches[0], nil
}

// copyFile copies src to dst and carries over the modification time
func copyFile(src, dst string) error {
	in, err := os.Open(src) //nolint:gosec // path comes from the dataset directory
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to open raw dataset").WithDetail("path", src)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to stat raw dataset").WithDetail("path", src)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm()) //nolint:gosec // dst is inside the output dir
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create raw copy").WithDetail("path", dst)
	}

	_, err = io.Copy(out, in)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to copy raw dataset").WithDetail("path", dst)
	}

	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to preserve modification time").WithDetail("path", dst)
	}
	return nil
}
