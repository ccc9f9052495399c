// Package pipeline runs the dataset workflow end to end: fetch the dataset,
// save a working copy, then summarize it for the user.
//
// # Basic Usage
//
//	p := pipeline.New(fetch, persist, logger, &pipeline.Config{
//	    Format: persister.FormatCSV,
//	})
//	result, err := p.Run(ctx, os.Stdout)
//
// Each stage runs under its own span and records its duration and errors in
// the metrics package. The run stops at the first failing stage.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ajitpratap0/spotify-dataset/pkg/fetcher"
	"github.com/ajitpratap0/spotify-dataset/pkg/frame"
	"github.com/ajitpratap0/spotify-dataset/pkg/logger"
	"github.com/ajitpratap0/spotify-dataset/pkg/metrics"
	"github.com/ajitpratap0/spotify-dataset/pkg/observability"
	"github.com/ajitpratap0/spotify-dataset/pkg/persister"
	"github.com/ajitpratap0/spotify-dataset/pkg/summary"
)

// Fetcher obtains the dataset
type Fetcher interface {
	Fetch(ctx context.Context, outputDir string) (*fetcher.Result, error)
}

// Saver persists a frame and returns the path written
type Saver interface {
	Save(ctx context.Context, f *frame.Frame, outputPath string, format persister.Format) (string, error)
}

// Config controls where the pipeline writes
type Config struct {
	// OutputDir receives the raw copy. Empty lets the fetcher choose.
	OutputDir string
	// OutputPath receives the saved dataset. Empty lets the persister choose.
	OutputPath string
	Format     persister.Format
	// Dataset is added to the run's log fields
	Dataset string
}

// Result is what a completed run produced
type Result struct {
	RunID        string
	Summary      *summary.Summary
	OriginalPath string
	SavedPath    string
	Duration     time.Duration
}

// Pipeline wires the stages together
type Pipeline struct {
	fetcher Fetcher
	saver   Saver
	logger  *zap.Logger
	config  *Config
}

// New creates a pipeline. A nil config saves CSV to the default locations.
func New(f Fetcher, s Saver, log *zap.Logger, config *Config) *Pipeline {
	if config == nil {
		config = &Config{}
	}
	if config.Format == "" {
		config.Format = persister.FormatCSV
	}
	return &Pipeline{
		fetcher: f,
		saver:   s,
		logger:  log.With(zap.String("component", "pipeline")),
		config:  config,
	}
}

// Run executes fetch, save and summarize, printing the summary and a closing
// line to out. A run identifier already stored in ctx with logger.NewContext
// is kept; otherwise a new one is assigned.
func (p *Pipeline) Run(ctx context.Context, out io.Writer) (*Result, error) {
	start := time.Now()
	runID := logger.RunID(ctx)
	if runID == "" {
		runID = uuid.NewString()
	}
	ctx = logger.NewContext(ctx, runID, p.config.Dataset)
	log := p.logger.With(logger.Fields(ctx)...)

	ctx, span := observability.StartSpan(ctx, "pipeline.run",
		attribute.String("run_id", runID),
		attribute.String("format", string(p.config.Format)))
	var runErr error
	defer func() { observability.EndSpan(span, runErr) }()

	fetched, err := p.fetch(ctx, log)
	if err != nil {
		runErr = err
		return nil, err
	}

	saved, err := p.save(ctx, log, fetched.Frame)
	if err != nil {
		runErr = err
		return nil, err
	}

	s, err := p.summarize(ctx, log, fetched.Frame, out)
	if err != nil {
		runErr = err
		return nil, err
	}

	if _, err := fmt.Fprintf(out, "\nDataset download and exploration complete! Data saved to: %s\n", saved); err != nil {
		runErr = err
		return nil, err
	}

	result := &Result{
		RunID:        runID,
		Summary:      s,
		OriginalPath: fetched.OriginalPath,
		SavedPath:    saved,
		Duration:     time.Since(start),
	}
	log.Info("pipeline completed",
		zap.Duration("duration", result.Duration),
		zap.String("saved_path", saved),
		zap.Int("rows", s.Shape[0]),
		zap.Int("columns", s.Shape[1]))
	return result, nil
}

func (p *Pipeline) fetch(ctx context.Context, log *zap.Logger) (*fetcher.Result, error) {
	ctx, span := observability.StartSpan(ctx, "pipeline.fetch")
	timer := metrics.NewTimer(metrics.StageFetch)

	res, err := p.fetcher.Fetch(ctx, p.config.OutputDir)
	stageDone(log, metrics.StageFetch, timer.ObserveDuration(), err)
	if err == nil {
		span.SetAttributes(attribute.Int("rows", res.Frame.NumRows()))
	}
	observability.EndSpan(span, err)
	if err != nil {
		metrics.StageErrors.WithLabelValues(metrics.StageFetch).Inc()
		return nil, err
	}
	return res, nil
}

func (p *Pipeline) save(ctx context.Context, log *zap.Logger, f *frame.Frame) (string, error) {
	ctx, span := observability.StartSpan(ctx, "pipeline.save",
		attribute.String("format", string(p.config.Format)))
	timer := metrics.NewTimer(metrics.StageSave)

	path, err := p.saver.Save(ctx, f, p.config.OutputPath, p.config.Format)
	stageDone(log, metrics.StageSave, timer.ObserveDuration(), err)
	if err == nil {
		span.SetAttributes(attribute.String("path", path))
	}
	observability.EndSpan(span, err)
	if err != nil {
		metrics.StageErrors.WithLabelValues(metrics.StageSave).Inc()
		return "", err
	}
	return path, nil
}

func (p *Pipeline) summarize(ctx context.Context, log *zap.Logger, f *frame.Frame, out io.Writer) (*summary.Summary, error) {
	_, span := observability.StartSpan(ctx, "pipeline.summarize")
	timer := metrics.NewTimer(metrics.StageSummarize)

	s := summary.Summarize(f)
	err := s.Print(out)
	stageDone(log, metrics.StageSummarize, timer.ObserveDuration(), err)
	observability.EndSpan(span, err)
	if err != nil {
		metrics.StageErrors.WithLabelValues(metrics.StageSummarize).Inc()
		return nil, err
	}
	return s, nil
}

func stageDone(log *zap.Logger, stage string, d time.Duration, err error) {
	if err != nil {
		log.Debug("stage failed", zap.String("stage", stage), zap.Duration("duration", d), zap.Error(err))
		return
	}
	log.Debug("stage completed", zap.String("stage", stage), zap.Duration("duration", d))
}
