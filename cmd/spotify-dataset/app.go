package main

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/spotify-dataset/pkg/config"
	"github.com/ajitpratap0/spotify-dataset/pkg/errors"
	"github.com/ajitpratap0/spotify-dataset/pkg/fetcher"
	"github.com/ajitpratap0/spotify-dataset/pkg/kaggle"
	"github.com/ajitpratap0/spotify-dataset/pkg/logger"
	"github.com/ajitpratap0/spotify-dataset/pkg/metrics"
	"github.com/ajitpratap0/spotify-dataset/pkg/observability"
	"github.com/ajitpratap0/spotify-dataset/pkg/persister"
	"github.com/ajitpratap0/spotify-dataset/pkg/summary"
)

// app holds the components a command works with
type app struct {
	config *config.Config
	// logger carries the run fields of the command context
	logger    *zap.Logger
	out       io.Writer
	fetcher   *fetcher.Fetcher
	persister *persister.Persister
}

// withApp loads configuration, sets up logging, tracing and the components,
// runs fn under the configured timeout and flushes metrics and spans afterwards
func withApp(cmd *cobra.Command, configFile string, fn func(ctx context.Context, a *app) error) error {
	cfg, err := config.Load(config.Options{File: configFile, Flags: cmd.Flags()})
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:       cfg.Log.Level,
		Encoding:    cfg.Log.Encoding,
		OutputPaths: []string{"stderr"},
	}); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to initialize logger")
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	ctx = logger.NewContext(ctx, uuid.NewString(), cfg.Dataset)
	log := logger.WithContext(ctx).With(zap.String("component", "cli"))

	if err := cfg.Registry.LoadCredentials(); err != nil {
		return err
	}
	if !cfg.Registry.HasCredentials() {
		log.Debug("no Kaggle credentials found, using anonymous access")
	}

	shutdown, err := observability.InitTracing(observability.TracingConfig{
		Enabled:        cfg.Observability.Trace,
		ServiceName:    "spotify-dataset",
		ServiceVersion: version,
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to initialize tracing")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			log.Warn("failed to flush spans", zap.Error(err))
		}
	}()

	client := kaggle.NewClient(&cfg.Registry, logger.Get())
	a := &app{
		config: cfg,
		logger: log,
		out:    cmd.OutOrStdout(),
		fetcher: fetcher.New(client, logger.Get(),
			fetcher.WithDataset(cfg.Dataset),
			fetcher.WithFile(cfg.File),
			fetcher.WithProjectRoot(cfg.Root()),
		),
		persister: persister.New(logger.Get(),
			persister.WithWriterConfig(cfg.WriterConfig()),
			persister.WithProjectRoot(cfg.Root()),
		),
	}

	runErr := fn(ctx, a)

	if path := cfg.Observability.MetricsFile; path != "" {
		if err := metrics.WriteTextfile(path); err != nil {
			log.Warn("failed to write metrics file", zap.String("path", path), zap.Error(err))
		}
	}
	return runErr
}

// writeSummaryJSON writes s to the configured summary file, if any
func (a *app) writeSummaryJSON(s *summary.Summary) error {
	path := a.config.Observability.SummaryJSON
	if path == "" {
		return nil
	}

	f, err := os.Create(path) //nolint:gosec // path is chosen by the user
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create summary file").WithDetail("path", path)
	}
	err = s.WriteJSON(f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write summary file").WithDetail("path", path)
	}
	a.logger.Info("summary written", zap.String("path", path))
	return nil
}
