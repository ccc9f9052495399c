// Package spotifydataset downloads the devdope/900k-spotify tracks dataset
// from the Kaggle registry, keeps an untouched copy of the raw CSV, saves a
// working copy as CSV or Parquet and prints an overview of its contents.
//
// # Quick Start
//
// Run the whole workflow and save Parquet under ./data:
//
//	go run ./cmd/spotify-dataset --format parquet
//
// Or drive it from Go:
//
//	import (
//	    "github.com/ajitpratap0/spotify-dataset/internal/pipeline"
//	    "github.com/ajitpratap0/spotify-dataset/pkg/fetcher"
//	    "github.com/ajitpratap0/spotify-dataset/pkg/kaggle"
//	    "github.com/ajitpratap0/spotify-dataset/pkg/persister"
//	)
//
//	client := kaggle.NewClient(kaggle.DefaultConfig(), logger)
//	p := pipeline.New(
//	    fetcher.New(client, logger),
//	    persister.New(logger),
//	    logger,
//	    &pipeline.Config{Format: persister.FormatParquet},
//	)
//	result, err := p.Run(ctx, os.Stdout)
//
// # Key Packages
//
//	pkg/kaggle             - Registry client with a kagglehub compatible cache
//	pkg/fetcher            - Download, CSV selection and raw copy
//	pkg/frame              - In-memory table loaded from CSV
//	pkg/persister          - CSV or Parquet output with capability fallback
//	pkg/formats/columnar   - Parquet codec over Apache Arrow
//	pkg/storage            - Local, S3 and GCS output locations
//	pkg/summary            - Shape, head, dtypes, missing counts and statistics
//	pkg/config             - Defaults, YAML, environment and flag layering
//	pkg/errors             - Typed errors
//	pkg/logger             - Structured logging
//	pkg/metrics            - Prometheus counters and stage timings
//	pkg/observability      - OpenTelemetry spans
//
// # Credentials
//
// Registry credentials come from KAGGLE_USERNAME and KAGGLE_KEY, or from
// kaggle.json under $KAGGLE_CONFIG_DIR or ~/.kaggle. Downloads are cached
// under $KAGGLEHUB_CACHE, ~/.cache/kagglehub by default, and reused on later
// runs.
package spotifydataset
