// Package metrics tracks run statistics with Prometheus collectors. The CLI
// is short lived, so instead of serving /metrics the registry is dumped in
// the node exporter textfile format at the end of a run.
//
// # Basic Usage
//
//	timer := metrics.NewTimer(metrics.StageFetch)
//	df, err := fetcher.Fetch(ctx, "")
//	timer.ObserveDuration()
//
//	metrics.RowsLoaded.Add(float64(df.NumRows()))
//	_ = metrics.WriteTextfile("/var/lib/node_exporter/spotify_dataset.prom")
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Stage names used as label values
const (
	StageFetch     = "fetch"
	StageSave      = "save"
	StageSummarize = "summarize"
)

var (
	// RowsLoaded counts rows parsed from downloaded CSV files
	RowsLoaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spotify_dataset_rows_loaded_total",
		Help: "Rows loaded from downloaded dataset files",
	})

	// BytesDownloaded counts archive bytes received from the registry
	BytesDownloaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spotify_dataset_bytes_downloaded_total",
		Help: "Archive bytes downloaded from the dataset registry",
	})

	// CacheHits counts downloads served from the local cache
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spotify_dataset_cache_hits_total",
		Help: "Dataset downloads answered from the local cache",
	})

	// FormatFallbacks counts saves that fell back from a columnar format to CSV
	FormatFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spotify_dataset_format_fallbacks_total",
			Help: "Saves that fell back to CSV because a columnar format was unavailable",
		},
		[]string{"requested"},
	)

	// StageDuration tracks how long each pipeline stage takes
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "spotify_dataset_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300},
		},
		[]string{"stage"},
	)

	// StageErrors counts failed stages
	StageErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spotify_dataset_stage_errors_total",
			Help: "Pipeline stages that returned an error",
		},
		[]string{"stage"},
	)
)

// Timer measures a stage duration
type Timer struct {
	stage string
	start time.Time
}

// NewTimer starts timing stage
func NewTimer(stage string) *Timer {
	return &Timer{stage: stage, start: time.Now()}
}

// ObserveDuration records the elapsed time and returns it
func (t *Timer) ObserveDuration() time.Duration {
	d := time.Since(t.start)
	StageDuration.WithLabelValues(t.stage).Observe(d.Seconds())
	return d
}

// WriteTextfile writes every registered metric to path
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
