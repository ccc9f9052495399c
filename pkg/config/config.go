package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ajitpratap0/spotify-dataset/pkg/errors"
	"github.com/ajitpratap0/spotify-dataset/pkg/fetcher"
	"github.com/ajitpratap0/spotify-dataset/pkg/formats/columnar"
	"github.com/ajitpratap0/spotify-dataset/pkg/kaggle"
	"github.com/ajitpratap0/spotify-dataset/pkg/persister"
)

// Config is the complete run configuration
type Config struct {
	// ProjectRoot anchors the default data directory. Empty means the working directory.
	ProjectRoot string `yaml:"project_root" json:"project_root" mapstructure:"project_root"`
	// DataDir receives the raw copy and the saved dataset. Empty means <project_root>/data.
	DataDir string `yaml:"data_dir" json:"data_dir" mapstructure:"data_dir"`
	// Dataset is the registry handle, owner/slug or owner/slug/versions/N
	Dataset string `yaml:"dataset" json:"dataset" mapstructure:"dataset"`
	// File picks a file inside the dataset instead of the first CSV
	File string `yaml:"file" json:"file" mapstructure:"file"`
	// Output overrides the saved dataset location (path, s3:// or gs:// URL)
	Output      string        `yaml:"output" json:"output" mapstructure:"output"`
	Format      string        `yaml:"format" json:"format" mapstructure:"format"`
	Compression string        `yaml:"compression" json:"compression" mapstructure:"compression"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout" mapstructure:"timeout"`

	Log           LogConfig           `yaml:"log" json:"log" mapstructure:"log"`
	Registry      kaggle.Config       `yaml:"registry" json:"registry" mapstructure:"registry"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability" mapstructure:"observability"`
}

// LogConfig configures the global logger
type LogConfig struct {
	Level    string `yaml:"level" json:"level" mapstructure:"level"`
	Encoding string `yaml:"encoding" json:"encoding" mapstructure:"encoding"`
}

// ObservabilityConfig configures run metrics and tracing
type ObservabilityConfig struct {
	// MetricsFile receives the Prometheus registry in textfile format after the run
	MetricsFile string `yaml:"metrics_file" json:"metrics_file" mapstructure:"metrics_file"`
	// Trace exports spans to stderr
	Trace bool `yaml:"trace" json:"trace" mapstructure:"trace"`
	// SummaryJSON receives the summary as JSON after the run
	SummaryJSON string `yaml:"summary_json" json:"summary_json" mapstructure:"summary_json"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Dataset:     fetcher.DefaultDataset,
		Format:      string(persister.FormatCSV),
		Compression: columnar.DefaultWriterConfig().Compression,
		Timeout:     30 * time.Minute,
		Log: LogConfig{
			Level:    "info",
			Encoding: "console",
		},
		Registry: *kaggle.DefaultConfig(),
	}
}

// Validate checks the values that can be checked without side effects
func (c *Config) Validate() error {
	if _, err := persister.ParseFormat(c.Format); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "invalid format")
	}
	if !columnar.ValidCompression(c.Compression) {
		return errors.Newf(errors.ErrorTypeConfig, "invalid compression %q, expected one of %s",
			c.Compression, strings.Join(columnar.Compressions, ", "))
	}
	if _, err := kaggle.ParseHandle(c.Dataset); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "invalid dataset")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return errors.Newf(errors.ErrorTypeConfig, "invalid log level %q", c.Log.Level)
	}
	switch c.Log.Encoding {
	case "console", "json":
	default:
		return errors.Newf(errors.ErrorTypeConfig, "invalid log encoding %q", c.Log.Encoding)
	}
	if c.Timeout < 0 || c.Registry.Timeout < 0 {
		return errors.New(errors.ErrorTypeConfig, "timeouts cannot be negative")
	}
	return nil
}

// Root returns ProjectRoot, or the working directory when it is unset
func (c *Config) Root() string {
	if c.ProjectRoot != "" {
		return c.ProjectRoot
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

// OutputDir returns DataDir, or <root>/data when it is unset
func (c *Config) OutputDir() string {
	if c.DataDir != "" {
		return c.DataDir
	}
	return filepath.Join(c.Root(), fetcher.DataDirName)
}

// OutputPath returns Output, or the default file for Format inside OutputDir
func (c *Config) OutputPath() string {
	if c.Output != "" {
		return c.Output
	}
	format, err := persister.ParseFormat(c.Format)
	if err != nil {
		format = persister.FormatCSV
	}
	return filepath.Join(c.OutputDir(), persister.BaseName+format.Ext())
}

// WriterConfig returns the columnar writer options
func (c *Config) WriterConfig() *columnar.WriterConfig {
	cfg := columnar.DefaultWriterConfig()
	cfg.Compression = strings.ToLower(c.Compression)
	return cfg
}
