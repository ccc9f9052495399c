package config

import (
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/spotify-dataset/pkg/errors"
)

// EnvPrefix prefixes every environment variable the loader reads
const EnvPrefix = "SPOTIFY"

// FlagKeys maps command line flag names to configuration keys
var FlagKeys = map[string]string{
	"data-dir":     "data_dir",
	"output":       "output",
	"format":       "format",
	"compression":  "compression",
	"file":         "file",
	"dataset":      "dataset",
	"log-level":    "log.level",
	"log-encoding": "log.encoding",
	"timeout":      "timeout",
	"metrics-file": "observability.metrics_file",
	"trace":        "observability.trace",
	"summary-json": "observability.summary_json",
}

// Options controls where Load looks for values
type Options struct {
	// File is an optional YAML file
	File string
	// Flags are bound through FlagKeys. Only flags that were set override other sources.
	Flags *pflag.FlagSet
}

// Load resolves the configuration from defaults, file, environment and flags
func Load(opts Options) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.File != "" {
		data, err := os.ReadFile(opts.File) //nolint:gosec // G304: File path is chosen by the user
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to read config file").WithDetail("path", opts.File)
		}
		v.SetConfigType("yaml")
		if err := v.ReadConfig(strings.NewReader(substituteEnvVars(string(data)))); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse config file").WithDetail("path", opts.File)
		}
	}

	if opts.Flags != nil {
		for name, key := range FlagKeys {
			if flag := opts.Flags.Lookup(name); flag != nil {
				if err := v.BindPFlag(key, flag); err != nil {
					return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to bind flag").WithDetail("flag", name)
				}
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to decode configuration")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("project_root", d.ProjectRoot)
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("dataset", d.Dataset)
	v.SetDefault("file", d.File)
	v.SetDefault("output", d.Output)
	v.SetDefault("format", d.Format)
	v.SetDefault("compression", d.Compression)
	v.SetDefault("timeout", d.Timeout)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.encoding", d.Log.Encoding)

	v.SetDefault("registry.base_url", d.Registry.BaseURL)
	v.SetDefault("registry.username", d.Registry.Username)
	v.SetDefault("registry.key", d.Registry.Key)
	v.SetDefault("registry.cache_dir", d.Registry.CacheDir)
	v.SetDefault("registry.timeout", d.Registry.Timeout)
	v.SetDefault("registry.http2", d.Registry.HTTP2)

	v.SetDefault("observability.metrics_file", d.Observability.MetricsFile)
	v.SetDefault("observability.trace", d.Observability.Trace)
	v.SetDefault("observability.summary_json", d.Observability.SummaryJSON)
}

// Dump writes cfg as YAML. Credentials are never written.
func Dump(w io.Writer, cfg *Config) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to marshal YAML")
	}
	if err := enc.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to marshal YAML")
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write configuration")
	}
	return nil
}

// Save writes cfg as YAML to filePath
func Save(filePath string, cfg *Config) error {
	var buf bytes.Buffer
	if err := Dump(&buf, cfg); err != nil {
		return err
	}
	if err := os.WriteFile(filePath, buf.Bytes(), 0o600); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write config file").WithDetail("path", filePath)
	}
	return nil
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values
func substituteEnvVars(content string) string {
	var b strings.Builder
	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.Index(content[start:], "}")
		if end == -1 {
			break
		}
		end += start

		b.WriteString(content[:start])
		b.WriteString(os.Getenv(content[start+2 : end]))
		content = content[end+1:]
	}
	b.WriteString(content)
	return b.String()
}
