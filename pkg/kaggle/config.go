package kaggle

import (
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"

	"github.com/ajitpratap0/spotify-dataset/pkg/errors"
)

// DefaultBaseURL is the public Kaggle API root
const DefaultBaseURL = "https://www.kaggle.com/api/v1"

// Config configures the registry client
type Config struct {
	BaseURL  string        `json:"base_url" yaml:"base_url" mapstructure:"base_url"`
	Username string        `json:"username" yaml:"username" mapstructure:"username"`
	Key      string        `json:"-" yaml:"-" mapstructure:"key"`
	CacheDir string        `json:"cache_dir" yaml:"cache_dir" mapstructure:"cache_dir"`
	Timeout  time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
	HTTP2    bool          `json:"http2" yaml:"http2" mapstructure:"http2"`
}

// DefaultConfig returns the public API, the kagglehub cache location and no credentials
func DefaultConfig() *Config {
	return &Config{
		BaseURL:  DefaultBaseURL,
		CacheDir: DefaultCacheDir(),
		Timeout:  30 * time.Second,
		HTTP2:    true,
	}
}

// DefaultCacheDir is $KAGGLEHUB_CACHE or ~/.cache/kagglehub
func DefaultCacheDir() string {
	if dir := os.Getenv("KAGGLEHUB_CACHE"); dir != "" {
		return dir
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".cache", "kagglehub")
	}
	return filepath.Join(os.TempDir(), "kagglehub")
}

type credentialsFile struct {
	Username string `json:"username"`
	Key      string `json:"key"`
}

// LoadCredentials fills Username and Key when they are unset, first from
// KAGGLE_USERNAME and KAGGLE_KEY, then from kaggle.json under
// $KAGGLE_CONFIG_DIR or ~/.kaggle. Missing credentials are not an error.
func (c *Config) LoadCredentials() error {
	if c.Username != "" && c.Key != "" {
		return nil
	}

	if user, key := os.Getenv("KAGGLE_USERNAME"), os.Getenv("KAGGLE_KEY"); user != "" && key != "" {
		c.Username, c.Key = user, key
		return nil
	}

	dir := os.Getenv("KAGGLE_CONFIG_DIR")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		dir = filepath.Join(home, ".kaggle")
	}

	path := filepath.Join(dir, "kaggle.json")
	data, err := os.ReadFile(path) //nolint:gosec // well-known credentials location
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to read Kaggle credentials").WithDetail("path", path)
	}

	var creds credentialsFile
	if err := json.Unmarshal(data, &creds); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse Kaggle credentials").WithDetail("path", path)
	}
	c.Username, c.Key = creds.Username, creds.Key
	return nil
}

// HasCredentials reports whether requests will carry basic auth
func (c *Config) HasCredentials() bool {
	return c.Username != "" && c.Key != ""
}
