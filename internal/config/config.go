// Package config loads the rnafm YAML configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the rnafm configuration.
type Config struct {
	Hub    HubConfig    `yaml:"hub"`
	Theme  string       `yaml:"theme"`
	Log    LogConfig    `yaml:"log"`
	Output OutputConfig `yaml:"output"`
}

// HubConfig configures pretrained checkpoint downloads.
type HubConfig struct {
	BaseURL  string `yaml:"base_url"`
	CacheDir string `yaml:"cache_dir"`
	Timeout  string `yaml:"timeout"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// OutputConfig configures command output.
type OutputConfig struct {
	Format string `yaml:"format"` // text, json
}

// Environment variables that override file settings.
const (
	EnvHubURL   = "RNAFM_HUB_URL"
	EnvCacheDir = "RNAFM_CACHE_DIR"
)

// DefaultHubURL is the default base URL for pretrained checkpoints.
const DefaultHubURL = "https://dl.fbaipublicfiles.com/fair-esm"

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Hub: HubConfig{
			BaseURL:  DefaultHubURL,
			CacheDir: DefaultCacheDir(),
			Timeout:  "10m",
		},
		Log:    LogConfig{Level: "info"},
		Output: OutputConfig{Format: "text"},
	}
}

// DefaultCacheDir returns the checkpoint cache directory under the user cache
// directory, or a relative directory when that is unavailable.
func DefaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ".rnafm-cache"
	}
	return filepath.Join(dir, "rnafm")
}

// DefaultConfigPath returns the path of the user configuration file.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "rnafm.yaml"
	}
	return filepath.Join(dir, "rnafm", "config.yaml")
}

// Load loads configuration from a YAML file. A missing file yields defaults.
// Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	//nolint:gosec // G304: config path comes from the caller
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if url := os.Getenv(EnvHubURL); url != "" {
		c.Hub.BaseURL = url
	}
	if dir := os.Getenv(EnvCacheDir); dir != "" {
		c.Hub.CacheDir = dir
	}
}

// HubTimeout returns the download timeout as a duration.
func (c *Config) HubTimeout() time.Duration {
	d, err := time.ParseDuration(c.Hub.Timeout)
	if err != nil {
		return 10 * time.Minute
	}
	return d
}

// Valid values for enumerated settings.
var (
	ValidThemes        = []string{"", "protein", "rna"}
	ValidLogLevels     = []string{"debug", "info", "warn", "error"}
	ValidOutputFormats = []string{"text", "json"}
)

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Hub.BaseURL == "" {
		return errors.New("hub base_url not configured (set " + EnvHubURL + ")")
	}
	if c.Hub.CacheDir == "" {
		return errors.New("hub cache_dir not configured (set " + EnvCacheDir + ")")
	}
	if c.Hub.Timeout != "" {
		if _, err := time.ParseDuration(c.Hub.Timeout); err != nil {
			return fmt.Errorf("invalid hub timeout %q: %w", c.Hub.Timeout, err)
		}
	}
	if !contains(ValidThemes, c.Theme) {
		return fmt.Errorf("invalid theme: %s (valid: %v)", c.Theme, ValidThemes[1:])
	}
	if !contains(ValidLogLevels, c.Log.Level) {
		return fmt.Errorf("invalid log level: %s (valid: %v)", c.Log.Level, ValidLogLevels)
	}
	if !contains(ValidOutputFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (valid: %v)", c.Output.Format, ValidOutputFormats)
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
