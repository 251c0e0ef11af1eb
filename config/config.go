// Package config handles configuration loading and saving.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tidehub/hubchat/logger"
)

const (
	configFileName = "config.yaml"
	stateFileName  = "conversation.yaml"
)

var configDirOverride string

// SetConfigDir overrides the config directory for the current process.
// Empty value clears the override.
func SetConfigDir(dir string) {
	configDirOverride = strings.TrimSpace(dir)
}

// Config is the root configuration structure.
type Config struct {
	Hub     HubConfig     `json:"hub" yaml:"hub"`
	Stream  StreamConfig  `json:"stream,omitempty" yaml:"stream,omitempty"`
	Logging LoggingConfig `json:"logging,omitempty" yaml:"logging,omitempty"`
}

// HubConfig locates the hub and selects the model asset used for sends.
type HubConfig struct {
	BaseURL        string `json:"baseURL" yaml:"baseURL"`
	ModelAssetID   string `json:"modelAssetId,omitempty" yaml:"modelAssetId,omitempty"`
	RequestTimeout string `json:"requestTimeout,omitempty" yaml:"requestTimeout,omitempty"` // Go duration, e.g. "5m"
}

// StreamConfig tunes streaming behavior.
type StreamConfig struct {
	// IdleTimeout force-terminates a stream that stalls without any event.
	// Empty or "0s" disables the watchdog (the hub's native behavior).
	IdleTimeout string `json:"idleTimeout,omitempty" yaml:"idleTimeout,omitempty"`
}

// LoggingConfig controls the logger package.
type LoggingConfig struct {
	Enabled *bool  `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Level   string `json:"level,omitempty" yaml:"level,omitempty"`
	Stdout  *bool  `json:"stdout,omitempty" yaml:"stdout,omitempty"`
	File    string `json:"file,omitempty" yaml:"file,omitempty"`
}

// ConfigDir returns the hubchat config directory, honoring the override and
// the HUBCHAT_CONFIG_DIR environment variable.
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}
	if dir := strings.TrimSpace(os.Getenv("HUBCHAT_CONFIG_DIR")); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve home dir: %w", err)
	}
	return filepath.Join(home, ".hubchat"), nil
}

// ConfigPath returns the full path of the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// StatePath returns the full path of the conversation state file.
func StatePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, stateFileName), nil
}

// Load reads the config file, applying defaults for absent fields.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config: %s not found, run `hubchat onboard` first", path)
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config file, creating the directory when needed.
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Hub.BaseURL) == "" {
		return fmt.Errorf("config: hub.baseURL is required")
	}
	if _, err := c.RequestTimeout(); err != nil {
		return err
	}
	if _, err := c.IdleTimeout(); err != nil {
		return err
	}
	return nil
}

// RequestTimeout parses the HTTP client timeout.
func (c *Config) RequestTimeout() (time.Duration, error) {
	return parseDuration("hub.requestTimeout", c.Hub.RequestTimeout, defaultRequestTimeout)
}

// IdleTimeout parses the stream watchdog timeout. Zero means disabled.
func (c *Config) IdleTimeout() (time.Duration, error) {
	return parseDuration("stream.idleTimeout", c.Stream.IdleTimeout, 0)
}

func parseDuration(field, value string, fallback time.Duration) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s %q: %w", field, value, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("config: negative %s %q", field, value)
	}
	return d, nil
}

// BuildLoggerConfig converts logging settings for logger.Init.
func (c *Config) BuildLoggerConfig() logger.Config {
	lc := logger.Config{
		Enabled: true,
		Level:   c.Logging.Level,
		Stdout:  false,
		File:    c.Logging.File,
	}
	if c.Logging.Enabled != nil {
		lc.Enabled = *c.Logging.Enabled
	}
	if c.Logging.Stdout != nil {
		lc.Stdout = *c.Logging.Stdout
	}
	return lc
}
