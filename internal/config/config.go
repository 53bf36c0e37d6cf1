package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// APIConfig holds the backend origin and session tokens.
type APIConfig struct {
	URL            string `toml:"url"`
	Token          string `toml:"token"`
	RefreshToken   string `toml:"refresh_token"`
	Username       string `toml:"username"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// PollConfig controls how often tracked pipelines are refreshed.
type PollConfig struct {
	IntervalSeconds       int `toml:"interval_seconds"`
	ActiveIntervalSeconds int `toml:"active_interval_seconds"`
}

// LiveActivityConfig controls the live status surface.
type LiveActivityConfig struct {
	Disabled      bool `toml:"disabled"`
	LingerSeconds int  `toml:"linger_seconds"`
}

// PushConfig holds the device push token registered with the backend.
type PushConfig struct {
	Token    string `toml:"token"`
	Platform string `toml:"platform"`
}

// LogConfig controls logger output.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Config holds all pipesync configuration.
type Config struct {
	API          APIConfig          `toml:"api"`
	Poll         PollConfig         `toml:"poll"`
	LiveActivity LiveActivityConfig `toml:"live_activity"`
	Push         PushConfig         `toml:"push"`
	Log          LogConfig          `toml:"log"`
}

const (
	defaultAPIURL         = "http://localhost:8000"
	defaultTimeout        = 15 * time.Second
	defaultPollInterval   = 30 * time.Second
	defaultActiveInterval = 5 * time.Second
	defaultLinger         = 5 * time.Minute
	defaultPlatform       = "ios"
	defaultLogLevel       = "info"
)

// APIURLOrDefault returns the configured origin or the local development backend.
func (c Config) APIURLOrDefault() string {
	if c.API.URL != "" {
		return c.API.URL
	}
	return defaultAPIURL
}

// TimeoutOrDefault returns the HTTP timeout.
func (c Config) TimeoutOrDefault() time.Duration {
	if c.API.TimeoutSeconds > 0 {
		return time.Duration(c.API.TimeoutSeconds) * time.Second
	}
	return defaultTimeout
}

// PollIntervalOrDefault returns the refresh interval used when nothing is running.
func (c Config) PollIntervalOrDefault() time.Duration {
	if c.Poll.IntervalSeconds > 0 {
		return time.Duration(c.Poll.IntervalSeconds) * time.Second
	}
	return defaultPollInterval
}

// ActiveIntervalOrDefault returns the refresh interval used while a tracked pipeline runs.
func (c Config) ActiveIntervalOrDefault() time.Duration {
	if c.Poll.ActiveIntervalSeconds > 0 {
		return time.Duration(c.Poll.ActiveIntervalSeconds) * time.Second
	}
	return defaultActiveInterval
}

// LingerOrDefault returns how long a finished live activity stays visible.
func (c Config) LingerOrDefault() time.Duration {
	if c.LiveActivity.LingerSeconds > 0 {
		return time.Duration(c.LiveActivity.LingerSeconds) * time.Second
	}
	return defaultLinger
}

// PlatformOrDefault returns the push platform reported to the backend.
func (c Config) PlatformOrDefault() string {
	if c.Push.Platform != "" {
		return c.Push.Platform
	}
	return defaultPlatform
}

// LogLevelOrDefault returns the configured log level name.
func (c Config) LogLevelOrDefault() string {
	if c.Log.Level != "" {
		return c.Log.Level
	}
	return defaultLogLevel
}

// LoadFrom reads configuration from the given TOML file path.
// If the file does not exist, it returns an empty config without error.
// Environment variables always take precedence over file values:
//   - PIPESYNC_API_URL   overrides api.url
//   - PIPESYNC_TOKEN     overrides api.token
//   - PIPESYNC_LOG_LEVEL overrides log.level
func LoadFrom(path string) (Config, error) {
	var cfg Config
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("decoding %s: %w", path, err)
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// DefaultConfigPath returns the default path for the pipesync config file.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "pipesync", "config.toml")
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PIPESYNC_API_URL"); v != "" {
		cfg.API.URL = v
	}
	if v := os.Getenv("PIPESYNC_TOKEN"); v != "" {
		cfg.API.Token = v
	}
	if v := os.Getenv("PIPESYNC_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// Save writes cfg to the given TOML file path, creating parent directories as needed.
// Existing file contents are overwritten. Permissions on the written file are 0600.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("opening config file: %w", err)
	}
	if encErr := toml.NewEncoder(f).Encode(cfg); encErr != nil {
		f.Close()
		return encErr
	}
	return f.Close()
}
