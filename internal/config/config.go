// Package config provides configuration types and loading for the
// Stockroom CLI. Configuration comes from stockroom.yaml, environment
// variables with the STOCKROOM_ prefix, or both; flags override either.
package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config is the top-level configuration for the Stockroom CLI.
type Config struct {
	// Server configures the Stockroom API endpoint.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Storage configures where the session record is persisted between
	// invocations.
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`

	// Log configures diagnostic logging.
	Log LogConfig `yaml:"log" mapstructure:"log"`

	// Telemetry configures OpenTelemetry trace and metric export.
	Telemetry TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry"`
}

// ServerConfig configures the remote API.
type ServerConfig struct {
	// BaseURL is the root of the Stockroom API (e.g., "https://api.stockroom.example").
	BaseURL string `yaml:"base_url" mapstructure:"base_url" validate:"omitempty,http_url"`

	// Timeout is the per-request timeout (e.g., "15s", "1m").
	// Defaults to "15s" if empty.
	Timeout string `yaml:"timeout" mapstructure:"timeout" validate:"omitempty,duration"`

	// RefreshSkew is how long before expiry an access credential is
	// treated as already expired, so it is refreshed ahead of use.
	// Defaults to "30s" if empty.
	RefreshSkew string `yaml:"refresh_skew" mapstructure:"refresh_skew" validate:"omitempty,duration"`
}

// StorageConfig configures session persistence.
type StorageConfig struct {
	// Backend selects the persistence backend.
	// Valid values: "file" (JSON record) or "sqlite".
	// Defaults to "file" if empty.
	Backend string `yaml:"backend" mapstructure:"backend" validate:"omitempty,oneof=file sqlite"`

	// Path is where the session record lives. Defaults to
	// ~/.stockroom/session.json (file) or ~/.stockroom/session.db (sqlite).
	Path string `yaml:"path" mapstructure:"path"`
}

// LogConfig configures diagnostic logging.
type LogConfig struct {
	// Level sets the minimum log level.
	// Valid values: "debug", "info", "warn", "error".
	// Defaults to "warn": a CLI should be quiet unless asked.
	Level string `yaml:"level" mapstructure:"level" validate:"omitempty,oneof=debug info warn warning error"`

	// Format selects the log output format.
	// Valid values: "text" or "json". Defaults to "text".
	Format string `yaml:"format" mapstructure:"format" validate:"omitempty,oneof=text json"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	// Enabled turns trace and metric export on. Default: false.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// SetDefaults applies default values to unset fields.
func (c *Config) SetDefaults() {
	if c.Server.Timeout == "" {
		c.Server.Timeout = "15s"
	}
	if c.Server.RefreshSkew == "" {
		c.Server.RefreshSkew = "30s"
	}

	if c.Storage.Backend == "" {
		c.Storage.Backend = "file"
	}
	if c.Storage.Path == "" {
		name := "session.json"
		if c.Storage.Backend == "sqlite" {
			name = "session.db"
		}
		if home, err := os.UserHomeDir(); err == nil {
			c.Storage.Path = filepath.Join(home, ".stockroom", name)
		} else {
			c.Storage.Path = name
		}
	}

	if c.Log.Level == "" {
		c.Log.Level = "warn"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// TimeoutDuration returns the parsed request timeout.
// SetDefaults and Validate must have run; an unparseable value here is a bug.
func (c *Config) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Server.Timeout)
	if err != nil {
		return 15 * time.Second
	}
	return d
}

// RefreshSkewDuration returns the parsed refresh skew.
func (c *Config) RefreshSkewDuration() time.Duration {
	d, err := time.ParseDuration(c.Server.RefreshSkew)
	if err != nil {
		return 30 * time.Second
	}
	return d
}
