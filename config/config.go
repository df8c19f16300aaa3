// Package config holds persistctl's own configuration: a plain struct with
// a DefaultConfig constructor and eru core's ServerLogConfig for logging.
// persistctl loads it through viper (flags/env/optional file).
package config

import (
	coretypes "github.com/projecteru2/core/types"
)

// Config holds persistctl's runtime configuration.
type Config struct {
	// DefaultRetries and DefaultRetryDelayMS seed persist.FileDataPersisterSettings
	// for commands run without an explicit --retries/--retry-delay-ms flag.
	DefaultRetries      int `mapstructure:"default_retries" json:"default_retries"`
	DefaultRetryDelayMS int `mapstructure:"default_retry_delay_ms" json:"default_retry_delay_ms"`

	// Log configuration, uses eru core's ServerLogConfig.
	Log coretypes.ServerLogConfig `mapstructure:"log" json:"log"`
}

// DefaultConfig returns a Config with sensible defaults, matching
// persist.DefaultSettings().
func DefaultConfig() *Config {
	return &Config{
		DefaultRetries:      3,
		DefaultRetryDelayMS: 100,
		Log: coretypes.ServerLogConfig{
			Level:      "info",
			MaxSize:    500,
			MaxAge:     28,
			MaxBackups: 3,
		},
	}
}
