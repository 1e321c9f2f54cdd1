// Package config defines process configuration and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and GRUDGE_ environment variables on top.
// - External errors are wrapped with this package's sentinels.
package config

import (
	"fmt"
	"slices"
	"strings"
)

// Output formats accepted by the CLI.
const (
	OutputText = "text"
	OutputJSON = "json"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// DataDir holds entities.json, ledger.db and standings.json.
	DataDir string `koanf:"data_dir"`

	// BackupOnOpen refreshes the .bak copies whenever a store opens cleanly.
	BackupOnOpen bool `koanf:"backup_on_open"`

	// MetricsTextfile, when set, receives the metrics registry after each command.
	MetricsTextfile string `koanf:"metrics_textfile"`

	// Output is the command output format: text or json.
	Output string `koanf:"output"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:     "info",
		LogFormat:    "text",
		DataDir:      "./grudge-data",
		BackupOnOpen: true,
		Output:       OutputText,
	}
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
	outputs    = []string{OutputText, OutputJSON}
)

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("%w: data_dir must not be empty", ErrInvalidConfig)
	}
	if !slices.Contains(logLevels, strings.ToLower(c.LogLevel)) {
		return fmt.Errorf("%w: log_level %q is not one of %v", ErrInvalidConfig, c.LogLevel, logLevels)
	}
	if !slices.Contains(logFormats, c.LogFormat) {
		return fmt.Errorf("%w: log_format %q is not one of %v", ErrInvalidConfig, c.LogFormat, logFormats)
	}
	if !slices.Contains(outputs, c.Output) {
		return fmt.Errorf("%w: output %q is not one of %v", ErrInvalidConfig, c.Output, outputs)
	}
	return nil
}
