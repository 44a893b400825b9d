package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/marcelocantos/auditsum/internal/input"
	"github.com/marcelocantos/auditsum/internal/logging"
	"github.com/marcelocantos/auditsum/internal/report"
)

// Config holds the global auditsum configuration.
type Config struct {
	Format  string        `yaml:"format"`  // yaml or json
	Strict  bool          `yaml:"strict"`  // fail on tokens without '='
	Workers int           `yaml:"workers"` // parse workers; <= 1 is sequential
	Filter  string        `yaml:"filter"`  // Starlark expression
	Input   InputConfig   `yaml:"input"`
	Log     LogConfig     `yaml:"log"`
	History HistoryConfig `yaml:"history"`
}

// InputConfig controls how input is read.
type InputConfig struct {
	Format string `yaml:"format"` // raw, journal or auto
}

// LogConfig controls diagnostic logging on stderr.
type LogConfig struct {
	Level string `yaml:"level"`
}

// HistoryConfig controls the run history journal.
type HistoryConfig struct {
	// Enabled: nil = default (on), false = never record runs.
	Enabled *bool  `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// On reports whether runs should be recorded.
func (h HistoryConfig) On() bool {
	return h.Enabled == nil || *h.Enabled
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Format: report.FormatYAML.String(),
		Input:  InputConfig{Format: input.FormatRaw.String()},
		Log:    LogConfig{Level: logging.DefaultLevel},
		History: HistoryConfig{
			Path: filepath.Join(home, ".local", "share", "auditsum", "history.jsonl"),
		},
	}
}

// Load reads the config from the standard location
// (~/.config/auditsum/config.yaml). If the file doesn't exist, returns the
// default config.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFrom(filepath.Join(home, ".config", "auditsum", "config.yaml"))
}

// LoadFrom reads the config from the given path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	// Expand ~ in history path.
	if cfg.History.Path != "" && cfg.History.Path[0] == '~' {
		home, _ := os.UserHomeDir()
		cfg.History.Path = filepath.Join(home, cfg.History.Path[1:])
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	if _, err := report.ParseFormat(c.Format); err != nil {
		return err
	}
	if _, err := input.ParseFormat(c.Input.Format); err != nil {
		return err
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	return nil
}

// ConfigPath returns the standard config file path.
func ConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "auditsum", "config.yaml")
}
