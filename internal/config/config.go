package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AppName names the config and state directories
const AppName = "session_tracker"

// Timing controls idle detection
type Timing struct {
	// IdleThreshold is how many seconds without input end a session
	IdleThreshold int `yaml:"idle_threshold"`

	// CheckInterval is the idle polling interval in milliseconds
	CheckInterval int `yaml:"check_interval"`
}

// UI holds presentation settings
type UI struct {
	// StartHidden starts in the compact (minimized) view
	StartHidden bool `yaml:"start_hidden"`

	// LogHeight is the number of session rows shown
	LogHeight int `yaml:"log_height"`

	// SummaryHeight is the number of daily total rows shown
	SummaryHeight int `yaml:"summary_height"`
}

// Logging configures the diagnostic log
type Logging struct {
	// File is where diagnostics go; empty means the state directory
	File string `yaml:"file"`

	// Level is one of trace, debug, info, warn, error
	Level string `yaml:"level"`
}

// Config holds the application configuration
type Config struct {
	// Theme is the color theme to use (mocha, macchiato, frappe, latte)
	Theme string `yaml:"theme"`

	// LogFile is the session record log
	LogFile string `yaml:"log_file"`

	// Storage selects the record backend: csv or sqlite
	Storage string `yaml:"storage"`

	Timing  Timing  `yaml:"timing"`
	UI      UI      `yaml:"ui"`
	Logging Logging `yaml:"logging"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Theme:   "mocha",
		LogFile: "session_logs.csv",
		Storage: "csv",
		Timing: Timing{
			IdleThreshold: 470,
			CheckInterval: 5000,
		},
		UI: UI{
			LogHeight:     5,
			SummaryHeight: 8,
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

// Load reads the config from a YAML file, falling back to defaults, then applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath) //nolint:gosec // config path from flag or known locations
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", cleanPath, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// DefaultPath returns the first existing config file among the standard
// locations, or the user config location if none exists.
func DefaultPath() string {
	// Check in order: current dir, ~/.config/session_tracker/, XDG_CONFIG_HOME
	paths := []string{
		"config.yaml",
		filepath.Join(os.Getenv("HOME"), ".config", AppName, "config.yaml"),
	}

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, AppName, "config.yaml"))
	}

	for _, path := range paths {
		cleanPath := filepath.Clean(path)
		if _, err := os.Stat(cleanPath); err == nil {
			return cleanPath
		}
	}
	return paths[1]
}

// LoadFromDefaultPath attempts to load config from standard locations
func LoadFromDefaultPath() (*Config, string, error) {
	path := DefaultPath()
	cfg, err := Load(path)
	return cfg, path, err
}

// IdleThreshold returns the threshold as a duration
func (c *Config) IdleThreshold() time.Duration {
	return time.Duration(c.Timing.IdleThreshold) * time.Second
}

// CheckInterval returns the polling interval as a duration
func (c *Config) CheckInterval() time.Duration {
	return time.Duration(c.Timing.CheckInterval) * time.Millisecond
}

// DiagnosticsPath returns where the diagnostic log should be written
func (c *Config) DiagnosticsPath() string {
	if c.Logging.File != "" {
		return c.Logging.File
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, AppName, AppName+".log")
}

// Themes lists the accepted theme names
var Themes = []string{"mocha", "macchiato", "frappe", "latte"}

// Validate rejects settings the tracker cannot run with
func (c *Config) Validate() error {
	var errs []error

	if c.Timing.IdleThreshold <= 0 {
		errs = append(errs, fmt.Errorf("timing.idle_threshold must be positive, got %d", c.Timing.IdleThreshold))
	}
	if c.Timing.CheckInterval <= 0 {
		errs = append(errs, fmt.Errorf("timing.check_interval must be positive, got %d", c.Timing.CheckInterval))
	}
	if c.LogFile == "" {
		errs = append(errs, errors.New("log_file must not be empty"))
	}

	switch strings.ToLower(c.Storage) {
	case "csv", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("storage must be csv or sqlite, got %q", c.Storage))
	}

	known := false
	for _, t := range Themes {
		if strings.EqualFold(c.Theme, t) {
			known = true
			break
		}
	}
	if !known {
		errs = append(errs, fmt.Errorf("unknown theme %q", c.Theme))
	}

	if c.UI.LogHeight < 0 || c.UI.SummaryHeight < 0 {
		errs = append(errs, errors.New("ui heights must be non-negative"))
	}

	return errors.Join(errs...)
}

// applyEnv overrides settings from SESSION_TRACKER_* environment variables
func (c *Config) applyEnv() error {
	if v := os.Getenv("SESSION_TRACKER_IDLE_THRESHOLD"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SESSION_TRACKER_IDLE_THRESHOLD: %w", err)
		}
		c.Timing.IdleThreshold = n
	}

	if v := os.Getenv("SESSION_TRACKER_CHECK_INTERVAL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SESSION_TRACKER_CHECK_INTERVAL: %w", err)
		}
		c.Timing.CheckInterval = n
	}

	if v := os.Getenv("SESSION_TRACKER_LOG_FILE"); v != "" {
		c.LogFile = v
	}

	if v := os.Getenv("SESSION_TRACKER_STORAGE"); v != "" {
		c.Storage = v
	}

	if v := os.Getenv("SESSION_TRACKER_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	return nil
}
