package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	DefaultVersion  = 1
	DefaultFeatures = "features"
	DefaultPattern  = "*.feature"
	DefaultParallel = 1
	DefaultFormat   = "pretty"

	// Default values for watch and history configuration.
	DefaultWatchDebounce = 150 * time.Millisecond
	DefaultHistoryKeep   = 50

	// Dir is the project directory holding config and run records.
	Dir = ".tally"
	// FileName is the config file name inside Dir.
	FileName = "config.json"
)

// Formats lists the accepted report formats.
var Formats = []string{"pretty", "progress", "json"}

// Config defines project configuration stored in .tally/config.json.
type Config struct {
	Version  int            `json:"version"`
	Features string         `json:"features,omitempty"`
	Pattern  string         `json:"pattern,omitempty"`
	Parallel int            `json:"parallel,omitempty"`
	Format   string         `json:"format,omitempty"`
	Tags     string         `json:"tags,omitempty"`
	Watch    *WatchConfig   `json:"watch,omitempty"`
	History  *HistoryConfig `json:"history,omitempty"`
}

// WatchConfig holds watch mode settings.
type WatchConfig struct {
	// Debounce is how long to wait for changes to settle, as a duration string (default "150ms").
	Debounce *string `json:"debounce,omitempty"`

	// Serve is the address for the live results websocket (default "" = disabled).
	Serve *string `json:"serve,omitempty"`
}

// GetDebounce returns the debounce delay (default 150ms).
func (c *WatchConfig) GetDebounce() time.Duration {
	if c == nil || c.Debounce == nil {
		return DefaultWatchDebounce
	}
	d, err := time.ParseDuration(*c.Debounce)
	if err != nil {
		return DefaultWatchDebounce
	}
	return d
}

// GetServe returns the live results address (default "").
func (c *WatchConfig) GetServe() string {
	if c == nil || c.Serve == nil {
		return ""
	}
	return *c.Serve
}

// Validate checks that watch config values are within sensible ranges.
func (c *WatchConfig) Validate() error {
	if c == nil || c.Debounce == nil {
		return nil
	}
	d, err := time.ParseDuration(*c.Debounce)
	if err != nil {
		return fmt.Errorf("invalid debounce: %w", err)
	}
	if d < 0 {
		return fmt.Errorf("debounce must be non-negative, got %v", d)
	}
	if d > 10*time.Second {
		return fmt.Errorf("debounce must be at most 10s, got %v", d)
	}
	return nil
}

// HistoryConfig holds run record retention settings.
type HistoryConfig struct {
	// Enabled controls whether runs are recorded (default true).
	Enabled *bool `json:"enabled,omitempty"`

	// Keep is how many run records to retain (default 50).
	Keep *int `json:"keep,omitempty"`
}

// IsEnabled returns whether run records are written (default true).
func (c *HistoryConfig) IsEnabled() bool {
	if c == nil || c.Enabled == nil {
		return true
	}
	return *c.Enabled
}

// GetKeep returns how many records to retain (default 50).
func (c *HistoryConfig) GetKeep() int {
	if c == nil || c.Keep == nil {
		return DefaultHistoryKeep
	}
	return *c.Keep
}

// Validate checks that history config values are within sensible ranges.
func (c *HistoryConfig) Validate() error {
	if c == nil || c.Keep == nil {
		return nil
	}
	if *c.Keep < 1 {
		return fmt.Errorf("keep must be at least 1, got %d", *c.Keep)
	}
	if *c.Keep > 10000 {
		return fmt.Errorf("keep must be at most 10000, got %d", *c.Keep)
	}
	return nil
}

// Default returns the default config.
func Default() Config {
	return Config{
		Version:  DefaultVersion,
		Features: DefaultFeatures,
		Pattern:  DefaultPattern,
		Parallel: DefaultParallel,
		Format:   DefaultFormat,
	}
}

// Path returns the config file path for a project root.
func Path(root string) string {
	return filepath.Join(root, Dir, FileName)
}

// applyDefaults fills zero values with defaults.
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = DefaultVersion
	}
	if c.Features == "" {
		c.Features = DefaultFeatures
	}
	if c.Pattern == "" {
		c.Pattern = DefaultPattern
	}
	if c.Parallel == 0 {
		c.Parallel = DefaultParallel
	}
	if c.Format == "" {
		c.Format = DefaultFormat
	}
}

// Load reads config from disk and applies defaults for zero values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("config not found: %w", err)
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return decode(data)
}

// LoadOrDefault reads config from disk, returning defaults if file doesn't exist.
func LoadOrDefault(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return decode(data)
}

func decode(data []byte) (Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes a config to disk, creating the parent directory.
func Save(path string, cfg Config) error {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// Validate ensures config values are within supported ranges.
func (c Config) Validate() error {
	if c.Version != DefaultVersion {
		return fmt.Errorf("unsupported config version: %d", c.Version)
	}
	if c.Parallel < 1 || c.Parallel > 64 {
		return fmt.Errorf("parallel must be between 1 and 64, got %d", c.Parallel)
	}
	if _, err := filepath.Match(c.Pattern, ""); err != nil {
		return fmt.Errorf("invalid pattern %q: %w", c.Pattern, err)
	}
	if !ValidFormat(c.Format) {
		return fmt.Errorf("unknown format %q", c.Format)
	}
	if err := c.Watch.Validate(); err != nil {
		return fmt.Errorf("invalid watch config: %w", err)
	}
	if err := c.History.Validate(); err != nil {
		return fmt.Errorf("invalid history config: %w", err)
	}
	return nil
}

// ValidFormat reports whether name is a known report format.
func ValidFormat(name string) bool {
	for _, f := range Formats {
		if f == name {
			return true
		}
	}
	return false
}
