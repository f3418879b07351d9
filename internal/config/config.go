// Package config provides application configuration management for panes.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// MaxPanes is the number of leaf panes a single tab may hold.
const MaxPanes = 4

// Config holds the panes configuration.
type Config struct {
	ServerURL     string          `json:"server_url"`             // WebSocket endpoint of the workspace server
	Token         string          `json:"token,omitempty"`        // Bearer token sent on dial
	Reconnect     ReconnectConfig `json:"reconnect"`              // Reconnect timing
	FlushInterval string          `json:"flush_interval"`         // Streaming delta batch window (e.g. "16ms")
	Theme         string          `json:"theme"`                  // Name of the active theme
	Language      string          `json:"language,omitempty"`     // BCP 47 tag; empty follows the environment
	MetricsAddr   string          `json:"metrics_addr,omitempty"` // Listen address for /metrics; empty disables
	LogPath       string          `json:"log_path,omitempty"`     // Log file; empty uses <Dir>/panes.log
	LogLevel      string          `json:"log_level,omitempty"`    // debug, info, warn or error
	MaxPanes      int             `json:"max_panes"`              // Must not exceed MaxPanes
}

// ReconnectConfig holds reconnect timing.
type ReconnectConfig struct {
	Delay    string  `json:"delay"`               // Pause after a close (default "2s")
	MaxDelay string  `json:"max_delay,omitempty"` // Enables exponential backoff when larger than Delay
	Jitter   float64 `json:"jitter,omitempty"`    // Fraction in [0,1)
}

// DelayDuration returns the parsed reconnect delay (default: 2s).
func (c ReconnectConfig) DelayDuration() time.Duration {
	if d, err := time.ParseDuration(c.Delay); err == nil && d > 0 {
		return d
	}
	return 2 * time.Second
}

// MaxDelayDuration returns the parsed backoff ceiling, or 0 when unset.
func (c ReconnectConfig) MaxDelayDuration() time.Duration {
	if d, err := time.ParseDuration(c.MaxDelay); err == nil && d > 0 {
		return d
	}
	return 0
}

// FlushDuration returns the parsed streaming flush window (default: 16ms).
func (c Config) FlushDuration() time.Duration {
	if d, err := time.ParseDuration(c.FlushInterval); err == nil && d > 0 {
		return d
	}
	return 16 * time.Millisecond
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return fmt.Errorf("server_url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("server_url: scheme must be ws or wss, got %q", u.Scheme)
	}
	if c.Reconnect.Delay != "" {
		if _, err := time.ParseDuration(c.Reconnect.Delay); err != nil {
			return fmt.Errorf("reconnect.delay: %w", err)
		}
	}
	if c.Reconnect.MaxDelay != "" {
		if _, err := time.ParseDuration(c.Reconnect.MaxDelay); err != nil {
			return fmt.Errorf("reconnect.max_delay: %w", err)
		}
	}
	if c.Reconnect.Jitter < 0 || c.Reconnect.Jitter >= 1 {
		return fmt.Errorf("reconnect.jitter: must be in [0,1), got %v", c.Reconnect.Jitter)
	}
	if c.FlushInterval != "" {
		if _, err := time.ParseDuration(c.FlushInterval); err != nil {
			return fmt.Errorf("flush_interval: %w", err)
		}
	}
	if c.MaxPanes < 1 || c.MaxPanes > MaxPanes {
		return fmt.Errorf("max_panes: must be between 1 and %d, got %d", MaxPanes, c.MaxPanes)
	}
	return nil
}

// Dir returns the path to the panes directory. PANES_HOME overrides ~/.panes.
func Dir() (string, error) {
	if v := os.Getenv("PANES_HOME"); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".panes"), nil
}

// Path returns the path to the main config file.
func Path() (string, error) {
	configDir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

// Load loads the configuration from the config file, creating it with
// defaults on first use.
func Load() (Config, error) {
	configPath, err := Path()
	if err != nil {
		return Config{}, err
	}
	return LoadFile(configPath)
}

// LoadFile loads the configuration from path.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg := Default()
		if saveErr := SaveFile(path, cfg); saveErr != nil {
			return cfg, nil // return defaults even if save fails
		}
		return cfg, nil
	} else if err != nil {
		return Config{}, err
	}

	// Start from defaults so missing keys keep their default values.
	config := Default()
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if config.Theme == "" {
		config.Theme = "dark"
	}
	if config.MaxPanes == 0 {
		config.MaxPanes = MaxPanes
	}
	return config, nil
}

// Default returns a default configuration with all defaults set.
func Default() Config {
	return Config{
		ServerURL: "ws://localhost:8787/ws",
		Reconnect: ReconnectConfig{
			Delay: "2s",
		},
		FlushInterval: "16ms",
		Theme:         "dark",
		LogLevel:      "info",
		MaxPanes:      MaxPanes,
	}
}

// Save saves the configuration to the config file.
func Save(config Config) error {
	configPath, err := Path()
	if err != nil {
		return err
	}
	return SaveFile(configPath, config)
}

// SaveFile writes config to path.
func SaveFile(path string, config Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
