// Package config loads favsync configuration from the YAML config file,
// falling back to defaults when the file does not exist.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration. Intervals and delays are in
// milliseconds so the file stays plain YAML.
type Config struct {
	// APIBaseURL is the favorites service base URL.
	APIBaseURL string `yaml:"apiBaseUrl"`

	// CatalogBaseURL is the group catalog base URL. Defaults to
	// APIBaseURL when empty.
	CatalogBaseURL string `yaml:"catalogBaseUrl,omitempty"`

	// PushURL is the push channel WebSocket URL.
	PushURL string `yaml:"pushUrl"`

	// SessionCookie optionally carries the session credential as
	// "name=value" when no browser login flow is available.
	SessionCookie string `yaml:"sessionCookie,omitempty"`

	// DataDir is where the device-local database lives.
	DataDir string `yaml:"dataDir"`

	// PollIntervalMS is the cross-process watcher poll cadence.
	PollIntervalMS int `yaml:"pollIntervalMs,omitempty"`

	// GraceDelayMS is how long an un-favorited card lingers before
	// fading, once the cursor has left it.
	GraceDelayMS int `yaml:"graceDelayMs,omitempty"`

	// FadeDelayMS is the fade transition length before removal.
	FadeDelayMS int `yaml:"fadeDelayMs,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"logLevel,omitempty"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		APIBaseURL:     "https://openmeet.example",
		PushURL:        "wss://openmeet.example/ws",
		DataDir:        "~/.favsync",
		PollIntervalMS: 250,
		GraceDelayMS:   1000,
		FadeDelayMS:    300,
		LogLevel:       "info",
	}
}

// Load reads the config file at path, layering it over the defaults.
// A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".favsync/config.yaml"
	}
	return filepath.Join(home, ".favsync", "config.yaml")
}

// ExpandedDataDir resolves a leading "~" in DataDir.
func (c Config) ExpandedDataDir() string {
	dir := c.DataDir
	if len(dir) >= 2 && dir[:2] == "~/" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, dir[2:])
		}
	}
	return dir
}

// CatalogURL returns the catalog base URL, defaulting to the API URL.
func (c Config) CatalogURL() string {
	if c.CatalogBaseURL != "" {
		return c.CatalogBaseURL
	}
	return c.APIBaseURL
}

// PollInterval returns the watcher cadence as a duration.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// GraceDelay returns the pending-removal grace window as a duration.
func (c Config) GraceDelay() time.Duration {
	return time.Duration(c.GraceDelayMS) * time.Millisecond
}

// FadeDelay returns the fade transition length as a duration.
func (c Config) FadeDelay() time.Duration {
	return time.Duration(c.FadeDelayMS) * time.Millisecond
}
