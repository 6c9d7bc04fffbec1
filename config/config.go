// Package config holds the bridge configuration, loaded from bridge.yaml in
// the paths-resolved config directory.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nemurigi/houdini-mcp/paths"
)

// Defaults applied when a field is absent from bridge.yaml.
const (
	DefaultHost         = "127.0.0.1"
	DefaultPort         = 9876
	DefaultReadTimeout  = 10 * time.Second
	DefaultPollInterval = 100 * time.Millisecond
)

// Config holds the bridge configuration shared by the relay and the
// embedded command server.
type Config struct {
	Host         string   `yaml:"host,omitempty"`          // Back-end listen/dial host
	Port         int      `yaml:"port,omitempty"`          // Back-end TCP port
	ReadTimeout  Duration `yaml:"read_timeout,omitempty"`  // Relay socket read timeout
	PollInterval Duration `yaml:"poll_interval,omitempty"` // Back-end poll tick interval
	AssetLibrary bool     `yaml:"asset_library,omitempty"` // Enable asset-library commands at startup
	Debug        bool     `yaml:"debug,omitempty"`         // Debug-level logging
	LogPath      string   `yaml:"log_path,omitempty"`      // Override for the log file path

	filePath string
}

// Duration is a wrapper around time.Duration that implements YAML
// unmarshaling from human-readable strings like "10s", "100ms".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (any, error) {
	return d.Duration.String(), nil
}

// Default returns a Config with every field set to its default value.
func Default() *Config {
	return &Config{
		Host:         DefaultHost,
		Port:         DefaultPort,
		ReadTimeout:  Duration{DefaultReadTimeout},
		PollInterval: Duration{DefaultPollInterval},
	}
}

// Load reads the config from disk, or returns defaults if no file exists.
func Load() (*Config, error) {
	path, err := paths.ConfigFilePath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads the config from the given path, or returns defaults if the
// file does not exist. Missing fields are filled with defaults before
// validation.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	cfg.filePath = path

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults fills zero-valued fields after unmarshaling. Must run before
// Validate() since Validate() only reads.
func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.ReadTimeout.Duration == 0 {
		c.ReadTimeout = Duration{DefaultReadTimeout}
	}
	if c.PollInterval.Duration == 0 {
		c.PollInterval = Duration{DefaultPollInterval}
	}
}

// Validate checks the config for values that cannot work.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.ReadTimeout.Duration < 0 {
		return fmt.Errorf("read_timeout must not be negative")
	}
	if c.PollInterval.Duration < 0 {
		return fmt.Errorf("poll_interval must not be negative")
	}
	return nil
}

// Save writes the config back to the path it was loaded from.
func (c *Config) Save() error {
	if c.filePath == "" {
		path, err := paths.ConfigFilePath()
		if err != nil {
			return err
		}
		c.filePath = path
	}

	if err := os.MkdirAll(filepath.Dir(c.filePath), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(c.filePath, data, 0644)
}

// Addr returns the host:port dial/listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
