package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	DeviceName   string           `yaml:"device_name"`   // name advertised to peers
	SharedSecret string           `yaml:"shared_secret"` // pre-shared secret both peers derive the key from
	ScanWindow   int              `yaml:"scan_window"`   // discovery window in seconds
	LogLevel     string           `yaml:"log_level"`
	Gateway      GatewayConfig    `yaml:"gateway"`
	Moderation   ModerationConfig `yaml:"moderation"`
}

// GatewayConfig holds the local HTTP/WebSocket bridge settings.
type GatewayConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// ModerationConfig holds the pre-send content policy settings.
type ModerationConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "offgrid-chat")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		DeviceName:   "offgrid-chat",
		SharedSecret: "",
		ScanWindow:   10,
		LogLevel:     "info",
		Gateway: GatewayConfig{
			Enabled: false,
			Addr:    "127.0.0.1:8730",
		},
		Moderation: ModerationConfig{
			Enabled: true,
		},
	}
}

// Load reads and parses a YAML config file. Missing fields are filled with
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if c.SharedSecret == "" {
		return fmt.Errorf("shared_secret must not be empty; both peers need the same value")
	}

	if c.ScanWindow <= 0 {
		return fmt.Errorf("scan_window must be > 0 seconds, got %d", c.ScanWindow)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	if c.Gateway.Enabled && c.Gateway.Addr == "" {
		return fmt.Errorf("gateway.addr must not be empty when the gateway is enabled")
	}

	return nil
}
