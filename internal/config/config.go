// Package config loads and saves the addie shell configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultAPIBase is the Addie API origin used when no override is set.
	DefaultAPIBase = "https://agenticadvertising.org"
	// APIBaseEnvVarName overrides the API origin for development builds.
	APIBaseEnvVarName = "ADDIE_API_URL"
)

// Config represents the shell configuration
type Config struct {
	// Custom API origin (for staging/self-hosted deployments)
	APIURL string `yaml:"api_url,omitempty"`

	// Default output format (text, json, yaml)
	Output string `yaml:"output,omitempty"`

	// Default color mode (auto, always, never)
	Color string `yaml:"color,omitempty"`
}

// configPathFunc is the function used to get the default config path
// It can be overridden for testing
var configPathFunc = defaultConfigPath

// SetConfigPathFunc sets the config path function for testing.
// Returns the original function so it can be restored.
func SetConfigPathFunc(fn func() (string, error)) func() (string, error) {
	orig := configPathFunc
	configPathFunc = fn
	return orig
}

// defaultConfigPath returns ~/.config/addie/config.yaml
func defaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "addie", "config.yaml"), nil
}

// DefaultConfigPath returns ~/.config/addie/config.yaml
func DefaultConfigPath() (string, error) {
	return configPathFunc()
}

// Load loads config from the default path, returns empty config if not found
func Load() (*Config, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return &Config{}, nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{}, nil // Return empty config if file doesn't exist
	}
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}
	return &cfg, nil
}

// Save saves config to the default path
func (c *Config) Save() error {
	path, err := DefaultConfigPath()
	if err != nil {
		return err
	}
	return c.SaveToPath(path)
}

// SaveToPath saves config to a specific path
func (c *Config) SaveToPath(path string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// APIBase resolves the effective Addie API origin.
// Priority: ADDIE_API_URL env var, then the config file, then the default.
// A trailing slash is trimmed so callers can append paths directly.
func (c *Config) APIBase() string {
	if base := strings.TrimSpace(os.Getenv(APIBaseEnvVarName)); base != "" {
		return strings.TrimRight(base, "/")
	}
	if base := strings.TrimSpace(c.APIURL); base != "" {
		return strings.TrimRight(base, "/")
	}
	return DefaultAPIBase
}

// GetOutput returns the configured output format (or empty for the default)
func (c *Config) GetOutput() string {
	return c.Output
}

// GetColor returns the configured color mode (or empty for the default)
func (c *Config) GetColor() string {
	return c.Color
}
