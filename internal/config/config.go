// Package config handles loading and managing certwizard configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// BackendConfig holds certificate service settings.
type BackendConfig struct {
	URL          string  `toml:"url"`            // Service base URL
	RateLimitQPS float64 `toml:"rate_limit_qps"` // Client-side request rate
}

// OAuthConfig holds OAuth configuration.
type OAuthConfig struct {
	ClientSecrets string `toml:"client_secrets"`
}

// WizardConfig holds wizard behavior settings.
type WizardConfig struct {
	EventName  string `toml:"event_name"`  // Pre-filled event name
	SenderName string `toml:"sender_name"` // Pre-filled sender name
}

type Config struct {
	Backend BackendConfig `toml:"backend"`
	OAuth   OAuthConfig   `toml:"oauth"`
	Wizard  WizardConfig  `toml:"wizard"`

	// Computed paths (not from config file)
	HomeDir string `toml:"-"`
}

// DefaultHome returns the default certwizard home directory.
// Respects CERTWIZARD_HOME environment variable.
func DefaultHome() string {
	if h := os.Getenv("CERTWIZARD_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".certwizard"
	}
	return filepath.Join(home, ".certwizard")
}

// Load reads the configuration from the specified file.
// If path is empty, uses the default location (~/.certwizard/config.toml).
// A non-empty homeDir overrides CERTWIZARD_HOME and influences where the
// default config file is looked up.
func Load(path, homeDir string) (*Config, error) {
	if homeDir == "" {
		homeDir = DefaultHome()
	}

	if path == "" {
		path = filepath.Join(homeDir, "config.toml")
	}

	cfg := &Config{
		HomeDir: homeDir,
		Backend: BackendConfig{
			URL:          "http://localhost:3000",
			RateLimitQPS: 5,
		},
	}

	// Config file is optional - use defaults if not present
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.OAuth.ClientSecrets = expandPath(cfg.OAuth.ClientSecrets)

	return cfg, nil
}

// Save writes the configuration to path, creating the directory if
// needed. HomeDir is computed and never written.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}

// ConfigFilePath returns the default config file location.
func (c *Config) ConfigFilePath() string {
	return filepath.Join(c.HomeDir, "config.toml")
}

// SessionDBPath returns the path to the session database.
func (c *Config) SessionDBPath() string {
	return filepath.Join(c.HomeDir, "session.db")
}

// TokensDir returns the path to the OAuth tokens directory.
func (c *Config) TokensDir() string {
	return filepath.Join(c.HomeDir, "tokens")
}

// PreviewsDir returns the path to the preview payload directory.
func (c *Config) PreviewsDir() string {
	return filepath.Join(c.HomeDir, "previews")
}

// EnsureHomeDir creates the home directory if it does not exist.
func (c *Config) EnsureHomeDir() error {
	return os.MkdirAll(c.HomeDir, 0o755)
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
