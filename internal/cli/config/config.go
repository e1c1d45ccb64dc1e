package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	configDirName  = "placar"
	configFileName = "config.yaml"
)

// Token storage backends
const (
	StorageFile    = "file"
	StorageKeyring = "keyring"
	StorageRedis   = "redis"
)

// Config is the CLI configuration stored in ~/.config/placar/config.yaml
type Config struct {
	ServerURL    string `yaml:"server_url"`
	Storage      string `yaml:"storage"`
	TokenDir     string `yaml:"token_dir,omitempty"`
	RedisAddress string `yaml:"redis_address,omitempty"`
	Account      string `yaml:"account,omitempty"`
	UIAddress    string `yaml:"ui_address"`
}

// DefaultConfig returns the configuration used when no file exists
func DefaultConfig() *Config {
	return &Config{
		ServerURL: "http://localhost:8000",
		Storage:   StorageFile,
		Account:   "default",
		UIAddress: "127.0.0.1:7070",
	}
}

// Dir returns ~/.config/placar, or $PLACAR_CONFIG_DIR when set
func Dir() (string, error) {
	if dir := os.Getenv("PLACAR_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", configDirName), nil
}

// Path returns the path to the config file
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// Load reads the config file at path. A missing file yields the defaults.
// PLACAR_SERVER_URL and PLACAR_STORAGE override the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if v := os.Getenv("PLACAR_SERVER_URL"); v != "" {
		cfg.ServerURL = v
	}
	if v := os.Getenv("PLACAR_STORAGE"); v != "" {
		cfg.Storage = v
	}

	if cfg.TokenDir == "" {
		dir := filepath.Dir(path)
		cfg.TokenDir = filepath.Join(dir, "session")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to path
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate reports every problem at once
func (c *Config) Validate() error {
	var problems []string

	if u, err := url.Parse(c.ServerURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		problems = append(problems, fmt.Sprintf("server_url must be an http(s) URL, got %q", c.ServerURL))
	}

	switch c.Storage {
	case StorageFile, StorageKeyring:
	case StorageRedis:
		if c.RedisAddress == "" {
			problems = append(problems, "redis_address is required when storage is redis")
		}
	default:
		problems = append(problems, fmt.Sprintf("storage must be file, keyring or redis, got %q", c.Storage))
	}

	if c.UIAddress == "" {
		problems = append(problems, "ui_address is required")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid CLI config:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}
