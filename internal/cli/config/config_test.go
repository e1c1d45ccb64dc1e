package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("PLACAR_SERVER_URL", "")
	t.Setenv("PLACAR_STORAGE", "")
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.ServerURL != "http://localhost:8000" {
		t.Errorf("expected default server url, got %s", cfg.ServerURL)
	}
	if cfg.Storage != StorageFile {
		t.Errorf("expected file storage, got %s", cfg.Storage)
	}
	if cfg.TokenDir != filepath.Join(filepath.Dir(path), "session") {
		t.Errorf("unexpected token dir %s", cfg.TokenDir)
	}
}

func TestSaveAndLoad(t *testing.T) {
	t.Setenv("PLACAR_SERVER_URL", "")
	t.Setenv("PLACAR_STORAGE", "")
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	want := &Config{
		ServerURL:    "https://placar.example.com",
		Storage:      StorageRedis,
		RedisAddress: "localhost:6379",
		Account:      "ana",
		UIAddress:    "127.0.0.1:9000",
		TokenDir:     "/tmp/tokens",
	}
	if err := Save(path, want); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !strings.Contains(string(data), "server_url: https://placar.example.com") {
		t.Errorf("expected yaml keys, got:\n%s", data)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if *got != *want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PLACAR_SERVER_URL", "http://10.0.0.5:8000")
	t.Setenv("PLACAR_STORAGE", StorageKeyring)

	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ServerURL != "http://10.0.0.5:8000" || cfg.Storage != StorageKeyring {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "bad url",
			mutate:  func(c *Config) { c.ServerURL = "localhost:8000" },
			wantErr: "server_url",
		},
		{
			name:    "unknown storage",
			mutate:  func(c *Config) { c.Storage = "cookie" },
			wantErr: "storage must be",
		},
		{
			name:    "redis without address",
			mutate:  func(c *Config) { c.Storage = StorageRedis },
			wantErr: "redis_address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
