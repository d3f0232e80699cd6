package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.APIAddr != "127.0.0.1:8080" {
		t.Errorf("APIAddr = %s, want 127.0.0.1:8080", cfg.APIAddr)
	}
	if cfg.Limits.MinSwapUSD != 1 {
		t.Errorf("MinSwapUSD = %v, want 1", cfg.Limits.MinSwapUSD)
	}
	if cfg.Limits.MaxSwapUSD != 1_000_000 {
		t.Errorf("MaxSwapUSD = %v, want 1000000", cfg.Limits.MaxSwapUSD)
	}
	if cfg.Limits.RateLimit != 10 || cfg.Limits.RateWindow != time.Hour {
		t.Errorf("rate limit = %d per %v, want 10 per hour", cfg.Limits.RateLimit, cfg.Limits.RateWindow)
	}
	if cfg.Limits.Timelock != 24*time.Hour {
		t.Errorf("Timelock = %v, want 24h", cfg.Limits.Timelock)
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("Backend = %s, want memory", cfg.Storage.Backend)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Limits.RateLimit != 10 {
		t.Errorf("RateLimit = %d, want default 10", cfg.Limits.RateLimit)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := ConfigPath(dir)

	cfg := DefaultConfig()
	cfg.APIAddr = "0.0.0.0:9090"
	cfg.Limits.RateLimit = 25
	cfg.Storage.Backend = "sqlite"
	cfg.Redis.Enabled = true
	cfg.Validators = map[string]ValidatorConfig{
		"ethereum": {Address: "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0"},
	}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if loaded.APIAddr != "0.0.0.0:9090" {
		t.Errorf("APIAddr = %s, want 0.0.0.0:9090", loaded.APIAddr)
	}
	if loaded.Limits.RateLimit != 25 {
		t.Errorf("RateLimit = %d, want 25", loaded.Limits.RateLimit)
	}
	if loaded.Storage.Backend != "sqlite" {
		t.Errorf("Backend = %s, want sqlite", loaded.Storage.Backend)
	}
	if !loaded.Redis.Enabled {
		t.Error("Redis.Enabled should round trip")
	}
	if loaded.Validators["ethereum"].Address == "" {
		t.Error("validator config should round trip")
	}
}

func TestLoadAppliesDefaultsForUnsetFields(t *testing.T) {
	dir := t.TempDir()
	path := ConfigPath(dir)
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("api_addr: 0.0.0.0:9999\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.APIAddr != "0.0.0.0:9999" {
		t.Errorf("APIAddr = %s, want override", cfg.APIAddr)
	}
	if cfg.Limits.Timelock != 24*time.Hour {
		t.Errorf("Timelock = %v, want default 24h", cfg.Limits.Timelock)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "zero min usd", mutate: func(c *Config) { c.Limits.MinSwapUSD = 0 }},
		{name: "max below min", mutate: func(c *Config) { c.Limits.MaxSwapUSD = 0.5 }},
		{name: "zero rate limit", mutate: func(c *Config) { c.Limits.RateLimit = 0 }},
		{name: "zero rate window", mutate: func(c *Config) { c.Limits.RateWindow = 0 }},
		{name: "zero timelock", mutate: func(c *Config) { c.Limits.Timelock = 0 }},
		{name: "bad backend", mutate: func(c *Config) { c.Storage.Backend = "postgres" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := ConfigPath(dir)
	if err := os.WriteFile(path, []byte("limits:\n  rate_limit: -5\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("negative rate limit should be rejected")
	}
}
