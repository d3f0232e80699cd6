// Package config provides centralized configuration for the trinity swap
// daemon. All tunable parameters (limits, retention, timelocks, validator
// keys) are defined here; no hardcoded values should exist elsewhere.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all daemon configuration.
type Config struct {
	// APIAddr is the HTTP listen address for the REST API.
	APIAddr string `yaml:"api_addr"`

	Logging   LoggingConfig   `yaml:"logging"`
	Limits    LimitsConfig    `yaml:"limits"`
	Retention RetentionConfig `yaml:"retention"`
	Storage   StorageConfig   `yaml:"storage"`
	Redis     RedisConfig     `yaml:"redis"`

	// Validators holds the per-network validator verification keys for the
	// 2-of-3 consensus. A network without a configured key accepts any
	// well-formed proof (simulation mode).
	Validators map[string]ValidatorConfig `yaml:"validators,omitempty"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// LimitsConfig bounds order admission.
type LimitsConfig struct {
	// MinSwapUSD and MaxSwapUSD bound the USD-equivalent value of a swap.
	MinSwapUSD float64 `yaml:"min_swap_usd"`
	MaxSwapUSD float64 `yaml:"max_swap_usd"`

	// RateLimit is the number of order creations allowed per user within
	// RateWindow.
	RateLimit  int           `yaml:"rate_limit"`
	RateWindow time.Duration `yaml:"rate_window"`

	// Timelock is the HTLC expiry horizon applied at order creation.
	Timelock time.Duration `yaml:"timelock"`
}

// RetentionConfig bounds how long completed state is kept.
type RetentionConfig struct {
	// OrderTTL is how long terminal orders are retained before the sweep
	// purges them.
	OrderTTL time.Duration `yaml:"order_ttl"`
	// SweepInterval is how often the retention sweep runs.
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// StorageConfig selects and configures the order store backend.
type StorageConfig struct {
	// Backend is "memory" or "sqlite".
	Backend string `yaml:"backend"`
	DataDir string `yaml:"data_dir"`
}

// RedisConfig configures the optional Redis-backed rate limiter.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db"`
}

// ValidatorConfig holds one network's validator verification key.
type ValidatorConfig struct {
	// Address is the secp256k1 signer address (Ethereum validator).
	Address string `yaml:"address,omitempty"`
	// PublicKey is the hex-encoded ed25519 public key (Solana/TON validators).
	PublicKey string `yaml:"public_key,omitempty"`
}

// DefaultConfig returns the default daemon configuration.
func DefaultConfig() *Config {
	return &Config{
		APIAddr: "127.0.0.1:8080",
		Logging: LoggingConfig{Level: "info"},
		Limits: LimitsConfig{
			MinSwapUSD: 1,
			MaxSwapUSD: 1_000_000,
			RateLimit:  10,
			RateWindow: time.Hour,
			Timelock:   24 * time.Hour,
		},
		Retention: RetentionConfig{
			OrderTTL:      24 * time.Hour,
			SweepInterval: 10 * time.Minute,
		},
		Storage: StorageConfig{
			Backend: "memory",
			DataDir: "~/.trinityd",
		},
		Redis: RedisConfig{
			Addr: "127.0.0.1:6379",
		},
	}
}

// ConfigPath returns the config file path inside a data directory.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, "config.yaml")
}

// Load reads the config file at path, applying defaults for any unset
// fields. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to path as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Limits.MinSwapUSD <= 0 {
		return fmt.Errorf("limits.min_swap_usd must be positive")
	}
	if c.Limits.MaxSwapUSD <= c.Limits.MinSwapUSD {
		return fmt.Errorf("limits.max_swap_usd must exceed min_swap_usd")
	}
	if c.Limits.RateLimit <= 0 {
		return fmt.Errorf("limits.rate_limit must be positive")
	}
	if c.Limits.RateWindow <= 0 {
		return fmt.Errorf("limits.rate_window must be positive")
	}
	if c.Limits.Timelock <= 0 {
		return fmt.Errorf("limits.timelock must be positive")
	}
	switch c.Storage.Backend {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("storage.backend must be memory or sqlite, got %q", c.Storage.Backend)
	}
	return nil
}
