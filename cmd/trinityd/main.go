// Package main provides the trinityd daemon - the cross-chain atomic
// swap orchestration service.
package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/trinity-exchange/trinity-swapd/internal/chain"
	"github.com/trinity-exchange/trinity-swapd/internal/config"
	"github.com/trinity-exchange/trinity-swapd/internal/consensus"
	"github.com/trinity-exchange/trinity-swapd/internal/metrics"
	"github.com/trinity-exchange/trinity-swapd/internal/ratelimit"
	"github.com/trinity-exchange/trinity-swapd/internal/route"
	"github.com/trinity-exchange/trinity-swapd/internal/rpc"
	"github.com/trinity-exchange/trinity-swapd/internal/storage"
	"github.com/trinity-exchange/trinity-swapd/internal/swap"
	"github.com/trinity-exchange/trinity-swapd/pkg/logging"
)

var (
	version = "0.1.0-dev"
	commit  = "unknown"
)

func main() {
	// A .env file is optional; environment variables win over it.
	_ = godotenv.Load()

	// Parse flags
	var (
		dataDir     = flag.String("data-dir", "~/.trinityd", "Data directory")
		configFile  = flag.String("config", "", "Config file path (default: <data-dir>/config.yaml)")
		apiAddr     = flag.String("api", "", "REST API address, overrides config")
		logLevel    = flag.String("log-level", "", "Log level (debug, info, warn, error)")
		showVersion = flag.Bool("version", false, "Show version and exit")
	)
	flag.Parse()

	// Set up logging (initial, may be overridden by config)
	log := logging.New(&logging.Config{
		Level:      "info",
		TimeFormat: time.TimeOnly,
	})
	logging.SetDefault(log)

	if *showVersion {
		log.Infof("trinityd %s (commit: %s)", version, commit)
		os.Exit(0)
	}

	dataPath := expandPath(*dataDir)

	// Load config file (missing file yields defaults)
	cfgPath := *configFile
	if cfgPath == "" {
		cfgPath = config.ConfigPath(dataPath)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal("Failed to load config", "error", err)
	}

	// Apply CLI overrides (CLI flags take precedence over config file)
	if *apiAddr != "" {
		cfg.APIAddr = *apiAddr
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	cfg.Storage.DataDir = dataPath

	// Update logging with config level
	log = logging.New(&logging.Config{
		Level:      cfg.Logging.Level,
		TimeFormat: time.TimeOnly,
	})
	logging.SetDefault(log)

	log.Info("Config loaded", "path", cfgPath)

	// Initialize the order store
	var store storage.OrderStore
	switch cfg.Storage.Backend {
	case "sqlite":
		store, err = storage.NewSQLiteStore(dataPath)
		if err != nil {
			log.Fatal("Failed to open order database", "error", err)
		}
		log.Info("Order store initialized", "backend", "sqlite", "path", dataPath)
	default:
		store = storage.NewMemoryStore()
		log.Info("Order store initialized", "backend", "memory")
	}
	defer store.Close()

	// Initialize the rate limiter. Redis gives a shared window across
	// replicas; the in-process limiter is per-instance.
	var limiter ratelimit.Limiter
	var memLimiter *ratelimit.MemoryLimiter
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		limiter = ratelimit.NewRedisLimiter(rdb)
		log.Info("Rate limiter initialized", "backend", "redis", "addr", cfg.Redis.Addr)
	} else {
		memLimiter = ratelimit.NewMemoryLimiter()
		limiter = memLimiter
		log.Info("Rate limiter initialized", "backend", "memory")
	}

	// Build the proof verifier from configured validator keys. Networks
	// without keys run in simulation mode.
	verifier, err := buildVerifier(cfg.Validators)
	if err != nil {
		log.Fatal("Invalid validator configuration", "error", err)
	}
	tracker := consensus.NewTracker(verifier)

	// Chain adapters. Simulated: trinityd orchestrates HTLC state and
	// consensus, the chain clients live in the validator processes.
	adapters := chain.NewSimRegistry()

	rec := metrics.NewRecorder()
	finder := route.NewFinder()

	service := swap.NewService(&swap.ServiceConfig{
		Store:    store,
		Limiter:  limiter,
		Finder:   finder,
		Tracker:  tracker,
		Adapters: adapters,
		Metrics:  rec,
		Limits:   cfg.Limits,
	})
	log.Info("Swap service initialized",
		"min_usd", cfg.Limits.MinSwapUSD,
		"max_usd", cfg.Limits.MaxSwapUSD,
		"timelock", cfg.Limits.Timelock)

	// Retention sweep for terminal orders and stale limiter state.
	sweeper := swap.NewSweeper(store, rec, memLimiter, cfg.Retention, cfg.Limits.RateWindow)
	sweeper.Start()
	defer sweeper.Stop()

	// Start REST server
	server := rpc.NewServer(service, finder, rec, adapters)
	if err := server.Start(cfg.APIAddr); err != nil {
		log.Fatal("Failed to start API server", "error", err)
	}

	printBanner(log, cfg)

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	log.Info("Shutting down...")

	if err := server.Stop(); err != nil {
		log.Error("Error stopping API server", "error", err)
	}

	log.Info("Goodbye!")
}

// buildVerifier wires the configured validator keys into a signature
// verifier. The ethereum validator is identified by its signer address,
// solana and ton validators by ed25519 public keys.
func buildVerifier(validators map[string]config.ValidatorConfig) (*consensus.SigVerifier, error) {
	v := consensus.NewSigVerifier()
	for name, vc := range validators {
		network := chain.Network(name)
		if !chain.Valid(network) {
			return nil, chain.ErrUnknownNetwork
		}
		switch network {
		case chain.Ethereum:
			if vc.Address != "" {
				v.SetEthereumValidator(common.HexToAddress(vc.Address))
			}
		default:
			if vc.PublicKey != "" {
				raw, err := hex.DecodeString(vc.PublicKey)
				if err != nil {
					return nil, err
				}
				if err := v.SetEd25519Validator(network, ed25519.PublicKey(raw)); err != nil {
					return nil, err
				}
			}
		}
	}
	return v, nil
}

// expandPath expands ~ to home directory.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[1:])
	}
	return path
}

func printBanner(log *logging.Logger, cfg *config.Config) {
	log.Info("")
	log.Info("=================================================")
	log.Info("  Trinity Swap Daemon")
	log.Infof("  Version: %s", version)
	log.Info("=================================================")
	log.Info("")
	log.Infof("  API: http://%s", cfg.APIAddr)
	log.Infof("  Store: %s", cfg.Storage.Backend)
	log.Infof("  Data dir: %s", expandPath(cfg.Storage.DataDir))
	log.Infof("  Consensus: 2-of-3 (ethereum, solana, ton)")
	log.Info("")
	log.Info("=================================================")
	log.Info("")
}
