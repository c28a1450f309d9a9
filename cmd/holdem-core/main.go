package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lox/holdem-core/internal/oracle"
	"github.com/lox/holdem-core/internal/recovery"
	"github.com/lox/holdem-core/internal/server"
	"github.com/lox/holdem-core/internal/stats"
)

var CLI struct {
	Config   string `short:"c" default:"holdem-core.hcl" help:"Path to HCL configuration file"`
	Addr     string `short:"a" help:"Listen address (overrides config)"`
	LogLevel string `short:"l" help:"Log level (overrides config)"`
	Seed     int64  `help:"Deck oracle seed (overrides config; 0 uses the current time)"`
}

func main() {
	kctx := kong.Parse(&CLI)

	cfg, err := server.LoadConfig(CLI.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		kctx.Exit(1)
	}
	if CLI.LogLevel != "" {
		cfg.Server.LogLevel = CLI.LogLevel
	}
	if CLI.Seed != 0 {
		cfg.Server.Seed = CLI.Seed
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		kctx.Exit(1)
	}

	logger := log.New(os.Stderr)
	switch cfg.Server.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("server failed", "err", err)
		kctx.Exit(1)
	}
}

func run(cfg *server.Config, logger *log.Logger) error {
	metrics := recovery.NewMetrics(prometheus.DefaultRegisterer)
	registry := recovery.NewRegistry(logger, recovery.WithRegistryMetrics(metrics))
	for _, block := range cfg.Retries {
		policy, err := block.Policy()
		if err != nil {
			return err
		}
		if err := registry.ConfigurePolicy(block.Resource, policy); err != nil {
			return err
		}
	}
	for _, block := range cfg.Breakers {
		breakerCfg, err := block.BreakerConfig()
		if err != nil {
			return err
		}
		if err := registry.ConfigureBreaker(block.Resource, breakerCfg); err != nil {
			return err
		}
	}

	seed := cfg.Server.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	deckOracle := oracle.NewResilient(oracle.NewMemory(seed), registry)

	statsService := stats.NewService(noopStore{}, registry, logger)
	service := server.NewService(deckOracle, registry, statsService, logger)

	syncOpts := cfg.SyncOptions()
	for _, table := range cfg.Tables {
		if err := service.CreateTable(table, syncOpts); err != nil {
			return err
		}
	}

	addr := CLI.Addr
	if addr == "" {
		addr = fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port)
	}
	srv := server.NewServer(addr, service, cfg.Server.Metrics, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting", "addr", addr, "tables", len(cfg.Tables), "seed", seed)
	err := srv.Run(ctx)
	statsService.Flush(context.Background())
	return err
}

// noopStore discards statistics; a real deployment points this at the
// persistence service
type noopStore struct{}

func (noopStore) SaveSession(ctx context.Context, session stats.Session) error {
	return nil
}

func (noopStore) CloseSession(ctx context.Context, sessionID string, cashOut int, endedAt time.Time) error {
	return nil
}

func (noopStore) SaveHands(ctx context.Context, batch []stats.HandStats) error {
	return nil
}
