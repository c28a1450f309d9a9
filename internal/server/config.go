package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/holdem-core/internal/recovery"
	"github.com/lox/holdem-core/internal/statesync"
)

// Config is the complete server configuration
type Config struct {
	Server   ServerSettings  `hcl:"server,block"`
	Tables   []TableSettings `hcl:"table,block"`
	Retries  []RetryBlock    `hcl:"retry,block"`
	Breakers []BreakerBlock  `hcl:"breaker,block"`
	Sync     *SyncSettings   `hcl:"sync,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
	Metrics  bool   `hcl:"metrics,optional"`
	Seed     int64  `hcl:"seed,optional"`
}

// TableSettings defines one poker table
type TableSettings struct {
	Name       string `hcl:"name,label"`
	SmallBlind int    `hcl:"small_blind"`
	BigBlind   int    `hcl:"big_blind"`
	BuyInMin   int    `hcl:"buy_in_min,optional"`
	BuyInMax   int    `hcl:"buy_in_max,optional"`
	MaxSeats   int    `hcl:"max_seats,optional"`
	AutoStart  bool   `hcl:"auto_start,optional"`
}

// RetryBlock is the retry policy for one resource
type RetryBlock struct {
	Resource     string `hcl:"resource,label"`
	MaxAttempts  int    `hcl:"max_attempts"`
	Strategy     string `hcl:"strategy,optional"`
	InitialDelay string `hcl:"initial_delay,optional"`
	MaxDelay     string `hcl:"max_delay,optional"`
	Jitter       bool   `hcl:"jitter,optional"`
}

// BreakerBlock is the circuit-breaker configuration for one resource
type BreakerBlock struct {
	Resource         string `hcl:"resource,label"`
	FailureThreshold int    `hcl:"failure_threshold"`
	ResetTimeout     string `hcl:"reset_timeout,optional"`
	HalfOpenLimit    int    `hcl:"half_open_limit,optional"`
	MonitoringPeriod string `hcl:"monitoring_period,optional"`
}

// SyncSettings bounds the per-table state synchronizer
type SyncSettings struct {
	VersionDiffThreshold int    `hcl:"version_diff_threshold,optional"`
	MaxDeltaBytes        int    `hcl:"max_delta_bytes,optional"`
	HistoryCap           int    `hcl:"history_cap,optional"`
}

// DefaultConfig returns the configuration used when no file exists
func DefaultConfig() *Config {
	return &Config{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
			Metrics:  true,
		},
		Tables: []TableSettings{
			{
				Name:       "main",
				SmallBlind: 5,
				BigBlind:   10,
				BuyInMin:   500,
				BuyInMax:   5000,
				MaxSeats:   9,
				AutoStart:  true,
			},
		},
	}
}

// LoadConfig loads configuration from an HCL file, falling back to
// defaults when the file does not exist
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	for i := range c.Tables {
		t := &c.Tables[i]
		if t.MaxSeats == 0 {
			t.MaxSeats = 9
		}
		if t.BuyInMin == 0 {
			t.BuyInMin = t.BigBlind * 50
		}
		if t.BuyInMax == 0 {
			t.BuyInMax = t.BigBlind * 500
		}
	}
}

// Validate checks the whole configuration, including the recovery
// envelope ranges
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if len(c.Tables) == 0 {
		return fmt.Errorf("at least one table is required")
	}
	for _, t := range c.Tables {
		if t.SmallBlind <= 0 || t.BigBlind <= t.SmallBlind {
			return fmt.Errorf("table %s: blinds must satisfy 0 < small < big", t.Name)
		}
	}
	for _, r := range c.Retries {
		if _, err := r.Policy(); err != nil {
			return fmt.Errorf("retry %s: %w", r.Resource, err)
		}
	}
	for _, b := range c.Breakers {
		if _, err := b.BreakerConfig(); err != nil {
			return fmt.Errorf("breaker %s: %w", b.Resource, err)
		}
	}
	if s := c.Sync; s != nil {
		if s.MaxDeltaBytes < 0 || s.HistoryCap < 0 {
			return fmt.Errorf("sync bounds must be non-negative")
		}
	}
	return nil
}

// Policy converts a retry block to a validated recovery policy
func (r RetryBlock) Policy() (recovery.Policy, error) {
	policy := recovery.Policy{
		MaxAttempts:  r.MaxAttempts,
		Strategy:     recovery.BackoffExponential,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Jitter:       r.Jitter,
	}
	if r.Strategy != "" {
		policy.Strategy = recovery.BackoffStrategy(r.Strategy)
	}
	var err error
	if r.InitialDelay != "" {
		if policy.InitialDelay, err = time.ParseDuration(r.InitialDelay); err != nil {
			return policy, fmt.Errorf("initial_delay: %w", err)
		}
	}
	if r.MaxDelay != "" {
		if policy.MaxDelay, err = time.ParseDuration(r.MaxDelay); err != nil {
			return policy, fmt.Errorf("max_delay: %w", err)
		}
	}
	return policy, policy.Validate()
}

// BreakerConfig converts a breaker block to a validated configuration
func (b BreakerBlock) BreakerConfig() (recovery.BreakerConfig, error) {
	cfg := recovery.DefaultBreakerConfig()
	cfg.FailureThreshold = b.FailureThreshold
	var err error
	if b.ResetTimeout != "" {
		if cfg.ResetTimeout, err = time.ParseDuration(b.ResetTimeout); err != nil {
			return cfg, fmt.Errorf("reset_timeout: %w", err)
		}
	}
	if b.HalfOpenLimit != 0 {
		cfg.HalfOpenLimit = b.HalfOpenLimit
	}
	if b.MonitoringPeriod != "" {
		if cfg.MonitoringPeriod, err = time.ParseDuration(b.MonitoringPeriod); err != nil {
			return cfg, fmt.Errorf("monitoring_period: %w", err)
		}
	}
	return cfg, cfg.Validate()
}

// SyncOptions converts the sync block to synchronizer options
func (c *Config) SyncOptions() statesync.Options {
	opts := statesync.DefaultOptions()
	if c.Sync == nil {
		return opts
	}
	if c.Sync.VersionDiffThreshold != 0 {
		opts.VersionDiffThreshold = c.Sync.VersionDiffThreshold
	}
	if c.Sync.MaxDeltaBytes != 0 {
		opts.MaxDeltaBytes = c.Sync.MaxDeltaBytes
	}
	if c.Sync.HistoryCap != 0 {
		opts.HistoryCap = c.Sync.HistoryCap
	}
	return opts
}
