// Package config defines service configuration and its defaults.
package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/okian/chatrank/internal/domain/access"
	"github.com/okian/chatrank/internal/domain/achievement"
	"github.com/okian/chatrank/internal/domain/earnings"
	"github.com/shopspring/decimal"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath is the SQLite database file. ":memory:" keeps records in
	// process memory.
	DBPath string `koanf:"db_path"`

	// EventQueueSize bounds the ingestion queue.
	EventQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of ingestion workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize bounds the event id deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// LeaderboardLimit caps the number of chatters returned.
	LeaderboardLimit int `koanf:"leaderboard_limit"`

	// TrajectoryParallelism bounds concurrent period computations.
	TrajectoryParallelism int `koanf:"trajectory_parallelism"`

	// MaxTrajectoryPeriods caps the periods a trajectory may span.
	MaxTrajectoryPeriods int `koanf:"max_trajectory_periods"`

	// AggregateKey is "name" or "id".
	AggregateKey string `koanf:"aggregate_key"`

	// MissingStatus is "approved" or "pending".
	MissingStatus string `koanf:"missing_status"`

	// RoleOverride forces every principal to a role. Empty disables it.
	RoleOverride string `koanf:"role_override"`

	// CORSOrigins lists allowed browser origins.
	CORSOrigins []string `koanf:"cors_origins"`

	// MetricsSubsystem is inserted between the namespace and metric names.
	MetricsSubsystem string `koanf:"metrics_subsystem"`

	// LatencyBuckets overrides the millisecond latency histogram buckets.
	LatencyBuckets []float64 `koanf:"latency_buckets"`

	// Achievements replaces the default milestone table when non-empty.
	Achievements []Tier `koanf:"achievements"`
}

// Tier is one configured achievement.
type Tier struct {
	Threshold float64 `koanf:"threshold"`
	Name      string  `koanf:"tier"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":9080",
		DBPath:                "chatrank.db",
		EventQueueSize:        10_000,
		WorkerCount:           runtime.NumCPU(),
		DedupeSize:            100_000,
		LeaderboardLimit:      10,
		TrajectoryParallelism: 4,
		MaxTrajectoryPeriods:  52,
		AggregateKey:          "name",
		MissingStatus:         "approved",
		CORSOrigins:           []string{"*"},
	}
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("%w: db_path must not be empty", ErrInvalidConfig)
	}
	positive := map[string]int{
		"queue_size":             c.EventQueueSize,
		"worker_count":           c.WorkerCount,
		"leaderboard_limit":      c.LeaderboardLimit,
		"trajectory_parallelism": c.TrajectoryParallelism,
		"max_trajectory_periods": c.MaxTrajectoryPeriods,
	}
	for key, v := range positive {
		if v <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidConfig, key, v)
		}
	}
	if c.DedupeSize < 0 {
		return fmt.Errorf("%w: dedupe_size must not be negative", ErrInvalidConfig)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	if _, err := c.KeyPolicy(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := c.StatusPolicy(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := c.Override(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	for i, b := range c.LatencyBuckets {
		if b <= 0 || (i > 0 && b <= c.LatencyBuckets[i-1]) {
			return fmt.Errorf("%w: latency_buckets must be positive and increasing", ErrInvalidConfig)
		}
	}
	for _, t := range c.Achievements {
		if t.Name == "" || t.Threshold <= 0 {
			return fmt.Errorf("%w: achievement %q needs a name and a positive threshold", ErrInvalidConfig, t.Name)
		}
	}
	return nil
}

// KeyPolicy parses AggregateKey.
func (c *Config) KeyPolicy() (earnings.KeyPolicy, error) {
	return earnings.ParseKeyPolicy(c.AggregateKey)
}

// StatusPolicy parses MissingStatus.
func (c *Config) StatusPolicy() (access.StatusPolicy, error) {
	return access.ParseStatusPolicy(c.MissingStatus)
}

// Override parses RoleOverride. A nil override means none.
func (c *Config) Override() (*access.Override, error) {
	return access.ParseOverride(c.RoleOverride)
}

// AchievementTable returns the configured table, or the default one.
func (c *Config) AchievementTable() achievement.Table {
	if len(c.Achievements) == 0 {
		return achievement.DefaultTable()
	}
	tiers := make([]achievement.Achievement, 0, len(c.Achievements))
	for _, t := range c.Achievements {
		tiers = append(tiers, achievement.Achievement{Threshold: decimal.NewFromFloat(t.Threshold), Tier: t.Name})
	}
	return achievement.NewTable(tiers...)
}
