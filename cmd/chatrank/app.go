package main

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/okian/chatrank/internal/adapters/http/api"
	"github.com/okian/chatrank/internal/adapters/repository"
	service "github.com/okian/chatrank/internal/app"
	"github.com/okian/chatrank/internal/config"
	"github.com/okian/chatrank/pkg/logger"
	"github.com/okian/chatrank/pkg/metrics"
)

// app holds the components built from configuration.
type app struct {
	cfg     *config.Config
	log     logger.Logger
	metrics *metrics.Manager
	store   repository.Store
	svc     *service.Service
}

// loadConfig reads configuration from path, or $CHATRANK_CONFIG when path
// is empty.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFile(path)
}

// newApp initializes logging and builds the store and service. logOut
// receives log output.
func newApp(g globalFlags, logOut io.Writer) (*app, error) {
	cfg, err := loadConfig(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithWriter(logOut)); err != nil {
		return nil, fmt.Errorf("initialize logging: %w", err)
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(context.Background(), "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	keyPolicy, err := cfg.KeyPolicy()
	if err != nil {
		return nil, err
	}

	m := metrics.NewManager(
		metrics.WithSubsystem(cfg.MetricsSubsystem),
		metrics.WithHistogramBuckets(cfg.LatencyBuckets),
	)
	_ = m.Register(collectors.NewGoCollector())
	_ = m.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	store, err := repository.Open(cfg.DBPath,
		repository.WithLogger(log.Named("store")),
		repository.WithMetrics(m),
	)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", cfg.DBPath, err)
	}

	svc := service.New(
		service.WithStore(store),
		service.WithLogger(log.Named("service")),
		service.WithMetrics(m),
		service.WithKeyPolicy(keyPolicy),
		service.WithAchievementTable(cfg.AchievementTable()),
		service.WithLeaderboardLimit(cfg.LeaderboardLimit),
		service.WithParallelism(cfg.TrajectoryParallelism),
		service.WithMaxTrajectoryPeriods(cfg.MaxTrajectoryPeriods),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.EventQueueSize),
		service.WithDedupeSize(cfg.DedupeSize),
	)

	return &app{cfg: cfg, log: log, metrics: m, store: store, svc: svc}, nil
}

// apiServer builds the HTTP API over the service.
func (a *app) apiServer() (*api.Server, error) {
	policy, err := a.cfg.StatusPolicy()
	if err != nil {
		return nil, err
	}
	override, err := a.cfg.Override()
	if err != nil {
		return nil, err
	}
	if override != nil {
		a.log.Warn(context.Background(), "role override active; every caller is treated as this role",
			logger.String("role", override.Role.String()))
	}
	return api.NewServer(a.svc,
		api.WithLogger(a.log.Named("http")),
		api.WithMetrics(a.metrics),
		api.WithIdentity(policy, override),
		api.WithCORSOrigins(a.cfg.CORSOrigins...),
	), nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.log.Error(context.Background(), "close store", logger.Error(err))
	}
	_ = logger.Sync()
}
