package service

import (
	"time"

	"github.com/okian/chatrank/internal/adapters/repository"
	"github.com/okian/chatrank/internal/domain/achievement"
	"github.com/okian/chatrank/internal/domain/earnings"
	"github.com/okian/chatrank/pkg/logger"
	"github.com/okian/chatrank/pkg/metrics"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the event store. Queries read from it and ingestion
// writes to it.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics manager.
func WithMetrics(m *metrics.Manager) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithKeyPolicy selects whether chatters are keyed by name or id.
func WithKeyPolicy(p earnings.KeyPolicy) Option {
	return func(s *Service) {
		s.keyPolicy = p
	}
}

// WithAchievementTable replaces the default milestone table.
func WithAchievementTable(t achievement.Table) Option {
	return func(s *Service) {
		s.achievements = t
	}
}

// WithLeaderboardLimit caps the rows of a leaderboard.
func WithLeaderboardLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.leaderboardLimit = n
		}
	}
}

// WithParallelism bounds concurrent period computations of a trajectory.
func WithParallelism(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.parallelism = n
		}
	}
}

// WithMaxTrajectoryPeriods caps how far back a trajectory may reach.
func WithMaxTrajectoryPeriods(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxPeriods = n
		}
	}
}

// WithClock sets the source of the reference date.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithWorkerCount sets the number of ingestion workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the ingestion queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize bounds the event id cache. Zero keeps every id.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size >= 0 {
			s.dedupeSize = size
		}
	}
}
