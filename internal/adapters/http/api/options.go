package api

import (
	"github.com/okian/chatrank/internal/domain/access"
	"github.com/okian/chatrank/pkg/logger"
	"github.com/okian/chatrank/pkg/metrics"
)

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithMetrics sets the metrics manager recording requests and serving
// /metrics.
func WithMetrics(m *metrics.Manager) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithIdentity sets how callers are identified from request headers.
func WithIdentity(policy access.StatusPolicy, override *access.Override) Option {
	return func(s *Server) {
		s.identity = NewIdentity(policy, override)
	}
}

// WithCORSOrigins sets the allowed browser origins.
func WithCORSOrigins(origins ...string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.corsOrigins = origins
		}
	}
}
