// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/shopspring/decimal"

	"github.com/okian/chatrank/internal/adapters/http/swagger"
	service "github.com/okian/chatrank/internal/app"
	"github.com/okian/chatrank/internal/domain/access"
	"github.com/okian/chatrank/internal/domain/model"
	"github.com/okian/chatrank/internal/domain/period"
	"github.com/okian/chatrank/internal/domain/types"
	"github.com/okian/chatrank/pkg/logger"
	"github.com/okian/chatrank/pkg/metrics"
)

// Dependencies required by HTTP handlers. *service.Service satisfies it.
type Dependencies interface {
	LeaderboardDependencies
	ChatterDependencies
	AchievementDependencies
	EventDependencies
	StatsProvider
}

// LeaderboardDependencies serves leaderboard queries.
type LeaderboardDependencies interface {
	GetLeaderboard(ctx context.Context, q service.Query) (types.Leaderboard, error)
}

// ChatterDependencies serves per-chatter queries.
type ChatterDependencies interface {
	GetRankTrajectory(ctx context.Context, worker string, kind period.Kind, periodsBack int) ([]types.RankPoint, error)
	GetWorkerEarnings(ctx context.Context, worker string, q service.Query) (types.WorkerEarnings, error)
}

// AchievementDependencies evaluates milestones.
type AchievementDependencies interface {
	Achievements(amount decimal.Decimal) types.Achievements
}

// EventDependencies records ingested events.
type EventDependencies interface {
	Record(ctx context.Context, e model.Event) (service.Receipt, error)
}

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats(ctx context.Context) map[string]any
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	eventsHandler      *EventsHandler
	leaderboardHandler *LeaderboardHandler
	chatterHandler     *ChatterHandler
	achievementHandler *AchievementHandler

	identity    *Identity
	corsOrigins []string
	logger      logger.Logger
	metrics     *metrics.Manager
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(deps),
		eventsHandler:      NewEventsHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps),
		chatterHandler:     NewChatterHandler(deps),
		achievementHandler: NewAchievementHandler(deps),
		identity:           NewIdentity(access.DefaultApproved, nil),
		corsOrigins:        []string{"*"},
		metrics:            metrics.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("http")
	}
	return s
}

// Router returns the routed handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", headerUserID, headerUserName, headerUserRole, headerUserStatus, headerTeamID},
		MaxAge:         300,
	}))
	r.Use(s.observe)

	r.Get("/healthz", s.healthHandler.HandleHealth)
	r.Get("/stats", s.statsHandler.HandleStats)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	swagger.Register(r)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.identity.Middleware)
		r.Get("/leaderboard", s.leaderboardHandler.HandleGetLeaderboard)
		r.Get("/chatters/{name}/trajectory", s.chatterHandler.HandleGetTrajectory)
		r.Get("/chatters/{name}/earnings", s.chatterHandler.HandleGetEarnings)
		r.Get("/achievements", s.achievementHandler.HandleGetAchievements)
		r.Post("/events", s.eventsHandler.HandlePostEvent)
	})
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps a service error onto a status and error code.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, access.ErrNoPrincipal):
		writeError(w, http.StatusUnauthorized, "unauthenticated", err)
	case errors.Is(err, access.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err)
	case errors.Is(err, access.ErrUnknownRole),
		errors.Is(err, period.ErrUnknownKind),
		errors.Is(err, period.ErrInvalidMonth),
		errors.Is(err, model.ErrInvalidEvent),
		errors.Is(err, model.ErrUnknownEventKind),
		errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, service.ErrFetch):
		writeError(w, http.StatusInternalServerError, "fetch_failed", err)
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "not_started", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "canceled", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
