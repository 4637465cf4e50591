package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	service "github.com/okian/chatrank/internal/app"
	"github.com/okian/chatrank/internal/domain/period"
)

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps LeaderboardDependencies
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps}
}

// HandleGetLeaderboard handles GET /api/leaderboard?timeframe=&team=&month=&year=.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	lb, err := h.deps.GetLeaderboard(r.Context(), q)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

// parseQuery reads timeframe (default week), team, and an optional
// month/year pair that must be given together.
func parseQuery(v url.Values) (service.Query, error) {
	q := service.Query{Kind: period.Week, TeamID: strings.TrimSpace(v.Get("team"))}
	if tf := v.Get("timeframe"); tf != "" {
		k, err := period.ParseKind(tf)
		if err != nil {
			return service.Query{}, fmt.Errorf("%w: %w", ErrBadRequest, err)
		}
		q.Kind = k
	}

	month, year := v.Get("month"), v.Get("year")
	switch {
	case month == "" && year == "":
		return q, nil
	case month == "" || year == "":
		return service.Query{}, fmt.Errorf("%w: month and year must be given together", ErrBadRequest)
	}
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return service.Query{}, fmt.Errorf("%w: month must be 1-12", ErrBadRequest)
	}
	y, err := strconv.Atoi(year)
	if err != nil || y < 1 {
		return service.Query{}, fmt.Errorf("%w: invalid year %q", ErrBadRequest, year)
	}
	q.Month = &period.MonthYear{Month: time.Month(m), Year: y}
	return q, nil
}
