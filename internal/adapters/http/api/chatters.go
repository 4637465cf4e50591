package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/okian/chatrank/internal/domain/period"
)

// ChatterHandler handles per-chatter requests.
type ChatterHandler struct {
	deps ChatterDependencies
}

// NewChatterHandler creates a new chatter handler.
func NewChatterHandler(deps ChatterDependencies) *ChatterHandler {
	return &ChatterHandler{deps: deps}
}

// HandleGetTrajectory handles GET /api/chatters/{name}/trajectory?kind=&periods=.
// kind defaults to week and periods to 12.
func (h *ChatterHandler) HandleGetTrajectory(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	kind := period.Week
	if raw := r.URL.Query().Get("kind"); raw != "" {
		k, err := period.ParseKind(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
			return
		}
		kind = k
	}

	periods := 12
	if raw := r.URL.Query().Get("periods"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: periods must be a positive integer", ErrBadRequest))
			return
		}
		periods = n
	}

	points, err := h.deps.GetRankTrajectory(r.Context(), name, kind, periods)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

// HandleGetEarnings handles GET /api/chatters/{name}/earnings?timeframe=&month=&year=.
func (h *ChatterHandler) HandleGetEarnings(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	we, err := h.deps.GetWorkerEarnings(r.Context(), chi.URLParam(r, "name"), q)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, we)
}
