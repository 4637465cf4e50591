package api

import (
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

// AchievementHandler evaluates badges for an earnings amount.
type AchievementHandler struct {
	deps AchievementDependencies
}

// NewAchievementHandler creates a new achievement handler.
func NewAchievementHandler(deps AchievementDependencies) *AchievementHandler {
	return &AchievementHandler{deps: deps}
}

// HandleGetAchievements handles GET /api/achievements?earnings=.
func (h *AchievementHandler) HandleGetAchievements(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("earnings")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: missing earnings", ErrBadRequest))
		return
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: earnings %q is not a number", ErrBadRequest, raw))
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Achievements(amount))
}
