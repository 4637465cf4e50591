package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/okian/chatrank/internal/domain/model"
	"github.com/okian/chatrank/internal/domain/period"
)

// EventsHandler handles event requests.
type EventsHandler struct {
	deps EventDependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// eventRequest is the body of POST /api/events. Date is YYYY-MM-DD or
// RFC3339; for bonuses it is the start of the period the bonus belongs to.
type eventRequest struct {
	EventID    string  `json:"event_id"`
	Kind       string  `json:"kind"`
	TeamID     string  `json:"team_id"`
	WorkerID   string  `json:"worker_id"`
	WorkerName string  `json:"worker_name"`
	Date       string  `json:"date"`
	Amount     float64 `json:"amount"`
	Rate       float64 `json:"rate"`
}

func (e eventRequest) event() (model.Event, error) {
	kind, err := model.ParseEventKind(e.Kind)
	if err != nil {
		return model.Event{}, err
	}
	if strings.TrimSpace(e.Date) == "" {
		return model.Event{}, errors.New("missing date")
	}
	date, err := parseDate(e.Date)
	if err != nil {
		return model.Event{}, err
	}
	return model.Event{
		EventID: strings.TrimSpace(e.EventID),
		Kind:    kind,
		TeamID:  strings.TrimSpace(e.TeamID),
		Worker:  model.Worker{ID: strings.TrimSpace(e.WorkerID), Name: strings.TrimSpace(e.WorkerName)},
		Date:    date,
		Amount:  e.Amount,
		Rate:    e.Rate,
	}, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return period.ParseDate(s)
}

type ackResponse struct {
	EventID   string `json:"event_id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// HandlePostEvent handles POST /api/events requests.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	e, err := req.event()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}

	receipt, err := h.deps.Record(r.Context(), e)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	switch {
	case receipt.Duplicate:
		writeJSON(w, http.StatusOK, ackResponse{EventID: receipt.EventID, Status: "duplicate", Duplicate: true})
	case !receipt.Accepted:
		writeError(w, http.StatusTooManyRequests, "backpressure", ErrBackpressure)
	default:
		writeJSON(w, http.StatusAccepted, ackResponse{EventID: receipt.EventID, Status: "accepted"})
	}
}
