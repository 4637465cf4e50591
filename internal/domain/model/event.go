// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Worker identifies a chatter. Name is the display name; ID is the stable
// identifier assigned by the account system.
type Worker struct {
	ID   string
	Name string
}

// Sale is a commissioned sale made by a worker.
type Sale struct {
	EventID        string
	TeamID         string
	Worker         Worker
	Date           time.Time
	Gross          float64
	CommissionRate float64 // fraction, e.g. 0.1 for 10%
}

// Hours records time worked at an hourly rate.
type Hours struct {
	EventID    string
	TeamID     string
	Worker     Worker
	Date       time.Time
	Hours      float64
	HourlyRate float64
}

// Bonus is a fixed amount attributed to the period starting at PeriodStart.
type Bonus struct {
	EventID     string
	TeamID      string
	Worker      Worker
	PeriodStart time.Time
	Amount      float64
}

// EventKind tags the variant carried by an Event.
type EventKind int

// Event kinds.
const (
	KindSale EventKind = iota + 1
	KindHours
	KindBonus
)

// String returns the wire name of the kind.
func (k EventKind) String() string {
	switch k {
	case KindSale:
		return "sale"
	case KindHours:
		return "hours"
	case KindBonus:
		return "bonus"
	default:
		return "unknown"
	}
}

// ParseEventKind parses "sale", "hours" or "bonus".
func ParseEventKind(s string) (EventKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sale", "sales":
		return KindSale, nil
	case "hours", "hour":
		return KindHours, nil
	case "bonus", "bonuses":
		return KindBonus, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownEventKind, s)
	}
}

// Event is the ingest envelope for any income record.
//
// Date is the sale or work date, or the period start for bonuses.
// Amount is the gross sale, hours worked, or bonus amount. Rate is the
// commission rate or hourly rate and is ignored for bonuses.
type Event struct {
	EventID string
	Kind    EventKind
	TeamID  string
	Worker  Worker
	Date    time.Time
	Amount  float64
	Rate    float64
}

// Validate rejects events that cannot be stored.
func (e Event) Validate() error {
	switch {
	case strings.TrimSpace(e.EventID) == "":
		return fmt.Errorf("%w: missing event id", ErrInvalidEvent)
	case strings.TrimSpace(e.Worker.Name) == "" && strings.TrimSpace(e.Worker.ID) == "":
		return fmt.Errorf("%w: missing worker", ErrInvalidEvent)
	case e.Date.IsZero():
		return fmt.Errorf("%w: missing date", ErrInvalidEvent)
	case !nonNegative(e.Amount):
		return fmt.Errorf("%w: amount must be a non-negative number", ErrInvalidEvent)
	case e.Kind != KindBonus && !nonNegative(e.Rate):
		return fmt.Errorf("%w: rate must be a non-negative number", ErrInvalidEvent)
	}
	switch e.Kind {
	case KindSale, KindHours, KindBonus:
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrUnknownEventKind, int(e.Kind))
	}
}

// Sale returns the event as a Sale. Only meaningful for KindSale.
func (e Event) Sale() Sale {
	return Sale{EventID: e.EventID, TeamID: e.TeamID, Worker: e.Worker, Date: e.Date, Gross: e.Amount, CommissionRate: e.Rate}
}

// Hours returns the event as an Hours record. Only meaningful for KindHours.
func (e Event) Hours() Hours {
	return Hours{EventID: e.EventID, TeamID: e.TeamID, Worker: e.Worker, Date: e.Date, Hours: e.Amount, HourlyRate: e.Rate}
}

// Bonus returns the event as a Bonus. Only meaningful for KindBonus.
func (e Event) Bonus() Bonus {
	return Bonus{EventID: e.EventID, TeamID: e.TeamID, Worker: e.Worker, PeriodStart: e.Date, Amount: e.Amount}
}

func nonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
