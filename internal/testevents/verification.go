package testevents

import (
	"errors"
	"fmt"

	"github.com/okian/chatrank/internal/domain/earnings"
	"github.com/okian/chatrank/internal/domain/model"
	"github.com/okian/chatrank/internal/domain/ranking"
	"github.com/okian/chatrank/internal/domain/types"
)

// ErrMismatch reports a served leaderboard that differs from the expected one.
var ErrMismatch = errors.New("leaderboard mismatch")

// Expected computes the leaderboard the server should serve for events,
// counting each event id once and keeping limit rows.
func Expected(cfg Config, events []Event, limit int) (types.Leaderboard, error) {
	p, err := monthOf(cfg)
	if err != nil {
		return types.Leaderboard{}, err
	}

	var (
		seen    = make(map[string]struct{}, len(events))
		sales   []model.Sale
		hours   []model.Hours
		bonuses []model.Bonus
	)
	for _, e := range events {
		if _, dup := seen[e.EventID]; dup {
			continue
		}
		seen[e.EventID] = struct{}{}

		m, err := e.ToModel()
		if err != nil {
			return types.Leaderboard{}, fmt.Errorf("event %s: %w", e.EventID, err)
		}
		switch m.Kind {
		case model.KindSale:
			sales = append(sales, m.Sale())
		case model.KindHours:
			hours = append(hours, m.Hours())
		case model.KindBonus:
			bonuses = append(bonuses, m.Bonus())
		}
	}

	totals := earnings.Aggregate(p, sales, hours, bonuses)
	return types.NewLeaderboard(p, ranking.Rank(totals), limit), nil
}

// verifyLeaderboard checks the served leaderboard row by row.
func verifyLeaderboard(want, got types.Leaderboard) error {
	switch {
	case got.Period != want.Period:
		return fmt.Errorf("%w: period %q, want %q", ErrMismatch, got.Period, want.Period)
	case got.ActiveChatters != want.ActiveChatters:
		return fmt.Errorf("%w: %d active chatters, want %d", ErrMismatch, got.ActiveChatters, want.ActiveChatters)
	case got.TotalSales != want.TotalSales:
		return fmt.Errorf("%w: total %.2f, want %.2f", ErrMismatch, got.TotalSales, want.TotalSales)
	case got.AvgPerChatter != want.AvgPerChatter:
		return fmt.Errorf("%w: average %.2f, want %.2f", ErrMismatch, got.AvgPerChatter, want.AvgPerChatter)
	case len(got.TopChatters) != len(want.TopChatters):
		return fmt.Errorf("%w: %d rows, want %d", ErrMismatch, len(got.TopChatters), len(want.TopChatters))
	}
	for i := range want.TopChatters {
		if got.TopChatters[i] != want.TopChatters[i] {
			return fmt.Errorf("%w: row %d is %+v, want %+v", ErrMismatch, i+1, got.TopChatters[i], want.TopChatters[i])
		}
	}
	return nil
}
