package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/chatrank/internal/domain/model"
	"github.com/okian/chatrank/internal/domain/period"
)

// MemoryStore keeps events in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	ids     map[string]struct{}
	sales   []model.Sale
	hours   []model.Hours
	bonuses []model.Bonus
	closed  bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ids: make(map[string]struct{})}
}

func (s *MemoryStore) Record(ctx context.Context, e model.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, dup := s.ids[e.EventID]; dup {
		return nil
	}
	s.ids[e.EventID] = struct{}{}

	switch e.Kind {
	case model.KindSale:
		s.sales = append(s.sales, e.Sale())
	case model.KindHours:
		s.hours = append(s.hours, e.Hours())
	case model.KindBonus:
		s.bonuses = append(s.bonuses, e.Bonus())
	}
	return nil
}

func (s *MemoryStore) FetchSales(ctx context.Context, p period.Period, teamID string) ([]model.Sale, error) {
	if err := s.readable(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Sale
	for _, r := range s.sales {
		if p.Contains(r.Date) && inTeam(r.TeamID, teamID) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemoryStore) FetchHours(ctx context.Context, p period.Period, teamID string) ([]model.Hours, error) {
	if err := s.readable(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Hours
	for _, r := range s.hours {
		if p.Contains(r.Date) && inTeam(r.TeamID, teamID) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemoryStore) FetchBonuses(ctx context.Context, periodStart time.Time, teamID string) ([]model.Bonus, error) {
	if err := s.readable(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := period.Day(periodStart)
	var out []model.Bonus
	for _, r := range s.bonuses {
		if period.Day(r.PeriodStart).Equal(start) && inTeam(r.TeamID, teamID) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	if err := s.readable(ctx); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids), nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) readable(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

func inTeam(recordTeam, scope string) bool {
	return scope == "" || recordTeam == scope
}
