// Package repository persists income events and serves them per period.
package repository

import (
	"context"
	"time"

	"github.com/okian/chatrank/internal/domain/model"
	"github.com/okian/chatrank/internal/domain/period"
)

// MemoryPath selects the in-process store in Open.
const MemoryPath = ":memory:"

// Source returns the income records of one period. An empty teamID means
// every team.
type Source interface {
	// FetchSales returns sales dated within [p.Start, p.End].
	FetchSales(ctx context.Context, p period.Period, teamID string) ([]model.Sale, error)
	// FetchHours returns hours dated within [p.Start, p.End].
	FetchHours(ctx context.Context, p period.Period, teamID string) ([]model.Hours, error)
	// FetchBonuses returns bonuses attributed to the period starting at
	// periodStart.
	FetchBonuses(ctx context.Context, periodStart time.Time, teamID string) ([]model.Bonus, error)
}

// Recorder stores a single event. Recording an event id twice keeps the
// first copy.
type Recorder interface {
	Record(ctx context.Context, e model.Event) error
}

// Store is a Source that can also be written to.
type Store interface {
	Source
	Recorder

	// Count returns the number of stored events.
	Count(ctx context.Context) (int, error)
	Close() error
}

// Open returns a MemoryStore for MemoryPath and a SQLiteStore otherwise.
func Open(path string, opts ...Option) (Store, error) {
	if path == MemoryPath {
		return NewMemoryStore(), nil
	}
	return NewSQLiteStore(path, opts...)
}
