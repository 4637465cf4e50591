// Package trajectory reconstructs a chatter's rank across consecutive
// historical periods.
package trajectory

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/chatrank/internal/domain/period"
	"github.com/okian/chatrank/internal/domain/ranking"
	"golang.org/x/sync/errgroup"
)

const defaultParallelism = 4

// Point is the rank of one chatter in one period.
type Point struct {
	Period period.Period
	Rank   int
	// Active is the number of ranked chatters in the period.
	Active int
	// Ranked is false when the chatter had no earnings and Rank is the
	// Active+1 sentinel.
	Ranked bool
}

// Boards computes a fresh leaderboard for a period.
type Boards interface {
	Board(ctx context.Context, p period.Period) (ranking.Board, error)
}

// BoardsFunc adapts a function to Boards.
type BoardsFunc func(ctx context.Context, p period.Period) (ranking.Board, error)

// Board calls f.
func (f BoardsFunc) Board(ctx context.Context, p period.Period) (ranking.Board, error) {
	return f(ctx, p)
}

// Reconstructor recomputes one board per period and extracts a chatter's
// rank from each. Nothing is cached between periods.
type Reconstructor struct {
	boards      Boards
	parallelism int
}

// Option applies a configuration option to the Reconstructor.
type Option func(*Reconstructor)

// WithParallelism bounds how many periods are computed concurrently.
func WithParallelism(n int) Option {
	return func(r *Reconstructor) {
		if n > 0 {
			r.parallelism = n
		}
	}
}

// New creates a Reconstructor over boards.
func New(boards Boards, opts ...Option) *Reconstructor {
	r := &Reconstructor{
		boards:      boards,
		parallelism: defaultParallelism,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Trajectory returns exactly periodsBack points ordered oldest to newest,
// the last being the period of the given kind containing ref.
//
// A chatter absent from a period's board is reported at Active+1. Any
// failing period fails the whole trajectory and cancels the periods still
// in flight.
func (r *Reconstructor) Trajectory(ctx context.Context, worker string, kind period.Kind, periodsBack int, ref time.Time) ([]Point, error) {
	if periodsBack < 0 {
		return nil, fmt.Errorf("%w: %d periods", ErrInvalidWindow, periodsBack)
	}

	periods := make([]period.Period, periodsBack)
	for slot := range periods {
		p, err := period.Resolve(kind, periodsBack-1-slot, ref)
		if err != nil {
			return nil, err
		}
		periods[slot] = p
	}

	points := make([]Point, periodsBack)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)
	for slot, p := range periods {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			board, err := r.boards.Board(gctx, p)
			if err != nil {
				return fmt.Errorf("period %s: %w", p.Label, err)
			}
			rank, ranked := board.RankOf(worker)
			if !ranked {
				rank = board.Active + 1
			}
			points[slot] = Point{Period: p, Rank: rank, Active: board.Active, Ranked: ranked}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return points, nil
}
