// Package service composes the earnings engine with storage and ingestion
// and serves the dashboard queries.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	eventqueue "github.com/okian/chatrank/internal/adapters/mq/queue"
	workerpool "github.com/okian/chatrank/internal/adapters/mq/worker"
	"github.com/okian/chatrank/internal/adapters/repository"
	"github.com/okian/chatrank/internal/domain/access"
	"github.com/okian/chatrank/internal/domain/achievement"
	"github.com/okian/chatrank/internal/domain/dedupe"
	"github.com/okian/chatrank/internal/domain/earnings"
	"github.com/okian/chatrank/internal/domain/model"
	"github.com/okian/chatrank/internal/domain/period"
	"github.com/okian/chatrank/internal/domain/ranking"
	"github.com/okian/chatrank/internal/domain/trajectory"
	"github.com/okian/chatrank/internal/domain/types"
	"github.com/okian/chatrank/pkg/logger"
	"github.com/okian/chatrank/pkg/metrics"
)

// Query selects the period and team of a leaderboard. Month, when set,
// takes precedence over Kind.
type Query struct {
	Kind   period.Kind
	TeamID string
	Month  *period.MonthYear
}

// Receipt reports the outcome of Record.
type Receipt struct {
	EventID   string
	Accepted  bool
	Duplicate bool
}

// Service serves leaderboards, trajectories and achievements computed
// fresh from the store on every call.
type Service struct {
	mu sync.RWMutex

	store        repository.Store
	aggregator   *earnings.Aggregator
	keyPolicy    earnings.KeyPolicy
	achievements achievement.Table

	leaderboardLimit int
	parallelism      int
	maxPeriods       int
	now              func() time.Time

	// Ingestion
	workerCount int
	queueSize   int
	dedupeSize  int
	deduper     dedupe.Deduper
	queue       *eventqueue.InMemoryQueue
	pool        *workerpool.Pool
	cancel      context.CancelFunc
	started     bool

	logger  logger.Logger
	metrics *metrics.Manager
}

// New constructs a Service. Without WithStore it keeps events in memory.
func New(opts ...Option) *Service {
	s := &Service{
		keyPolicy:        earnings.KeyByName,
		achievements:     achievement.DefaultTable(),
		leaderboardLimit: 10,
		parallelism:      4,
		maxPeriods:       52,
		now:              time.Now,
		workerCount:      runtime.NumCPU(),
		queueSize:        10_000,
		dedupeSize:       100_000,
		metrics:          metrics.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.aggregator = earnings.NewAggregator(earnings.WithKeyPolicy(s.keyPolicy))
	if s.keyPolicy == earnings.KeyByName {
		s.logger.Warn(context.Background(), "chatters are keyed by display name; distinct chatters sharing a name are merged",
			logger.String("recommended", "aggregate_key=id"))
	}
	return s
}

// Start launches the ingestion pipeline. Queries do not need it.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = eventqueue.NewInMemoryQueue(
		eventqueue.WithCapacity(s.queueSize),
		eventqueue.WithMetrics(s.metrics),
	)
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.store,
		workerpool.WithLogger(s.logger.Named("worker")),
		workerpool.WithMetrics(s.metrics),
	)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.pool.Start(runCtx)
	s.started = true

	s.logger.Info(ctx, "chatrank service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeSize),
		logger.String("aggregate_key", s.keyPolicy.String()),
	)
	return nil
}

// Stop drains the ingestion queue into the store, waiting at most until
// ctx is done. The store itself is left open.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	s.started = false

	err := s.pool.Shutdown(ctx)
	s.cancel()
	s.logger.Info(ctx, "chatrank service stopped")
	return err
}

// GetLeaderboard ranks every chatter of the selected period and team.
//
// A context without a principal yields the empty leaderboard rather than
// an error. A principal that is not approved, or asks for a team outside
// its scope, gets access.ErrForbidden.
func (s *Service) GetLeaderboard(ctx context.Context, q Query) (types.Leaderboard, error) {
	start := time.Now()
	principal, err := access.FromContext(ctx)
	if err != nil {
		s.logger.Debug(ctx, "leaderboard requested without identity")
		return types.EmptyLeaderboard(), nil
	}
	team, err := s.scope(principal, q.TeamID)
	if err != nil {
		return types.Leaderboard{}, err
	}

	p, err := period.ResolveSelector(period.Selector{Kind: q.Kind, Month: q.Month}, s.now())
	if err != nil {
		return types.Leaderboard{}, err
	}
	b, err := s.board(ctx, p, team)
	if err != nil {
		return types.Leaderboard{}, err
	}

	s.metrics.ObserveLeaderboard(p.Kind.String(), time.Since(start), b.Active)
	return types.NewLeaderboard(p, b, s.leaderboardLimit), nil
}

// GetRankTrajectory returns worker's rank over the last periodsBack periods
// of kind, oldest first. periodsBack is clamped to [1, max periods].
func (s *Service) GetRankTrajectory(ctx context.Context, worker string, kind period.Kind, periodsBack int) ([]types.RankPoint, error) {
	principal, err := access.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	team, err := s.scope(principal, "")
	if err != nil {
		return nil, err
	}

	n := min(max(periodsBack, 1), s.maxPeriods)
	if n != periodsBack {
		s.logger.Debug(ctx, "trajectory window clamped", logger.Int("requested", periodsBack), logger.Int("used", n))
	}

	start := time.Now()
	r := trajectory.New(trajectory.BoardsFunc(func(ctx context.Context, p period.Period) (ranking.Board, error) {
		return s.board(ctx, p, team)
	}), trajectory.WithParallelism(s.parallelism))

	points, err := r.Trajectory(ctx, worker, kind, n, s.now())
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveTrajectory(time.Since(start), n)
	return types.NewTrajectory(points), nil
}

// GetWorkerEarnings returns worker's total, rank and milestones for the
// selected period.
func (s *Service) GetWorkerEarnings(ctx context.Context, worker string, q Query) (types.WorkerEarnings, error) {
	principal, err := access.FromContext(ctx)
	if err != nil {
		return types.WorkerEarnings{}, err
	}
	team, err := s.scope(principal, q.TeamID)
	if err != nil {
		return types.WorkerEarnings{}, err
	}
	p, err := period.ResolveSelector(period.Selector{Kind: q.Kind, Month: q.Month}, s.now())
	if err != nil {
		return types.WorkerEarnings{}, err
	}
	b, err := s.board(ctx, p, team)
	if err != nil {
		return types.WorkerEarnings{}, err
	}

	total := decimal.Zero
	entry, lookupErr := b.Lookup(worker)
	if lookupErr == nil {
		total = entry.Earnings
	}
	view := s.Achievements(total)
	return types.WorkerEarnings{
		Name:          worker,
		Period:        p.Label,
		Earnings:      view.Earnings,
		Rank:          b.RankOrSentinel(worker),
		Ranked:        lookupErr == nil,
		Achievement:   view.Achievement,
		NextMilestone: view.NextMilestone,
	}, nil
}

// GetAchievement returns the highest tier reached by earnings.
func (s *Service) GetAchievement(amount decimal.Decimal) (achievement.Achievement, bool) {
	return s.achievements.Evaluate(amount)
}

// GetNextMilestone returns the next tier above earnings.
func (s *Service) GetNextMilestone(amount decimal.Decimal) (achievement.Achievement, bool) {
	return s.achievements.NextMilestone(amount)
}

// Achievements returns the badge view for an amount.
func (s *Service) Achievements(amount decimal.Decimal) types.Achievements {
	view := types.Achievements{
		Earnings:      amount.InexactFloat64(),
		NextMilestone: types.NewMilestone(s.GetNextMilestone(amount)),
	}
	if a, ok := s.GetAchievement(amount); ok {
		tier := a.Tier
		view.Achievement = &tier
	}
	return view
}

// Record queues an event for storage. Only approved admins, and managers
// for their own team, may record. A missing event id is generated.
// A full queue is reported as Accepted=false; the caller may retry.
func (s *Service) Record(ctx context.Context, e model.Event) (Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return Receipt{}, ErrNotStarted
	}

	principal, err := access.FromContext(ctx)
	if err != nil {
		return Receipt{}, err
	}
	if e.TeamID, err = principal.RecordTeam(e.TeamID); err != nil {
		return Receipt{}, err
	}

	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	receipt := Receipt{EventID: e.EventID}
	if err := e.Validate(); err != nil {
		return receipt, err
	}

	if s.deduper.SeenAndRecord(ctx, e.EventID) {
		s.metrics.RecordEventDuplicate()
		receipt.Accepted, receipt.Duplicate = true, true
		return receipt, nil
	}
	if !s.queue.Enqueue(ctx, e) {
		s.deduper.Unrecord(ctx, e.EventID)
		s.metrics.RecordEventRejected()
		s.logger.Warn(ctx, "ingestion queue full", logger.String("event_id", e.EventID))
		return receipt, nil
	}
	s.metrics.RecordEventIngested(e.Kind.String())
	receipt.Accepted = true
	return receipt, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":       s.started,
		"workerCount":   s.workerCount,
		"queueCapacity": s.queueSize,
		"dedupeSize":    s.dedupeSize,
		"aggregateKey":  s.keyPolicy.String(),
	}
	if n, err := s.store.Count(ctx); err == nil {
		stats["storedEvents"] = n
	} else {
		s.logger.Warn(ctx, "count stored events", logger.Error(err))
	}
	if s.started {
		stats["queueLength"] = s.queue.Len()
		stats["dedupeEntries"] = s.deduper.Size()
		stats["processed"] = s.pool.Processed()
		stats["failed"] = s.pool.Failed()
	}
	return stats
}

// scope returns the team filter for principal, refusing principals that
// may not view dashboard data.
func (s *Service) scope(p access.Principal, requested string) (string, error) {
	if !p.CanView() {
		return "", fmt.Errorf("%w: account is %s", access.ErrForbidden, p.Status)
	}
	return p.Scope(requested)
}

// board fetches the three record streams of p concurrently, then
// aggregates and ranks them. Any failed stream fails the board.
func (s *Service) board(ctx context.Context, p period.Period, team string) (ranking.Board, error) {
	var (
		sales   []model.Sale
		hours   []model.Hours
		bonuses []model.Bonus
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if sales, err = s.store.FetchSales(gctx, p, team); err != nil {
			s.metrics.RecordFetchError("sales")
			return fmt.Errorf("sales: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if hours, err = s.store.FetchHours(gctx, p, team); err != nil {
			s.metrics.RecordFetchError("hours")
			return fmt.Errorf("hours: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if bonuses, err = s.store.FetchBonuses(gctx, p.Start, team); err != nil {
			s.metrics.RecordFetchError("bonuses")
			return fmt.Errorf("bonuses: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return ranking.Board{}, err
		}
		s.logger.Error(ctx, "fetch failed", logger.String("period", p.Label), logger.String("team", team), logger.Error(err))
		return ranking.Board{}, fmt.Errorf("%w: %s: %w", ErrFetch, p.Label, err)
	}

	totals, coerced := s.aggregator.Aggregate(p, sales, hours, bonuses)
	for _, c := range coerced {
		s.metrics.RecordCoercion(c.Source, c.Field)
		s.logger.Warn(ctx, "malformed record counted as zero",
			logger.String("event_id", c.EventID),
			logger.String("chatter", c.Worker),
			logger.String("source", c.Source),
			logger.String("field", c.Field),
		)
	}
	return ranking.Rank(totals), nil
}
