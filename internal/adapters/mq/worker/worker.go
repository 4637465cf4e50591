package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/chatrank/internal/domain/model"
	"github.com/okian/chatrank/pkg/logger"
	"github.com/okian/chatrank/pkg/metrics"
)

// Event is what workers read off the queue.
type Event = model.Event

// Recorder persists one event.
type Recorder interface {
	Record(ctx context.Context, e model.Event) error
}

// Queue is the consuming side of the ingestion queue.
type Queue interface {
	Dequeue() <-chan Event
}

// Worker consumes events until its queue is closed and drained.
type Worker interface {
	Run(ctx context.Context)
	// Done is closed when Run returns.
	Done() <-chan struct{}
}

// InMemoryWorker records events read from a Queue.
type InMemoryWorker struct {
	queue    Queue
	recorder Recorder
	name     string
	logger   logger.Logger
	metrics  *metrics.Manager

	processed *atomic.Int64
	failed    *atomic.Int64
	done      chan struct{}
}

var _ Worker = (*InMemoryWorker)(nil)

// NewInMemoryWorker creates a worker reading from q and writing to rec.
func NewInMemoryWorker(q Queue, rec Recorder, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		recorder:  rec,
		name:      "worker",
		metrics:   metrics.Default(),
		processed: new(atomic.Int64),
		failed:    new(atomic.Int64),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run records events until the queue channel closes or ctx is done.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := w.process(ctx, e); err != nil {
				w.logger.Error(ctx, "record failed",
					logger.String("event_id", e.EventID),
					logger.String("kind", e.Kind.String()),
					logger.Error(err),
				)
			}
		}
	}
}

func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

func (w *InMemoryWorker) process(ctx context.Context, e Event) error { //nolint:gocritic // hugeParam: events travel by value
	start := time.Now()
	err := w.recorder.Record(ctx, e)
	w.metrics.ObserveRecord(time.Since(start), err)
	if err != nil {
		w.failed.Add(1)
		return fmt.Errorf("record event %s: %w", e.EventID, err)
	}
	w.processed.Add(1)
	return nil
}

// Pool runs a fixed number of workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
	metrics *metrics.Manager

	processed atomic.Int64
	failed    atomic.Int64
	started   atomic.Bool
}

// NewPool creates workerCount workers (at least one). opts apply to every
// worker; each gets its own name.
func NewPool(workerCount int, q Queue, rec Recorder, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
	}
	for i := range p.workers {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		w := NewInMemoryWorker(q, rec, wopts...)
		w.processed, w.failed = &p.processed, &p.failed
		p.workers[i] = w
	}
	p.logger = p.workers[0].logger
	p.metrics = p.workers[0].metrics
	return p
}

// Start launches every worker. Calling Start twice is a no-op.
func (p *Pool) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	p.metrics.UpdateWorkerCount(len(p.workers))
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Shutdown closes the queue and waits for the workers to drain it, or for
// ctx to expire.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	if !p.started.Load() {
		return nil
	}
	defer p.metrics.UpdateWorkerCount(0)

	for i, w := range p.workers {
		select {
		case <-w.Done():
		case <-ctx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("shutdown timed out: %w", ctx.Err())
		}
	}
	p.logger.Info(ctx, "worker pool stopped",
		logger.Int64("processed", p.processed.Load()),
		logger.Int64("failed", p.failed.Load()),
	)
	return nil
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed returns how many events were recorded.
func (p *Pool) Processed() int64 { return p.processed.Load() }

// Failed returns how many events the recorder rejected.
func (p *Pool) Failed() int64 { return p.failed.Load() }
