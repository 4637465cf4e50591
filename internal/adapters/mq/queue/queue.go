package queue

import (
	"context"
	"sync"

	"github.com/okian/chatrank/internal/domain/model"
	"github.com/okian/chatrank/pkg/metrics"
)

const defaultQueueCapacity = 10_000

// Event is the payload flowing through the queue.
type Event = model.Event

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds an event. It returns false when the queue is full or
	// closed, or ctx is done.
	Enqueue(ctx context.Context, e Event) bool
	// Dequeue returns the channel consumers read from. It is closed once the
	// queue is closed and drained.
	Dequeue() <-chan Event
	// Len returns the number of buffered events.
	Len() int
	// Cap returns the queue capacity.
	Cap() int
	// Close stops accepting events. Buffered events stay readable.
	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue with a buffered channel.
type InMemoryQueue struct {
	events   chan Event
	capacity int
	metrics  *metrics.Manager

	mu     sync.RWMutex
	closed bool
}

var _ Queue = (*InMemoryQueue)(nil)

// NewInMemoryQueue creates a bounded queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
		metrics:  metrics.Default(),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.events = make(chan Event, q.capacity)
	q.metrics.UpdateQueue(0, q.capacity)
	return q
}

func (q *InMemoryQueue) Enqueue(ctx context.Context, e Event) bool { //nolint:gocritic // hugeParam: passed by value into the channel
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed || ctx.Err() != nil {
		return false
	}

	select {
	case q.events <- e:
		q.metrics.UpdateQueue(len(q.events), q.capacity)
		return true
	default:
		return false
	}
}

func (q *InMemoryQueue) Dequeue() <-chan Event {
	return q.events
}

func (q *InMemoryQueue) Len() int {
	n := len(q.events)
	q.metrics.UpdateQueue(n, q.capacity)
	return n
}

func (q *InMemoryQueue) Cap() int { return q.capacity }

func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.events)
	q.closed = true
	return nil
}

func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
