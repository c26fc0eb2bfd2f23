// Package queue provides the bounded change-notification queue between the
// sync subscription and the coordinator loop.
//
// Dropping a notification under pressure is safe by construction: the
// coordinator re-derives everything from a fresh snapshot, so any later
// notification for the room heals the gap. The queue therefore sheds load
// instead of ever blocking the bus.
package queue

import (
	"context"
	"sync"

	syncapi "github.com/okian/mouton/internal/adapters/sync"
	"github.com/okian/mouton/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultCapacity = 1024
)

// Change is the payload type flowing through the queue.
type Change = syncapi.Change

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a change notification.
	// Returns false if the queue is full or closed and the change was shed.
	Enqueue(ctx context.Context, c Change) bool

	// Dequeue returns a channel that receives changes as they arrive.
	// The channel is closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Change

	// Len returns the current number of queued changes.
	Len(ctx context.Context) int

	// Close shuts the queue down; no further enqueues are accepted.
	Close() error
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	changes chan Change

	mu     sync.RWMutex
	closed bool
}

var _ Queue = (*InMemoryQueue)(nil)

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{}

	cfg := queueConfig{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(&cfg)
	}

	q.changes = make(chan Change, cfg.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds a change notification, shedding it when full.
func (q *InMemoryQueue) Enqueue(ctx context.Context, c Change) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueDrop()
		return false
	}

	select {
	case q.changes <- c:
		metrics.UpdateQueueSize(len(q.changes))
		return true
	case <-ctx.Done():
		metrics.RecordQueueDrop()
		return false
	default:
		metrics.RecordQueueDrop()
		return false
	}
}

// Dequeue returns a channel that receives changes as they arrive.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Change {
	out := make(chan Change)
	go func() {
		defer close(out)
		for c := range q.changes {
			select {
			case out <- c:
				metrics.UpdateQueueSize(len(q.changes))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued changes.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return len(q.changes)
}

// Close shuts the queue down.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.changes)
	q.closed = true
	return nil
}
