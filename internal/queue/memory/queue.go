// Package memory provides an unbounded in-memory FIFO for pending crawl
// requests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrClosed is returned once the queue is closed and drained.
var ErrClosed = errors.New("queue closed")

// Queue is an unbounded FIFO with context-aware Dequeue. Enqueue never
// blocks, so handlers can add work from inside a worker.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	notify chan struct{}
	closed bool
}

// NewQueue constructs an empty queue.
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{notify: make(chan struct{}, 1)}
}

// Enqueue appends items.
func (q *Queue[T]) Enqueue(items ...T) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	q.items = append(q.items, items...)
	q.signal()
	return nil
}

// Dequeue pops the oldest item, waiting until one arrives, the queue is
// closed, or ctx ends.
func (q *Queue[T]) Dequeue(ctx context.Context) (T, error) {
	var zero T
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			item := q.items[0]
			q.items[0] = zero
			q.items = q.items[1:]
			if len(q.items) > 0 {
				q.signal()
			}
			q.mu.Unlock()
			return item, nil
		}
		if q.closed {
			q.mu.Unlock()
			return zero, ErrClosed
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("dequeue canceled: %w", ctx.Err())
		case <-q.notify:
		}
	}
}

// Len reports the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops accepting items. Queued items can still be dequeued.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.notify)
}

// signal wakes one waiter. Callers hold q.mu.
func (q *Queue[T]) signal() {
	if q.closed {
		return
	}
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
