// Package queue hands messages from network goroutines to a single
// reconciliation loop.
package queue

import (
	"context"
	"errors"
	"sync"
)

var ErrClosed = errors.New("queue closed")

// MessageQueue is a FIFO safe for many producers and one or more consumers.
// With capacity 0 it is unbounded and Post never blocks.
type MessageQueue[T any] struct {
	items    []T
	capacity int
	closed   bool
	mu       sync.Mutex
	ready    chan struct{} // signalled when an item is added or the queue closes
	space    chan struct{} // signalled when an item is removed
}

func New[T any](capacity int) *MessageQueue[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &MessageQueue[T]{
		capacity: capacity,
		ready:    make(chan struct{}, 1),
		space:    make(chan struct{}, 1),
	}
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Post appends v. On a bounded queue it waits for room or for ctx.
func (q *MessageQueue[T]) Post(ctx context.Context, v T) error {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			signal(q.space)
			return ErrClosed
		}
		if q.capacity == 0 || len(q.items) < q.capacity {
			q.items = append(q.items, v)
			room := q.capacity > 0 && len(q.items) < q.capacity
			q.mu.Unlock()
			signal(q.ready)
			if room {
				signal(q.space)
			}
			return nil
		}
		q.mu.Unlock()

		select {
		case <-q.space:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Take removes and returns the oldest item, waiting until one is available.
// Items posted before Close are still delivered; after that Take reports
// ErrClosed.
func (q *MessageQueue[T]) Take(ctx context.Context) (T, error) {
	var zero T
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			v := q.items[0]
			q.items[0] = zero
			q.items = q.items[1:]
			more := len(q.items) > 0
			q.mu.Unlock()
			signal(q.space)
			if more {
				signal(q.ready)
			}
			return v, nil
		}
		if q.closed {
			q.mu.Unlock()
			signal(q.ready)
			return zero, ErrClosed
		}
		q.mu.Unlock()

		select {
		case <-q.ready:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

func (q *MessageQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *MessageQueue[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	signal(q.ready)
	signal(q.space)
}
