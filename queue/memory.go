package queue

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Queue for single-node runs and tests.
type Memory struct {
	mu     sync.Mutex
	items  []string
	signal chan struct{}
}

// NewMemory creates an empty in-process queue.
func NewMemory() *Memory {
	return &Memory{signal: make(chan struct{}, 1)}
}

// Push appends id.
func (q *Memory) Push(_ context.Context, id string) error {
	q.mu.Lock()
	q.items = append(q.items, id)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return nil
}

// Pop removes the oldest id, waiting up to timeout for one to arrive.
func (q *Memory) Pop(ctx context.Context, timeout time.Duration) (string, bool, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		if id, ok := q.take(); ok {
			return id, true, nil
		}
		select {
		case <-q.signal:
		case <-timer.C:
			return "", false, nil
		case <-ctx.Done():
			return "", false, ctx.Err()
		}
	}
}

// Size returns the number of pending ids.
func (q *Memory) Size(context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.items)), nil
}

func (q *Memory) take() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return "", false
	}
	id := q.items[0]
	q.items = q.items[1:]
	if len(q.items) > 0 {
		// Wake another waiter for the remainder.
		select {
		case q.signal <- struct{}{}:
		default:
		}
	}
	return id, true
}
