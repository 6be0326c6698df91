// Package queue holds pending build job ids.
//
// A queue entry is only a deployment id; the worker loads the rest from the
// repository. Pop removes atomically, so at most one consumer receives a
// given id. There is no acknowledgment: an id popped by a worker that then
// crashes is gone.
package queue

import (
	"context"
	"time"
)

// DefaultKey is the Redis list holding pending ids.
const DefaultKey = "build_queue"

// Queue is a FIFO of deployment ids.
type Queue interface {
	Push(ctx context.Context, id string) error
	// Pop blocks up to timeout for an id. ok is false when none arrived;
	// that is not an error.
	Pop(ctx context.Context, timeout time.Duration) (id string, ok bool, err error)
	Size(ctx context.Context) (int64, error)
}
