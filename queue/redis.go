package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Queue on a Redis list: RPUSH to enqueue, BLPOP to dequeue.
type Redis struct {
	client redis.UniversalClient
	key    string
}

// NewRedis creates a Redis queue on key, or DefaultKey when key is empty.
func NewRedis(client redis.UniversalClient, key string) *Redis {
	if key == "" {
		key = DefaultKey
	}
	return &Redis{client: client, key: key}
}

// Push appends id to the tail of the list.
func (q *Redis) Push(ctx context.Context, id string) error {
	if err := q.client.RPush(ctx, q.key, id).Err(); err != nil {
		return fmt.Errorf("push %s: %w", id, err)
	}
	return nil
}

// Pop removes the head of the list, waiting up to timeout.
func (q *Redis) Pop(ctx context.Context, timeout time.Duration) (string, bool, error) {
	res, err := q.client.BLPop(ctx, timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("pop: %w", err)
	}
	// BLPOP replies with [key, value].
	if len(res) != 2 {
		return "", false, fmt.Errorf("pop: unexpected reply length %d", len(res))
	}
	return res[1], true, nil
}

// Size returns the list length.
func (q *Redis) Size(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("size: %w", err)
	}
	return n, nil
}
