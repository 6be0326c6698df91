package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/isdmx/buildbox/deployment"
)

// DefaultRedisPrefix namespaces deployment keys.
const DefaultRedisPrefix = "deployment:"

// Redis stores each deployment as a JSON string under prefix+id.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis creates a Redis repository. An empty prefix uses DefaultRedisPrefix.
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &Redis{client: client, prefix: prefix}
}

// Save writes d without expiry.
func (r *Redis) Save(ctx context.Context, d *deployment.Deployment) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode deployment %s: %w", d.ID, err)
	}
	if err := r.client.Set(ctx, r.prefix+d.ID, data, 0).Err(); err != nil {
		return fmt.Errorf("save deployment %s: %w", d.ID, err)
	}
	return nil
}

// FindByID loads the deployment with id.
func (r *Redis) FindByID(ctx context.Context, id string) (*deployment.Deployment, error) {
	data, err := r.client.Get(ctx, r.prefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, deployment.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find deployment %s: %w", id, err)
	}

	var d deployment.Deployment
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode deployment %s: %w", id, err)
	}
	return &d, nil
}
