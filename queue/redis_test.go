package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isdmx/buildbox/queue"
	"github.com/isdmx/buildbox/testutil"
)

func TestRedis_PushPopSize(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	q := queue.NewRedis(client, "")
	ctx := context.Background()

	require.NoError(t, q.Push(ctx, "dep-1"))
	require.NoError(t, q.Push(ctx, "dep-2"))

	size, err := q.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), size)

	// The list key is shared with producers outside this process.
	assert.Equal(t, int64(2), client.LLen(ctx, queue.DefaultKey).Val())

	id, ok, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "dep-1", id)

	id, ok, err = q.Pop(ctx, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "dep-2", id)
}

func TestRedis_PopTimeout(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	q := queue.NewRedis(client, "empty_queue")

	id, ok, err := q.Pop(context.Background(), time.Second)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, id)
}
