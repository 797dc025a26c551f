package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher(t *testing.T) (*RedisDispatcher, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisDispatcher(rdb, "test:jobs:ready", "test:jobs:delayed"), rdb
}

func TestRedisDispatcher_EnqueueThenPop(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()

	require.NoError(t, d.Enqueue(ctx, "job-1"))
	require.NoError(t, d.Enqueue(ctx, "job-2"))

	// FIFO: first enqueued pops first.
	jobID, err := d.Pop(ctx, 100*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)

	jobID, err = d.Pop(ctx, 100*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "job-2", jobID)
}

func TestRedisDispatcher_PopEmptyReturnsBlank(t *testing.T) {
	d, _ := newTestDispatcher(t)

	jobID, err := d.Pop(context.Background(), 50*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "", jobID)
}

func TestRedisDispatcher_ScheduleIsNotImmediatelyReady(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()

	require.NoError(t, d.Schedule(ctx, "job-1", time.Hour))

	promoted, err := d.PromoteDue(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, promoted)

	jobID, err := d.Pop(ctx, 50*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "", jobID)
}

func TestRedisDispatcher_PromoteDueMovesDueJobs(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()

	require.NoError(t, d.Schedule(ctx, "job-soon", time.Minute))
	require.NoError(t, d.Schedule(ctx, "job-later", time.Hour))

	promoted, err := d.PromoteDue(ctx, time.Now().Add(5*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, promoted)

	jobID, err := d.Pop(ctx, 100*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "job-soon", jobID)

	jobID, err = d.Pop(ctx, 50*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "", jobID)
}

func TestRedisDispatcher_PromoteDueIsIdempotent(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()

	require.NoError(t, d.Schedule(ctx, "job-1", time.Minute))

	future := time.Now().Add(5 * time.Minute)
	promoted, err := d.PromoteDue(ctx, future)
	require.NoError(t, err)
	assert.Equal(t, 1, promoted)

	promoted, err = d.PromoteDue(ctx, future)
	require.NoError(t, err)
	assert.Equal(t, 0, promoted)
}
