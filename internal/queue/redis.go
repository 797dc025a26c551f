// internal/queue/redis.go
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDispatcher keeps ready job ids in a list and delayed ones in a sorted
// set scored by due time. The worker loop promotes due members before polling.
type RedisDispatcher struct {
	rdb        redis.Cmdable
	readyKey   string
	delayedKey string
}

func NewRedisDispatcher(rdb redis.Cmdable, readyKey, delayedKey string) *RedisDispatcher {
	return &RedisDispatcher{
		rdb:        rdb,
		readyKey:   readyKey,
		delayedKey: delayedKey,
	}
}

// Enqueue makes the job immediately available to the worker loop.
func (d *RedisDispatcher) Enqueue(ctx context.Context, jobID string) error {
	if err := d.rdb.LPush(ctx, d.readyKey, jobID).Err(); err != nil {
		return fmt.Errorf("enqueue job %s: %w", jobID, err)
	}
	return nil
}

// Schedule parks the job until its backoff delay elapses.
func (d *RedisDispatcher) Schedule(ctx context.Context, jobID string, delay time.Duration) error {
	due := time.Now().Add(delay)
	err := d.rdb.ZAdd(ctx, d.delayedKey, redis.Z{
		Score:  float64(due.UnixMilli()),
		Member: jobID,
	}).Err()
	if err != nil {
		return fmt.Errorf("schedule job %s: %w", jobID, err)
	}
	return nil
}

// PromoteDue moves every delayed job whose due time has passed onto the ready
// list. Returns the number promoted.
func (d *RedisDispatcher) PromoteDue(ctx context.Context, now time.Time) (int, error) {
	maxScore := fmt.Sprintf("%d", now.UnixMilli())
	due, err := d.rdb.ZRangeByScore(ctx, d.delayedKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: maxScore,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("promote due jobs: %w", err)
	}

	promoted := 0
	for _, jobID := range due {
		// ZRem first so a concurrent promoter cannot double-deliver.
		removed, err := d.rdb.ZRem(ctx, d.delayedKey, jobID).Result()
		if err != nil {
			return promoted, fmt.Errorf("promote due jobs: %w", err)
		}
		if removed == 0 {
			continue
		}
		if err := d.rdb.LPush(ctx, d.readyKey, jobID).Err(); err != nil {
			return promoted, fmt.Errorf("promote due jobs: %w", err)
		}
		promoted++
	}
	return promoted, nil
}

// Pop takes the next ready job id, blocking up to timeout. Returns "" when
// nothing became ready.
func (d *RedisDispatcher) Pop(ctx context.Context, timeout time.Duration) (string, error) {
	vals, err := d.rdb.BRPop(ctx, timeout, d.readyKey).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("pop job: %w", err)
	}
	// BRPop returns [key, value].
	if len(vals) != 2 {
		return "", nil
	}
	return vals[1], nil
}
