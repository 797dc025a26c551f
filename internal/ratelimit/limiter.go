// internal/ratelimit/limiter.go
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"bloodlink/internal/common/logger"
	"bloodlink/internal/common/metrics"

	"github.com/redis/go-redis/v9"
)

// Limiter caps how often a user may enqueue a notification job: a fixed
// window counter in Redis, expiry set on the first increment of a window.
// INCR keeps the counter atomic across service instances.
type Limiter struct {
	rdb    redis.Cmdable
	max    int
	window time.Duration
	logger logger.Logger
}

func New(rdb redis.Cmdable, max int, window time.Duration, log logger.Logger) *Limiter {
	return &Limiter{
		rdb:    rdb,
		max:    max,
		window: window,
		logger: log.WithFields(map[string]interface{}{"component": "ratelimit"}),
	}
}

func (l *Limiter) key(userID string) string {
	return fmt.Sprintf("notification_rate_limit:%s", userID)
}

// Allow consumes one slot for the user if capacity remains. A rejected
// attempt consumes nothing and does not extend the window.
func (l *Limiter) Allow(ctx context.Context, userID string) (bool, error) {
	key := l.key(userID)

	current, err := l.rdb.Get(ctx, key).Int()
	if err != nil && err != redis.Nil {
		return false, fmt.Errorf("rate limit lookup: %w", err)
	}
	if current >= l.max {
		metrics.RateLimitRejections.Inc()
		l.logger.Warn("rate limit exceeded", map[string]interface{}{
			"userId": userID,
			"count":  current,
		})
		return false, nil
	}

	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit increment: %w", err)
	}
	if count == 1 {
		if err := l.rdb.Expire(ctx, key, l.window).Err(); err != nil {
			return false, fmt.Errorf("rate limit expiry: %w", err)
		}
	}

	return true, nil
}

// Remaining reports how many submissions the user has left in the window.
func (l *Limiter) Remaining(ctx context.Context, userID string) (int, error) {
	current, err := l.rdb.Get(ctx, l.key(userID)).Int()
	if err == redis.Nil {
		return l.max, nil
	}
	if err != nil {
		return 0, fmt.Errorf("rate limit lookup: %w", err)
	}
	remaining := l.max - current
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}
