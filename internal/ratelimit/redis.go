package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed-window counter shared by every replica.
type RedisLimiter struct {
	client   redis.Cmdable
	requests int
	window   time.Duration
	prefix   string
	now      func() time.Time
}

// NewRedisLimiter creates a limiter allowing requests per window per key
func NewRedisLimiter(client redis.Cmdable, requests int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client:   client,
		requests: requests,
		window:   window,
		prefix:   "ratelimit:",
		now:      time.Now,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	now := l.now()
	windowStart := now.Truncate(l.window)
	windowEnd := windowStart.Add(l.window)
	redisKey := fmt.Sprintf("%s%s:%d", l.prefix, key, windowStart.Unix())

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.ExpireAt(ctx, redisKey, windowEnd)
		return nil
	})
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit counter: %w", err)
	}

	count := int(incr.Val())
	d := Decision{Limit: l.requests}
	if count > l.requests {
		d.RetryAfter = windowEnd.Sub(now)
		return d, nil
	}
	d.Allowed = true
	d.Remaining = l.requests - count
	return d, nil
}
