package ratelimit

import (
	"context"
	"time"

	redisadapter "github.com/showseat/boxoffice/internal/adapters/redis"
)

// RateLimiter is a fixed-window counter in redis. Holds are cheap to
// spam and expensive to serve, so hold-heavy routes get tighter limits
// at the router.
type RateLimiter struct {
	redis *redisadapter.Cache
}

func NewRateLimiter(redis *redisadapter.Cache) *RateLimiter {
	return &RateLimiter{redis: redis}
}

func (rl *RateLimiter) Allow(ctx context.Context, key string, rate int, period time.Duration) bool {
	fullKey := "rl:" + key

	pipe := rl.redis.Client().Pipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.Expire(ctx, fullKey, period)

	if _, err := pipe.Exec(ctx); err != nil {
		// Redis being down must not take requests with it.
		return true
	}

	return incr.Val() <= int64(rate)
}
