package idempotency

import (
	"context"
	"time"

	redisadapter "github.com/showseat/boxoffice/internal/adapters/redis"
)

type Idempotency struct {
	redis *redisadapter.Idempotency
	ttl   time.Duration
}

func NewIdempotency(redis *redisadapter.Idempotency, ttl time.Duration) *Idempotency {
	return &Idempotency{redis: redis, ttl: ttl}
}

type Response struct {
	Status int
	Body   []byte
}

func (i *Idempotency) Get(ctx context.Context, key string) (*Response, error) {
	stored, err := i.redis.Get(ctx, key)
	if err != nil || stored == nil {
		return nil, err
	}
	return &Response{Status: stored.Status, Body: stored.Body}, nil
}

func (i *Idempotency) Set(ctx context.Context, key string, resp Response) error {
	return i.redis.Set(ctx, key, redisadapter.StoredResponse{Status: resp.Status, Body: resp.Body}, i.ttl)
}
