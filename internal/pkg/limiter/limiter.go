package limiter

import (
	"context"

	"github.com/go-redis/redis_rate/v10"
	"github.com/hiendaovinh/toolkit/pkg/limiter"
	"github.com/redis/go-redis/v9"
)

// Limiter is a GCRA limiter over any go-redis client, cluster clients included.
type Limiter struct {
	limiter *redis_rate.Limiter
}

func NewLimiter(rdb redis.UniversalClient) (*Limiter, error) {
	return &Limiter{redis_rate.NewLimiter(rdb)}, nil
}

// Allow returns limiter.ErrRateLimited once key has used up limit.
func (l *Limiter) Allow(ctx context.Context, key string, limit redis_rate.Limit) error {
	res, err := l.limiter.Allow(ctx, key, limit)
	if err != nil {
		return err
	}

	if res.Allowed <= 0 {
		return limiter.ErrRateLimited
	}

	return nil
}
