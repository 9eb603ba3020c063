package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds rate limiter tuning parameters.
type Config struct {
	Enabled     bool
	MaxRequests int
	Window      time.Duration
	KeyPrefix   string
}

// Limiter enforces per-scope, per-client request budgets using Redis
// fixed-window counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a rate [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "rl"
	}
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// Allow records one request for (scope, client) and returns ErrRateLimited
// once the window budget is exhausted. The returned duration is the time
// left in the current window when limited.
func (l *Limiter) Allow(ctx context.Context, scope, client string) (time.Duration, error) {
	if l == nil || !l.config.Enabled || client == "" {
		return 0, nil
	}

	key := l.key(scope, client)
	count, err := l.incrementWithTTL(ctx, key, l.config.Window)
	if err != nil {
		return 0, err
	}
	if count <= int64(l.config.MaxRequests) {
		return 0, nil
	}

	ttl, err := l.redis.PTTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		ttl = l.config.Window
	}
	return ttl, ErrRateLimited
}

// Reset clears the window for (scope, client).
func (l *Limiter) Reset(ctx context.Context, scope, client string) error {
	if l == nil {
		return nil
	}
	if err := l.redis.Del(ctx, l.key(scope, client)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (l *Limiter) key(scope, client string) string {
	return l.config.KeyPrefix + ":" + scope + ":" + client
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}
