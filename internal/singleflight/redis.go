package singleflight

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "chunkvault:lock:"

// RedisLocker is a Redis-backed Locker for callers running multiple
// backup processes against a shared store. Unlike a token-fenced
// distributed lock, it trusts the Locker interface's key-only Release/
// Extend contract: any caller holding a reference to the same client and
// key can release or extend it. That is an acceptable simplification for
// advisory use (spec.md §5 places the real correctness obligation on the
// caller, not this package) but callers needing ownership fencing across
// untrusted processes should not rely on it.
type RedisLocker struct {
	client *redis.Client
}

// NewRedisLocker wraps an existing go-redis client.
func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, keyPrefix+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("singleflight: redis acquire %q: %w", key, err)
	}
	return ok, nil
}

func (l *RedisLocker) Release(ctx context.Context, key string) (bool, error) {
	n, err := l.client.Del(ctx, keyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("singleflight: redis release %q: %w", key, err)
	}
	return n > 0, nil
}

func (l *RedisLocker) Extend(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := l.client.Expire(ctx, keyPrefix+key, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("singleflight: redis extend %q: %w", key, err)
	}
	return ok, nil
}

func (l *RedisLocker) IsHeld(ctx context.Context, key string) (bool, error) {
	n, err := l.client.Exists(ctx, keyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("singleflight: redis check %q: %w", key, err)
	}
	return n > 0, nil
}

func (l *RedisLocker) AcquireWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (bool, error) {
	for attempt := 0; ; attempt++ {
		acquired, err := l.Acquire(ctx, key, ttl)
		if err != nil || acquired {
			return acquired, err
		}
		if attempt >= maxRetries {
			return false, nil
		}
		select {
		case <-time.After(retryDelay):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
}

var _ Locker = (*RedisLocker)(nil)
