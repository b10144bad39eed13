package singleflight

import (
	"context"
	"sync"
	"time"
)

// MemoryLocker is an in-process Locker backed by a map, for single-binary
// deployments and tests where a distributed backend is unnecessary.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]time.Time // key -> expiry
}

// NewMemoryLocker builds an empty MemoryLocker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]time.Time)}
}

func (l *MemoryLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if expiry, held := l.locks[key]; held && time.Now().Before(expiry) {
		return false, nil
	}
	l.locks[key] = time.Now().Add(ttl)
	return true, nil
}

func (l *MemoryLocker) Release(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	expiry, held := l.locks[key]
	if !held || !time.Now().Before(expiry) {
		return false, nil
	}
	delete(l.locks, key)
	return true, nil
}

func (l *MemoryLocker) Extend(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	expiry, held := l.locks[key]
	if !held || !time.Now().Before(expiry) {
		return false, nil
	}
	l.locks[key] = time.Now().Add(ttl)
	return true, nil
}

func (l *MemoryLocker) IsHeld(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	expiry, held := l.locks[key]
	return held && time.Now().Before(expiry), nil
}

func (l *MemoryLocker) AcquireWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (bool, error) {
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

// NoOpLocker always grants the lock, for configurations where the caller
// has already guaranteed single-writer access out of band (spec.md §5's
// "it is a contract on the caller") and wants the engine code path
// unconditionally parameterized over a Locker anyway.
type NoOpLocker struct{}

// NewNoOpLocker builds a NoOpLocker.
func NewNoOpLocker() *NoOpLocker {
	return &NoOpLocker{}
}

func (NoOpLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return true, nil
}

func (NoOpLocker) Release(ctx context.Context, key string) (bool, error) {
	return true, nil
}

func (NoOpLocker) Extend(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return true, nil
}

func (NoOpLocker) IsHeld(ctx context.Context, key string) (bool, error) {
	return false, nil
}

func (NoOpLocker) AcquireWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (bool, error) {
	return true, nil
}

var (
	_ Locker = (*MemoryLocker)(nil)
	_ Locker = (*NoOpLocker)(nil)
)
