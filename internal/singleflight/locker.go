// Package singleflight offers an advisory distributed lock callers may use
// to honor spec.md §5's "at most one ingest per target" contract. The
// engine itself never acquires this lock — it is opt-in tooling for a
// caller running multiple processes against one store, not a core engine
// behavior.
package singleflight

import (
	"context"
	"time"
)

// Locker is the advisory lock contract: key-scoped, TTL-bounded, and
// re-entrant only through Extend. Implementations need not guarantee
// fencing beyond "at most one holder observes Acquire==true at a time" —
// callers that need stronger guarantees should not rely on this package
// alone.
type Locker interface {
	// Acquire attempts to take the lock for key, valid for ttl. It
	// returns false (not an error) when the lock is already held.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release gives up a held lock. It returns false if the lock was not
	// held.
	Release(ctx context.Context, key string) (bool, error)

	// Extend pushes a held lock's expiry out by ttl from now. It returns
	// false if the lock was not held.
	Extend(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsHeld reports whether key is currently locked by anyone.
	IsHeld(ctx context.Context, key string) (bool, error)

	// AcquireWithRetry polls Acquire up to maxRetries times, sleeping
	// retryDelay between attempts, returning as soon as one succeeds.
	AcquireWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (bool, error)
}
