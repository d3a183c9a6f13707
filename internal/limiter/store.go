// Package limiter enforces distributed fixed-window rate limits and monthly
// token quotas over a shared counter store.
package limiter

import (
	"context"
	"time"
)

// Store is the shared counter backend. All gateway replicas point at the
// same store, so its operations carry the atomicity guarantees: IncrWindow
// is an atomic increment, and ConsumeQuota is an indivisible
// check-then-increment that leaves the counter unchanged on rejection.
type Store interface {
	// IncrWindow atomically increments the counter at key and returns the
	// post-increment value. When the increment creates the key, its expiry
	// is set to ttl.
	IncrWindow(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// WindowTTL returns the remaining lifetime of key, or 0 when the key has
	// no expiry or does not exist.
	WindowTTL(ctx context.Context, key string) (time.Duration, error)

	// ConsumeQuota atomically adds amount to the counter at key unless the
	// result would exceed cap. It reports whether the consumption was
	// applied; a rejected consumption leaves the counter untouched. On
	// success the key expiry is reset to ttl.
	ConsumeQuota(ctx context.Context, key string, amount, cap int64, ttl time.Duration) (bool, error)
}
