package limiter

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/tjfontaine/policy-llm-gateway/internal/policy"
)

// RateLimiter enforces a fixed-window request cap per tenant. Windows are
// discrete: window_index = floor(now / per_seconds), and the counter for a
// window self-expires per_seconds after its first increment. A rolling
// window straddling a boundary can therefore admit up to twice the cap;
// that tradeoff is intentional and must not be replaced with a sliding
// window.
type RateLimiter struct {
	store Store
	now   func() time.Time
}

// RateOption configures a RateLimiter.
type RateOption func(*RateLimiter)

// WithRateClock replaces the limiter's clock, for tests.
func WithRateClock(now func() time.Time) RateOption {
	return func(l *RateLimiter) { l.now = now }
}

// NewRateLimiter creates a limiter over the shared store.
func NewRateLimiter(store Store, opts ...RateOption) *RateLimiter {
	l := &RateLimiter{store: store, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow checks and counts one request for tenant under cfg. Denials report
// the remaining window lifetime as retry-after seconds, falling back to the
// window length when the TTL is unknown. The attempt is counted either way.
func (l *RateLimiter) Allow(ctx context.Context, tenant string, cfg policy.RateLimit) (bool, int, error) {
	per := cfg.PerSeconds
	if per < 1 {
		per = 1
	}

	window := l.now().Unix() / int64(per)
	key := fmt.Sprintf("rl:%s:%d", tenant, window)

	val, err := l.store.IncrWindow(ctx, key, time.Duration(per)*time.Second)
	if err != nil {
		return false, 0, err
	}
	if val > int64(cfg.Requests) {
		retry := per
		if ttl, err := l.store.WindowTTL(ctx, key); err == nil && ttl > 0 {
			retry = int(math.Ceil(ttl.Seconds()))
		}
		return false, retry, nil
	}
	return true, 0, nil
}
