package limiter

import (
	"context"
	"fmt"
	"time"

	"github.com/tjfontaine/policy-llm-gateway/internal/policy"
)

// quotaGrace keeps a month's counter alive past month end so slow clocks and
// in-flight requests settle before the key is reclaimed.
const quotaGrace = 24 * time.Hour

// QuotaManager enforces a monthly token quota per tenant. The
// check-and-increment is delegated to the shared store's atomic primitive,
// so concurrent replicas cannot overspend the cap. Rejection is a normal
// policy outcome, not an error, and leaves the counter unchanged.
type QuotaManager struct {
	store Store
	now   func() time.Time
}

// QuotaOption configures a QuotaManager.
type QuotaOption func(*QuotaManager)

// WithQuotaClock replaces the manager's clock, for tests.
func WithQuotaClock(now func() time.Time) QuotaOption {
	return func(q *QuotaManager) { q.now = now }
}

// NewQuotaManager creates a quota manager over the shared store.
func NewQuotaManager(store Store, opts ...QuotaOption) *QuotaManager {
	q := &QuotaManager{store: store, now: time.Now}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Consume attempts to spend tokens from the tenant's monthly cap. It reports
// false when the consumption would exceed the cap.
func (q *QuotaManager) Consume(ctx context.Context, tenant string, tokens int64, cfg policy.Quota) (bool, error) {
	now := q.now().UTC()
	key := fmt.Sprintf("quota:%s:%s", tenant, now.Format("2006-01"))
	ttl := secondsUntilMonthEnd(now) + quotaGrace
	return q.store.ConsumeQuota(ctx, key, tokens, cfg.MonthlyTokens, ttl)
}

// secondsUntilMonthEnd returns the time remaining until the first instant of
// the next calendar month.
func secondsUntilMonthEnd(now time.Time) time.Duration {
	firstOfNext := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return firstOfNext.Sub(now)
}
