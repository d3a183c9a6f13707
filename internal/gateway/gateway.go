// Package gateway implements the admission-control and dispatch engine:
// policy resolution, rate limiting, quota accounting, and the branch between
// AI calls and transparent upstream forwarding.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/tjfontaine/policy-llm-gateway/internal/audit"
	"github.com/tjfontaine/policy-llm-gateway/internal/auth"
	"github.com/tjfontaine/policy-llm-gateway/internal/domain"
	"github.com/tjfontaine/policy-llm-gateway/internal/limiter"
	"github.com/tjfontaine/policy-llm-gateway/internal/policy"
	"github.com/tjfontaine/policy-llm-gateway/internal/provider"
	"github.com/tjfontaine/policy-llm-gateway/internal/server"
	"github.com/tjfontaine/policy-llm-gateway/internal/tokens"
)

// forwardTimeout bounds outbound proxy calls so one slow upstream cannot
// exhaust gateway concurrency.
const forwardTimeout = 30 * time.Second

// previewLimit bounds the proxied response body stored in audit records.
const previewLimit = 1000

// Gateway is the per-process dependency object. It is constructed once at
// startup and injected into every request handler; it holds no per-request
// state.
type Gateway struct {
	log       *slog.Logger
	policies  *policy.Store
	rate      *limiter.RateLimiter
	quota     *limiter.QuotaManager
	estimator *tokens.Estimator
	audit     audit.Sink
	resolve   provider.Resolver
	forward   *http.Client
	now       func() time.Time
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithResolver replaces the provider resolver, for tests.
func WithResolver(resolve provider.Resolver) Option {
	return func(g *Gateway) { g.resolve = resolve }
}

// WithForwardClient replaces the HTTP client used for upstream forwarding.
func WithForwardClient(client *http.Client) Option {
	return func(g *Gateway) { g.forward = client }
}

// WithClock replaces the gateway's clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

// New assembles a Gateway from its collaborators.
func New(logger *slog.Logger, policies *policy.Store, rate *limiter.RateLimiter,
	quota *limiter.QuotaManager, estimator *tokens.Estimator, sink audit.Sink,
	opts ...Option) *Gateway {
	g := &Gateway{
		log:       logger,
		policies:  policies,
		rate:      rate,
		quota:     quota,
		estimator: estimator,
		audit:     sink,
		resolve:   provider.ForTenant,
		forward:   &http.Client{Timeout: forwardTimeout},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// authenticate resolves the tenant for a request against one policy
// snapshot and returns its policy.
func (g *Gateway) authenticate(r *http.Request, doc *policy.Document) (string, policy.Tenant, error) {
	tenant, err := auth.ResolveTenant(r.Header.Get("Authorization"), doc)
	if err != nil {
		return "", policy.Tenant{}, err
	}
	pol, ok := doc.ForTenant(tenant)
	if !ok {
		return "", policy.Tenant{}, domain.ErrForbidden("invalid token")
	}
	server.AddLogField(r.Context(), "tenant", tenant)
	return tenant, pol, nil
}

// checkRate applies the fixed-window rate limit. It must complete and
// succeed before any quota check begins.
func (g *Gateway) checkRate(ctx context.Context, tenant string, cfg policy.RateLimit) error {
	allowed, retry, err := g.rate.Allow(ctx, tenant, cfg)
	if err != nil {
		return err
	}
	if !allowed {
		return domain.ErrRateLimited(retry)
	}
	return nil
}

// checkQuota consumes tokens from the tenant's monthly cap. It must complete
// and succeed before any provider call is issued.
func (g *Gateway) checkQuota(ctx context.Context, tenant string, cost int64, cfg policy.Quota) error {
	ok, err := g.quota.Consume(ctx, tenant, cost, cfg)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrQuotaExceeded()
	}
	return nil
}

// emit writes one audit record, logging rather than failing the request when
// the sink errors.
func (g *Gateway) emit(tenant, providerName, model, prompt, response string) {
	rec := audit.Record{
		Timestamp: g.now().Unix(),
		Tenant:    tenant,
		Provider:  providerName,
		Model:     model,
		Prompt:    prompt,
		Response:  response,
	}
	if err := g.audit.Write(rec); err != nil {
		g.log.Error("audit write failed",
			slog.String("tenant", tenant),
			slog.String("error", err.Error()))
	}
}

// writeJSON renders v as a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err as a canonical JSON error response. Errors outside
// the canonical taxonomy (shared-store or I/O failures) surface as opaque
// 500s; the original error still lands in the request log.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	server.AddError(r.Context(), err)

	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) {
		apiErr = domain.ErrServer("internal error")
	}
	if apiErr.Type == domain.ErrorTypeRateLimit && apiErr.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(apiErr.RetryAfter))
	}
	writeJSON(w, apiErr.HTTPStatusCode(), map[string]any{"error": apiErr})
}

// preview bounds a proxied response body for audit records.
func preview(body []byte) string {
	if len(body) > previewLimit {
		return string(body[:previewLimit])
	}
	return string(body)
}
