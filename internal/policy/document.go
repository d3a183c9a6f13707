// Package policy loads and serves the tenant/route policy document that
// drives admission control and dispatch.
package policy

import (
	"fmt"
	"sort"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// ErrParse indicates a policy document that could not be parsed into the
// expected schema. Wrap checks use errors.Is.
var ErrParse = fmt.Errorf("malformed policy document")

// RateLimit caps requests per fixed window.
type RateLimit struct {
	Requests   int `koanf:"requests"`
	PerSeconds int `koanf:"per_seconds"`
}

// Quota caps cumulative estimated tokens per calendar month.
type Quota struct {
	MonthlyTokens int64 `koanf:"monthly_tokens"`
}

// OpenAICredentials holds the OpenAI API credential bundle.
type OpenAICredentials struct {
	APIKey string `koanf:"api_key"`
}

// AzureCredentials holds the Azure OpenAI credential bundle.
type AzureCredentials struct {
	APIKey     string `koanf:"api_key"`
	Endpoint   string `koanf:"endpoint"`
	Deployment string `koanf:"deployment"`
}

// OllamaCredentials holds the Ollama host configuration.
type OllamaCredentials struct {
	Host string `koanf:"host"`
}

// Credentials maps provider names to their credential bundles.
// A nil bundle means the tenant has no credentials for that provider.
type Credentials struct {
	OpenAI      *OpenAICredentials `koanf:"openai"`
	AzureOpenAI *AzureCredentials  `koanf:"azure_openai"`
	Ollama      *OllamaCredentials `koanf:"ollama"`
}

// Route is a named, policy-configured endpoint under a tenant. Pointer fields
// are optional overrides; an unset override inherits the tenant-level value
// at use time, not at load time.
type Route struct {
	Upstream     string     `koanf:"upstream"`
	AllowMethods []string   `koanf:"allow_methods"`
	RateLimit    *RateLimit `koanf:"rate_limit"`
	Quota        *Quota     `koanf:"quota"`
	AI           bool       `koanf:"ai"`
	Provider     string     `koanf:"provider"`
	Model        string     `koanf:"model"`
	Redact       bool       `koanf:"redact"`
}

// Tenant is the per-tenant policy: valid credentials, limits, redaction
// rules, provider credentials and named routes.
type Tenant struct {
	Tokens          []string         `koanf:"tokens"`
	RateLimit       *RateLimit       `koanf:"rate_limit"`
	Quota           *Quota           `koanf:"quota"`
	PIIPatterns     []string         `koanf:"pii_patterns"`
	DefaultProvider string           `koanf:"default_provider"`
	Credentials     Credentials      `koanf:"provider_credentials"`
	Routes          map[string]Route `koanf:"routes"`
}

// Document is one immutable snapshot of the full policy configuration.
// It is never mutated after construction; reload builds a new Document.
type Document struct {
	Tenants map[string]Tenant `koanf:"tenants"`

	// tokenIndex maps credential token to tenant id, derived once at parse.
	tokenIndex map[string]string
}

// Built-in fallbacks applied when neither route nor tenant set a value.
var (
	defaultRateLimit = RateLimit{Requests: 60, PerSeconds: 60}
	defaultQuota     = Quota{MonthlyTokens: 100000}
	defaultMethods   = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
)

// DefaultProviderName is used when neither route nor tenant name a provider.
const DefaultProviderName = "ollama"

// Parse decodes a YAML (or JSON) policy document and derives the token
// index. The top level must be a mapping; anything else fails with ErrParse.
func Parse(raw []byte) (*Document, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(raw), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	var doc Document
	if err := k.Unmarshal("", &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	doc.tokenIndex = buildTokenIndex(doc.Tenants)
	return &doc, nil
}

// buildTokenIndex derives the token -> tenant mapping. Tenant ids are walked
// in sorted order so a token claimed by two tenants resolves deterministically
// (last writer in sort order wins).
func buildTokenIndex(tenants map[string]Tenant) map[string]string {
	ids := make([]string, 0, len(tenants))
	for id := range tenants {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	index := make(map[string]string)
	for _, id := range ids {
		for _, tok := range tenants[id].Tokens {
			index[tok] = id
		}
	}
	return index
}

// ForTenant returns the policy for a tenant id.
func (d *Document) ForTenant(id string) (Tenant, bool) {
	t, ok := d.Tenants[id]
	return t, ok
}

// RouteFor returns the named route under a tenant. A missing route is a
// first-class not-found state, distinct from an empty-but-present route.
func (d *Document) RouteFor(tenant, name string) (Route, bool) {
	t, ok := d.Tenants[tenant]
	if !ok {
		return Route{}, false
	}
	r, ok := t.Routes[name]
	return r, ok
}

// TenantForToken resolves a credential token to a tenant id.
func (d *Document) TenantForToken(token string) (string, bool) {
	id, ok := d.tokenIndex[token]
	return id, ok
}

// EffectiveRateLimit resolves the rate limit for a request: route override
// wins over the tenant value, which wins over the built-in default.
func (t Tenant) EffectiveRateLimit(route *Route) RateLimit {
	if route != nil && route.RateLimit != nil {
		return *route.RateLimit
	}
	if t.RateLimit != nil {
		return *t.RateLimit
	}
	return defaultRateLimit
}

// EffectiveQuota resolves the monthly quota with the same override order as
// EffectiveRateLimit.
func (t Tenant) EffectiveQuota(route *Route) Quota {
	if route != nil && route.Quota != nil {
		return *route.Quota
	}
	if t.Quota != nil {
		return *t.Quota
	}
	return defaultQuota
}

// EffectiveProvider resolves the provider name for an AI call.
func (t Tenant) EffectiveProvider(route *Route) string {
	if route != nil && route.Provider != "" {
		return route.Provider
	}
	if t.DefaultProvider != "" {
		return t.DefaultProvider
	}
	return DefaultProviderName
}

// MethodAllowed reports whether the route admits the HTTP method. Routes
// without an allow_methods list admit all six supported verbs.
func (r Route) MethodAllowed(method string) bool {
	allowed := r.AllowMethods
	if len(allowed) == 0 {
		allowed = defaultMethods
	}
	for _, m := range allowed {
		if m == method {
			return true
		}
	}
	return false
}
