// Package provider implements the uniform call interface to AI backends.
//
// The variant set is closed: OpenAI, Azure OpenAI, Ollama, plus the
// deterministic Mock and Echo fallbacks. When a tenant lacks the credentials
// a named provider requires, ForTenant degrades to Mock so the gateway stays
// testable without live backend access.
package provider

import (
	"context"
	"net/http"
	"time"

	"github.com/tjfontaine/policy-llm-gateway/internal/policy"
)

// defaultTimeout bounds every outbound provider call.
const defaultTimeout = 30 * time.Second

// Provider is one AI backend reachable with a tenant's credentials.
type Provider interface {
	Name() string

	// Complete sends prompt to the backend and returns the response text.
	Complete(ctx context.Context, model, prompt string) (string, error)
}

// Resolver selects a Provider for a provider name and credential bundle.
// The gateway takes one so tests can substitute canned backends.
type Resolver func(name string, creds policy.Credentials) Provider

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultTimeout}
}

// ForTenant returns the provider implementation for name. Missing required
// credentials degrade to Mock; unknown provider names degrade to Echo.
func ForTenant(name string, creds policy.Credentials) Provider {
	switch name {
	case "openai":
		if creds.OpenAI == nil || creds.OpenAI.APIKey == "" {
			return Mock{}
		}
		return NewOpenAI(creds.OpenAI.APIKey)
	case "azure":
		az := creds.AzureOpenAI
		if az == nil || az.APIKey == "" || az.Endpoint == "" || az.Deployment == "" {
			return Mock{}
		}
		return NewAzureOpenAI(az.APIKey, az.Endpoint, az.Deployment)
	case "ollama":
		host := ""
		if creds.Ollama != nil {
			host = creds.Ollama.Host
		}
		return NewOllama(host)
	default:
		return Echo{}
	}
}
