// Package auth resolves bearer credentials to tenant ids using the token
// index derived from the active policy snapshot.
package auth

import (
	"strings"

	"github.com/tjfontaine/policy-llm-gateway/internal/domain"
	"github.com/tjfontaine/policy-llm-gateway/internal/policy"
)

// ResolveTenant maps an Authorization header to a tenant id. The header must
// be exactly "Bearer <token>"; any other shape is an authentication error.
// A well-formed header with an unknown token is a permission error.
// No side effects.
func ResolveTenant(header string, doc *policy.Document) (string, error) {
	if header == "" {
		return "", domain.ErrUnauthenticated("missing authorization header")
	}

	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", domain.ErrUnauthenticated("invalid authorization header format")
	}

	tenant, ok := doc.TenantForToken(parts[1])
	if !ok {
		return "", domain.ErrForbidden("invalid token")
	}
	return tenant, nil
}
