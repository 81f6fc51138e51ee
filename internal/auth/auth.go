// Package auth provides API key authentication for the fiscal gateway.
//
// Tenants authenticate every fiscal request with the API key issued at
// account setup, sent in the X-API-Key header. The key is checked against
// the account store; on success it is placed in the request context, where
// handlers read it with [APIKeyFromContext].
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/sirosfoundation/go-fiscal/pkg/fiscalerr"
)

// HeaderAPIKey is the request header carrying the tenant API key.
const HeaderAPIKey = "X-API-Key"

// Verifier checks that an API key names an existing account.
type Verifier interface {
	Authenticate(ctx context.Context, apiKey string) error
}

// Authenticator validates requests against a [Verifier]
type Authenticator struct {
	verifier Verifier
}

// NewAuthenticator creates a new authenticator
func NewAuthenticator(v Verifier) *Authenticator {
	return &Authenticator{verifier: v}
}

// ValidateRequest extracts and verifies the API key of r. Failures are
// INVALID_API_KEY errors unless the account store itself failed.
func (a *Authenticator) ValidateRequest(r *http.Request) (string, error) {
	apiKey := ExtractAPIKey(r)
	if apiKey == "" {
		return "", fiscalerr.New(fiscalerr.KindInvalidAPIKey, "API key not provided, use the X-API-Key header")
	}
	if err := a.verifier.Authenticate(r.Context(), apiKey); err != nil {
		return "", err
	}
	return apiKey, nil
}

// ExtractAPIKey returns the trimmed X-API-Key header of r.
func ExtractAPIKey(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(HeaderAPIKey))
}

type contextKey string

const apiKeyContextKey contextKey = "api_key"

// APIKeyFromContext returns the authenticated API key, or "" outside an
// authenticated request.
func APIKeyFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(apiKeyContextKey).(string); ok {
		return v
	}
	return ""
}

// ContextWithAPIKey adds an authenticated API key to the context
func ContextWithAPIKey(ctx context.Context, apiKey string) context.Context {
	return context.WithValue(ctx, apiKeyContextKey, apiKey)
}
