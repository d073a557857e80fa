// Package auth carries the authenticated identity of a request between
// the auth middleware and the route handlers.
package auth

import (
	"context"

	"github.com/searchsvc/gateway/internal/auth/apikey"
	"github.com/searchsvc/gateway/internal/auth/jwt"
)

type ctxKey int

const (
	ctxKeyClaims ctxKey = iota
	ctxKeyAPIKey
)

// ContextWithClaims attaches verified token claims to the context.
func ContextWithClaims(ctx context.Context, claims *jwt.Claims) context.Context {
	return context.WithValue(ctx, ctxKeyClaims, claims)
}

// ClaimsFromContext extracts verified token claims from the context.
// Returns nil when the request was not authenticated with a bearer token.
func ClaimsFromContext(ctx context.Context) *jwt.Claims {
	if c, ok := ctx.Value(ctxKeyClaims).(*jwt.Claims); ok {
		return c
	}
	return nil
}

// ContextWithAPIKey attaches a verified API key to the context.
func ContextWithAPIKey(ctx context.Context, key *apikey.Key) context.Context {
	return context.WithValue(ctx, ctxKeyAPIKey, key)
}

// APIKeyFromContext extracts a verified API key from the context.
// Returns nil when the request was not authenticated with an API key.
func APIKeyFromContext(ctx context.Context) *apikey.Key {
	if k, ok := ctx.Value(ctxKeyAPIKey).(*apikey.Key); ok {
		return k
	}
	return nil
}
