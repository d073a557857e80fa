// Package secrets provides a unified interface for secret material the
// gateway needs at startup: the JWT shared secret and backend bearer
// tokens. Backends: environment variables, local files, and HashiCorp
// Vault KV v2.
package secrets

import (
	"context"
	"errors"
	"fmt"
)

// ProviderType represents the type of secrets provider.
type ProviderType string

const (
	// ProviderTypeEnv reads secrets from prefixed environment variables.
	ProviderTypeEnv ProviderType = "env"
	// ProviderTypeFile reads secrets from files in a directory.
	ProviderTypeFile ProviderType = "file"
	// ProviderTypeVault reads secrets from HashiCorp Vault KV v2.
	ProviderTypeVault ProviderType = "vault"
)

// Common errors for secrets providers.
var (
	// ErrSecretNotFound is returned when a secret does not exist.
	ErrSecretNotFound = errors.New("secret not found")
	// ErrProviderNotConfigured is returned when the provider is missing
	// required configuration.
	ErrProviderNotConfigured = errors.New("provider not configured")
	// ErrInvalidProviderType is returned for an unknown provider type.
	ErrInvalidProviderType = errors.New("invalid provider type")
)

// Provider supplies named secrets. Implementations are read-only and
// safe for concurrent use.
type Provider interface {
	// Type returns the provider type.
	Type() ProviderType

	// Get retrieves the secret value by name. Returns ErrSecretNotFound
	// (possibly wrapped) when the secret does not exist.
	Get(ctx context.Context, name string) ([]byte, error)

	// HealthCheck checks provider connectivity.
	HealthCheck(ctx context.Context) error

	// Close releases provider resources.
	Close() error
}

// ValidateProviderType validates that the given string names a known
// provider type.
func ValidateProviderType(providerType string) (ProviderType, error) {
	switch ProviderType(providerType) {
	case ProviderTypeEnv, ProviderTypeFile, ProviderTypeVault:
		return ProviderType(providerType), nil
	default:
		return "", fmt.Errorf("%w: %s, must be one of: env, file, vault", ErrInvalidProviderType, providerType)
	}
}
