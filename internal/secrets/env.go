package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/searchsvc/gateway/internal/observability"
)

// DefaultEnvPrefix is the default prefix for environment variable
// secrets.
const DefaultEnvPrefix = "SEARCH_SECRET_"

// EnvProvider reads secrets from environment variables. The secret
// name "jwt-secret" maps to the variable "{PREFIX}JWT_SECRET".
type EnvProvider struct {
	prefix string
	logger observability.Logger
}

// EnvOption is a functional option for the env provider.
type EnvOption func(*EnvProvider)

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) EnvOption {
	return func(p *EnvProvider) {
		if prefix != "" {
			p.prefix = prefix
		}
	}
}

// WithEnvLogger sets the logger for the env provider.
func WithEnvLogger(logger observability.Logger) EnvOption {
	return func(p *EnvProvider) {
		p.logger = logger
	}
}

// NewEnvProvider creates a new environment variable secrets provider.
func NewEnvProvider(opts ...EnvOption) *EnvProvider {
	p := &EnvProvider{
		prefix: DefaultEnvPrefix,
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Type returns the provider type.
func (p *EnvProvider) Type() ProviderType {
	return ProviderTypeEnv
}

// normalizeEnvName converts a secret name to an environment variable
// name: uppercase, separators replaced with underscores, prefix added.
func (p *EnvProvider) normalizeEnvName(name string) string {
	envName := strings.ToUpper(name)
	envName = strings.ReplaceAll(envName, "-", "_")
	envName = strings.ReplaceAll(envName, ".", "_")
	envName = strings.ReplaceAll(envName, "/", "_")
	return p.prefix + envName
}

// Get retrieves a secret from environment variables.
func (p *EnvProvider) Get(_ context.Context, name string) ([]byte, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty secret name", ErrSecretNotFound)
	}

	envName := p.normalizeEnvName(name)
	value, exists := os.LookupEnv(envName)
	if !exists {
		p.logger.Debug("environment variable not set",
			observability.String("secret", name),
			observability.String("env_var", envName),
		)
		return nil, fmt.Errorf("%w: environment variable %s not set", ErrSecretNotFound, envName)
	}

	return []byte(value), nil
}

// HealthCheck always succeeds; the environment is always reachable.
func (p *EnvProvider) HealthCheck(_ context.Context) error {
	return nil
}

// Close releases provider resources.
func (p *EnvProvider) Close() error {
	return nil
}

var _ Provider = (*EnvProvider)(nil)
