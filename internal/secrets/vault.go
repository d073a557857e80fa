package secrets

import (
	"context"
	"fmt"
	"time"

	vaultapi "github.com/hashicorp/vault/api"

	"github.com/searchsvc/gateway/internal/observability"
)

// Default values for the Vault provider.
const (
	DefaultVaultMount   = "secret"
	DefaultVaultPath    = "gateway"
	DefaultVaultTimeout = 5 * time.Second
)

// VaultConfig holds configuration for the Vault secrets provider.
type VaultConfig struct {
	// Address is the Vault server address.
	Address string
	// Token is the Vault token for token auth.
	Token string
	// Mount is the KV v2 secrets engine mount point.
	Mount string
	// Path is the secret path under the mount; individual secrets are
	// keys of that secret's data.
	Path string
	// Timeout is the per-request timeout.
	Timeout time.Duration
}

// VaultProvider reads secrets from a HashiCorp Vault KV v2 engine.
// Each named secret is a key of the configured secret path.
type VaultProvider struct {
	client  *vaultapi.Client
	mount   string
	path    string
	timeout time.Duration
	logger  observability.Logger
}

// VaultOption is a functional option for the Vault provider.
type VaultOption func(*VaultProvider)

// WithVaultLogger sets the logger for the Vault provider.
func WithVaultLogger(logger observability.Logger) VaultOption {
	return func(p *VaultProvider) {
		p.logger = logger
	}
}

// NewVaultProvider creates a new Vault secrets provider.
func NewVaultProvider(cfg VaultConfig, opts ...VaultOption) (*VaultProvider, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("%w: vault address is required", ErrProviderNotConfigured)
	}

	apiCfg := vaultapi.DefaultConfig()
	apiCfg.Address = cfg.Address
	if cfg.Timeout > 0 {
		apiCfg.Timeout = cfg.Timeout
	} else {
		apiCfg.Timeout = DefaultVaultTimeout
	}

	client, err := vaultapi.NewClient(apiCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if cfg.Token != "" {
		client.SetToken(cfg.Token)
	}

	p := &VaultProvider{
		client:  client,
		mount:   cfg.Mount,
		path:    cfg.Path,
		timeout: apiCfg.Timeout,
		logger:  observability.NopLogger(),
	}
	if p.mount == "" {
		p.mount = DefaultVaultMount
	}
	if p.path == "" {
		p.path = DefaultVaultPath
	}

	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Type returns the provider type.
func (p *VaultProvider) Type() ProviderType {
	return ProviderTypeVault
}

// Get retrieves a secret key from the configured KV v2 path.
func (p *VaultProvider) Get(ctx context.Context, name string) ([]byte, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty secret name", ErrSecretNotFound)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	secret, err := p.client.KVv2(p.mount).Get(ctx, p.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vault secret %s/%s: %w", p.mount, p.path, err)
	}

	value, ok := secret.Data[name]
	if !ok {
		return nil, fmt.Errorf("%w: key %s at %s/%s", ErrSecretNotFound, name, p.mount, p.path)
	}

	str, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("vault secret key %s is not a string", name)
	}

	p.logger.Debug("secret read from vault",
		observability.String("secret", name),
		observability.String("mount", p.mount),
	)

	return []byte(str), nil
}

// HealthCheck verifies Vault connectivity via the health endpoint.
func (p *VaultProvider) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	health, err := p.client.Sys().HealthWithContext(ctx)
	if err != nil {
		return fmt.Errorf("vault health check failed: %w", err)
	}
	if health.Sealed {
		return fmt.Errorf("vault is sealed")
	}
	return nil
}

// Close releases provider resources.
func (p *VaultProvider) Close() error {
	return nil
}

var _ Provider = (*VaultProvider)(nil)
