package secrets

import (
	"fmt"

	"github.com/searchsvc/gateway/internal/config"
	"github.com/searchsvc/gateway/internal/observability"
)

// NewProvider creates a secrets provider from configuration.
func NewProvider(cfg config.SecretsConfig, logger observability.Logger) (Provider, error) {
	providerType, err := ValidateProviderType(cfg.Provider)
	if err != nil {
		return nil, err
	}

	switch providerType {
	case ProviderTypeEnv:
		return NewEnvProvider(
			WithEnvPrefix(cfg.EnvPrefix),
			WithEnvLogger(logger),
		), nil

	case ProviderTypeFile:
		return NewFileProvider(cfg.FileDir, WithFileLogger(logger))

	case ProviderTypeVault:
		return NewVaultProvider(VaultConfig{
			Address: cfg.Vault.Address,
			Token:   cfg.Vault.Token,
			Mount:   cfg.Vault.Mount,
			Path:    cfg.Vault.Path,
			Timeout: cfg.Vault.Timeout.Duration(),
		}, WithVaultLogger(logger))

	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidProviderType, cfg.Provider)
	}
}
