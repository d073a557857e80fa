package secrets

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/searchsvc/gateway/internal/config"
	"github.com/searchsvc/gateway/internal/observability"
)

func TestValidateProviderType(t *testing.T) {
	t.Parallel()

	for _, valid := range []string{"env", "file", "vault"} {
		pt, err := ValidateProviderType(valid)
		require.NoError(t, err)
		assert.Equal(t, ProviderType(valid), pt)
	}

	_, err := ValidateProviderType("kubernetes")
	assert.ErrorIs(t, err, ErrInvalidProviderType)
}

func TestEnvProviderGet(t *testing.T) {
	t.Setenv("SEARCH_SECRET_JWT_SECRET", "super-secret")

	p := NewEnvProvider()
	assert.Equal(t, ProviderTypeEnv, p.Type())

	value, err := p.Get(context.Background(), "jwt-secret")
	require.NoError(t, err)
	assert.Equal(t, []byte("super-secret"), value)

	_, err = p.Get(context.Background(), "missing-secret")
	assert.ErrorIs(t, err, ErrSecretNotFound)

	_, err = p.Get(context.Background(), "")
	assert.ErrorIs(t, err, ErrSecretNotFound)

	assert.NoError(t, p.HealthCheck(context.Background()))
	assert.NoError(t, p.Close())
}

func TestEnvProviderCustomPrefix(t *testing.T) {
	t.Setenv("GW_BACKEND_TOKEN", "token-value")

	p := NewEnvProvider(WithEnvPrefix("GW_"))
	value, err := p.Get(context.Background(), "backend.token")
	require.NoError(t, err)
	assert.Equal(t, []byte("token-value"), value)
}

func TestFileProvider(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "jwt-secret"), []byte("file-secret\n"), 0o600))

	p, err := NewFileProvider(dir)
	require.NoError(t, err)
	assert.Equal(t, ProviderTypeFile, p.Type())

	value, err := p.Get(context.Background(), "jwt-secret")
	require.NoError(t, err)
	assert.Equal(t, []byte("file-secret"), value, "trailing newline is trimmed")

	_, err = p.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrSecretNotFound)

	_, err = p.Get(context.Background(), "../etc/passwd")
	assert.ErrorIs(t, err, ErrSecretNotFound)

	assert.NoError(t, p.HealthCheck(context.Background()))
}

func TestFileProviderMissingDir(t *testing.T) {
	t.Parallel()

	_, err := NewFileProvider("/nonexistent/secrets")
	assert.ErrorIs(t, err, ErrProviderNotConfigured)

	_, err = NewFileProvider("")
	assert.ErrorIs(t, err, ErrProviderNotConfigured)
}

func TestNewVaultProviderRequiresAddress(t *testing.T) {
	t.Parallel()

	_, err := NewVaultProvider(VaultConfig{})
	assert.ErrorIs(t, err, ErrProviderNotConfigured)
}

func TestNewVaultProviderDefaults(t *testing.T) {
	t.Parallel()

	p, err := NewVaultProvider(VaultConfig{Address: "http://localhost:8200"})
	require.NoError(t, err)
	assert.Equal(t, ProviderTypeVault, p.Type())
	assert.Equal(t, DefaultVaultMount, p.mount)
	assert.Equal(t, DefaultVaultPath, p.path)
}

func TestNewProviderFactory(t *testing.T) {
	t.Parallel()

	logger := observability.NopLogger()

	p, err := NewProvider(config.SecretsConfig{Provider: "env"}, logger)
	require.NoError(t, err)
	assert.Equal(t, ProviderTypeEnv, p.Type())

	_, err = NewProvider(config.SecretsConfig{Provider: "bogus"}, logger)
	assert.ErrorIs(t, err, ErrInvalidProviderType)

	dir := t.TempDir()
	p, err = NewProvider(config.SecretsConfig{Provider: "file", FileDir: dir}, logger)
	require.NoError(t, err)
	assert.Equal(t, ProviderTypeFile, p.Type())
}
