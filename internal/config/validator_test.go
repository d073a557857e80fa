package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Server.TLS = TLSConfig{}
	return cfg
}

func TestValidateDefaults(t *testing.T) {
	t.Parallel()
	require.NoError(t, validConfig().Validate())
}

func TestValidateServer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: true,
		},
		{
			name:    "tls enabled without cert",
			mutate:  func(c *Config) { c.Server.TLS.Enabled = true },
			wantErr: true,
		},
		{
			name: "tls enabled without key",
			mutate: func(c *Config) {
				c.Server.TLS.Enabled = true
				c.Server.TLS.CertFile = "/tmp/cert.pem"
			},
			wantErr: true,
		},
		{
			name: "tls complete",
			mutate: func(c *Config) {
				c.Server.TLS.Enabled = true
				c.Server.TLS.CertFile = "/tmp/cert.pem"
				c.Server.TLS.KeyFile = "/tmp/key.pem"
			},
		},
		{
			name: "bad tls min version",
			mutate: func(c *Config) {
				c.Server.TLS.Enabled = true
				c.Server.TLS.CertFile = "/tmp/cert.pem"
				c.Server.TLS.KeyFile = "/tmp/key.pem"
				c.Server.TLS.MinVersion = "1.0"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateAuth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "missing secret name",
			mutate:  func(c *Config) { c.Auth.SecretName = "" },
			wantErr: true,
		},
		{
			name:    "rsa algorithm rejected",
			mutate:  func(c *Config) { c.Auth.Algorithms = []string{"RS256"} },
			wantErr: true,
		},
		{
			name: "api key without digest prefix",
			mutate: func(c *Config) {
				c.Auth.APIKeys = []APIKeyConfig{{Name: "ops", Digest: "abcdef"}}
			},
			wantErr: true,
		},
		{
			name: "api key with sha256 digest",
			mutate: func(c *Config) {
				c.Auth.APIKeys = []APIKeyConfig{{Name: "ops", Digest: "sha256:abcdef", Scopes: []string{"token"}}}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateBackpressure(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Backpressure.MaxInflight = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Backpressure.Enabled = false
	cfg.Backpressure.MaxInflight = 0
	assert.NoError(t, cfg.Validate(), "disabled section skips validation")

	cfg = validConfig()
	cfg.Backpressure.QueueDepth = -1
	assert.Error(t, cfg.Validate())
}

func TestValidateCache(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Cache.Enabled = true
	cfg.Cache.Backend = "redis"
	assert.Error(t, cfg.Validate(), "redis backend requires URL")

	cfg.Cache.RedisURL = "redis://localhost:6379"
	assert.NoError(t, cfg.Validate())

	cfg.Cache.Backend = "memcached"
	assert.Error(t, cfg.Validate())
}

func TestValidateBackends(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Backends.Search.BaseURL = "not a url"
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Backends.State.Breaker.FailureRatio = 1.5
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Backends.State.Retry.MaxAttempts = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateSearch(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Search.QueryMaxLength = 1
	assert.Error(t, cfg.Validate())
}

func TestValidateSecrets(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Secrets.Provider = "file"
	assert.Error(t, cfg.Validate(), "file provider requires a directory")

	cfg.Secrets.FileDir = "/etc/gateway/secrets"
	assert.NoError(t, cfg.Validate())

	cfg = validConfig()
	cfg.Secrets.Provider = "vault"
	assert.Error(t, cfg.Validate())

	cfg.Secrets.Vault.Address = "https://vault:8200"
	cfg.Secrets.Vault.Mount = "secret"
	assert.NoError(t, cfg.Validate())
}
