package config

import (
	"strings"

	"github.com/searchsvc/gateway/internal/util"
)

// Validate validates the full configuration. It fails fast: the first
// invalid section aborts startup.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Secrets.Validate(); err != nil {
		return err
	}
	if err := c.Backpressure.Validate(); err != nil {
		return err
	}
	if err := c.RateLimit.Validate(); err != nil {
		return err
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	if err := c.Backends.Validate(); err != nil {
		return err
	}
	if err := c.Search.Validate(); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if err := c.Metrics.Validate(); err != nil {
		return err
	}
	return c.Tracing.Validate()
}

// Validate validates the server section.
func (c *ServerConfig) Validate() error {
	if err := util.ValidateListenAddr(c.Addr); err != nil {
		return util.NewConfigErrorWithCause("server.addr", "invalid listen address", err)
	}
	if err := util.ValidatePort(c.Port); err != nil {
		return util.NewConfigErrorWithCause("server.port", "invalid port", err)
	}
	return c.TLS.Validate()
}

// Validate validates the TLS section. Certificate material is required
// only when TLS is enabled.
func (c *TLSConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.CertFile == "" {
		return util.NewConfigError("server.tls.certFile", "certificate file is required when TLS is enabled")
	}
	if c.KeyFile == "" {
		return util.NewConfigError("server.tls.keyFile", "private key file is required when TLS is enabled")
	}
	switch c.MinVersion {
	case "", "1.2", "1.3":
	default:
		return util.NewConfigError("server.tls.minVersion", "must be 1.2 or 1.3")
	}
	return nil
}

// Validate validates the auth section.
func (c *AuthConfig) Validate() error {
	if c.SecretName == "" {
		return util.NewConfigError("auth.secretName", "JWT secret name is required")
	}
	for _, alg := range c.Algorithms {
		switch alg {
		case "HS256", "HS384", "HS512":
		default:
			return util.NewConfigError("auth.algorithms", "unsupported algorithm "+alg+", only the HMAC family is accepted")
		}
	}
	for _, key := range c.APIKeys {
		if key.Name == "" {
			return util.NewConfigError("auth.apiKeys", "API key name is required")
		}
		if !hasDigestPrefix(key.Digest) {
			return util.NewConfigError("auth.apiKeys["+key.Name+"]",
				"digest must start with sha256:, bcrypt: or plain:")
		}
	}
	return nil
}

func hasDigestPrefix(digest string) bool {
	return strings.HasPrefix(digest, "sha256:") ||
		strings.HasPrefix(digest, "bcrypt:") ||
		strings.HasPrefix(digest, "plain:")
}

// Validate validates the secrets section.
func (c *SecretsConfig) Validate() error {
	switch c.Provider {
	case "env":
	case "file":
		if c.FileDir == "" {
			return util.NewConfigError("secrets.fileDir", "file directory is required for the file provider")
		}
	case "vault":
		if c.Vault.Address == "" {
			return util.NewConfigError("secrets.vault.address", "vault address is required")
		}
		if c.Vault.Mount == "" {
			return util.NewConfigError("secrets.vault.mount", "vault mount is required")
		}
	default:
		return util.NewConfigError("secrets.provider", "must be env, file or vault")
	}
	return nil
}

// Validate validates the backpressure section.
func (c *BackpressureConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.MaxInflight <= 0 {
		return util.NewConfigError("backpressure.maxInflight", "must be positive")
	}
	if c.QueueDepth < 0 {
		return util.NewConfigError("backpressure.queueDepth", "must not be negative")
	}
	if c.QueueTimeout < 0 {
		return util.NewConfigError("backpressure.queueTimeout", "must not be negative")
	}
	if c.RequestTimeout < 0 {
		return util.NewConfigError("backpressure.requestTimeout", "must not be negative")
	}
	return nil
}

// Validate validates the rate limit section.
func (c *RateLimitConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.RPS <= 0 {
		return util.NewConfigError("rateLimit.rps", "must be positive")
	}
	if c.Burst <= 0 {
		return util.NewConfigError("rateLimit.burst", "must be positive")
	}
	return nil
}

// Validate validates the cache section.
func (c *CacheConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	switch c.Backend {
	case "memory":
		if c.MaxEntries <= 0 {
			return util.NewConfigError("cache.maxEntries", "must be positive for the memory backend")
		}
	case "redis":
		if c.RedisURL == "" {
			return util.NewConfigError("cache.redisURL", "redis URL is required for the redis backend")
		}
	default:
		return util.NewConfigError("cache.backend", "must be memory or redis")
	}
	if c.TTL <= 0 {
		return util.NewConfigError("cache.ttl", "must be positive")
	}
	return nil
}

// Validate validates both backend client sections.
func (c *BackendsConfig) Validate() error {
	if err := c.Search.validate("backends.search"); err != nil {
		return err
	}
	return c.State.validate("backends.state")
}

func (c *BackendConfig) validate(field string) error {
	if err := util.ValidateURL(c.BaseURL); err != nil {
		return util.NewConfigErrorWithCause(field+".baseURL", "invalid base URL", err)
	}
	if c.Timeout < 0 {
		return util.NewConfigError(field+".timeout", "must not be negative")
	}
	if c.Breaker.Enabled {
		if c.Breaker.FailureRatio <= 0 || c.Breaker.FailureRatio > 1 {
			return util.NewConfigError(field+".breaker.failureRatio", "must be in (0, 1]")
		}
		if c.Breaker.MinRequests < 0 {
			return util.NewConfigError(field+".breaker.minRequests", "must not be negative")
		}
	}
	if c.Retry.Enabled && c.Retry.MaxAttempts <= 0 {
		return util.NewConfigError(field+".retry.maxAttempts", "must be positive")
	}
	return nil
}

// Validate validates the search section.
func (c *SearchConfig) Validate() error {
	if c.DefaultLimit <= 0 {
		return util.NewConfigError("search.defaultLimit", "must be positive")
	}
	if c.QueryMinLength <= 0 {
		return util.NewConfigError("search.queryMinLength", "must be positive")
	}
	if c.QueryMaxLength < c.QueryMinLength {
		return util.NewConfigError("search.queryMaxLength", "must not be below queryMinLength")
	}
	return nil
}

// Validate validates the logging section.
func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case "", "debug", "info", "warn", "error", "fatal":
	default:
		return util.NewConfigError("logging.level", "must be debug, info, warn, error or fatal")
	}
	switch c.Format {
	case "", "json", "console":
	default:
		return util.NewConfigError("logging.format", "must be json or console")
	}
	return nil
}

// Validate validates the metrics section.
func (c *MetricsConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if err := util.ValidatePort(c.Port); err != nil {
		return util.NewConfigErrorWithCause("metrics.port", "invalid port", err)
	}
	return nil
}

// Validate validates the tracing section.
func (c *TracingConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.SamplingRate < 0 || c.SamplingRate > 1 {
		return util.NewConfigError("tracing.samplingRate", "must be in [0, 1]")
	}
	return nil
}
