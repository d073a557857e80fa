package config

import "time"

// Default values applied when a section omits a field.
const (
	DefaultListenAddr  = ""
	DefaultHTTPPort    = 8080
	DefaultMetricsPort = 9091

	DefaultReadTimeout   = 10 * time.Second
	DefaultWriteTimeout  = 30 * time.Second
	DefaultIdleTimeout   = 120 * time.Second
	DefaultShutdownGrace = 30 * time.Second

	DefaultMaxInflight    = 1024
	DefaultQueueDepth     = 128
	DefaultQueueTimeout   = 5 * time.Second
	DefaultShedThreshold  = 2 * time.Second
	DefaultRequestTimeout = 60 * time.Second

	DefaultClockSkew = 10 * time.Second
	DefaultTokenTTL  = 60 * time.Minute

	DefaultBackendTimeout        = 10 * time.Second
	DefaultBreakerMinRequests    = 3
	DefaultBreakerFailureRatio   = 0.5
	DefaultBreakerOpenTimeout    = 30 * time.Second
	DefaultRetryMaxAttempts      = 3
	DefaultRetryInitialInterval  = 100 * time.Millisecond
	DefaultRetryMaxInterval      = 2 * time.Second
	DefaultCacheTTL              = 60 * time.Second
	DefaultCacheMaxEntries       = 10000
	DefaultHealthCheckInterval   = 15 * time.Second
	DefaultHealthCheckTimeout    = 3 * time.Second
	DefaultTracingSamplingRate   = 1.0
	DefaultSecretsEnvPrefix      = "SEARCH_SECRET_"
	DefaultVaultTimeout          = 5 * time.Second
	DefaultSearchLimit           = 30
	DefaultSearchQueryMinLength  = 3
	DefaultSearchQueryMaxLength  = 100
	DefaultRateLimitRPS          = 100.0
	DefaultRateLimitBurst        = 200
)

// Config is the root configuration for the gateway process. It is built
// once at startup and never mutated afterward.
type Config struct {
	ServiceName  string             `yaml:"serviceName" json:"serviceName"`
	Server       ServerConfig       `yaml:"server" json:"server"`
	Auth         AuthConfig         `yaml:"auth" json:"auth"`
	Authz        AuthzConfig        `yaml:"authz" json:"authz"`
	Secrets      SecretsConfig      `yaml:"secrets" json:"secrets"`
	Backpressure BackpressureConfig `yaml:"backpressure" json:"backpressure"`
	RateLimit    RateLimitConfig    `yaml:"rateLimit" json:"rateLimit"`
	Cache        CacheConfig        `yaml:"cache" json:"cache"`
	Backends     BackendsConfig     `yaml:"backends" json:"backends"`
	Search       SearchConfig       `yaml:"search" json:"search"`
	Logging      LoggingConfig      `yaml:"logging" json:"logging"`
	Metrics      MetricsConfig      `yaml:"metrics" json:"metrics"`
	Tracing      TracingConfig      `yaml:"tracing" json:"tracing"`
}

// ServerConfig configures the main HTTP(S) listener.
type ServerConfig struct {
	Addr          string    `yaml:"addr" json:"addr"`
	Port          int       `yaml:"port" json:"port"`
	TLS           TLSConfig `yaml:"tls" json:"tls"`
	ReadTimeout   Duration  `yaml:"readTimeout" json:"readTimeout"`
	WriteTimeout  Duration  `yaml:"writeTimeout" json:"writeTimeout"`
	IdleTimeout   Duration  `yaml:"idleTimeout" json:"idleTimeout"`
	ShutdownGrace Duration  `yaml:"shutdownGrace" json:"shutdownGrace"`
}

// TLSConfig configures TLS termination. Enabled is a startup-time
// choice: when false the listener serves plain HTTP.
type TLSConfig struct {
	Enabled    bool   `yaml:"enabled" json:"enabled"`
	CertFile   string `yaml:"certFile" json:"certFile"`
	KeyFile    string `yaml:"keyFile" json:"keyFile"`
	MinVersion string `yaml:"minVersion" json:"minVersion"`
	WatchFiles bool   `yaml:"watchFiles" json:"watchFiles"`
}

// AuthConfig configures bearer-token verification and issuing.
type AuthConfig struct {
	// SecretName is the name of the HMAC shared secret in the secrets
	// provider.
	SecretName string   `yaml:"secretName" json:"secretName"`
	Issuer     string   `yaml:"issuer" json:"issuer"`
	Audiences  []string `yaml:"audiences" json:"audiences"`
	// Algorithms is the allow-list of accepted JWS algorithms. Defaults
	// to the HMAC family.
	Algorithms []string       `yaml:"algorithms" json:"algorithms"`
	ClockSkew  Duration       `yaml:"clockSkew" json:"clockSkew"`
	TokenTTL   Duration       `yaml:"tokenTTL" json:"tokenTTL"`
	APIKeys    []APIKeyConfig `yaml:"apiKeys" json:"apiKeys"`
}

// APIKeyConfig is a static API key accepted by the token-issue route.
// Digest is "sha256:<hex>", "bcrypt:<hash>" or "plain:<value>".
type APIKeyConfig struct {
	Name   string   `yaml:"name" json:"name"`
	Digest string   `yaml:"digest" json:"digest"`
	Scopes []string `yaml:"scopes" json:"scopes"`
}

// AuthzConfig holds optional CEL route policies, compiled once at
// startup.
type AuthzConfig struct {
	Policies []PolicyConfig `yaml:"policies" json:"policies"`
}

// PolicyConfig binds a CEL expression to a route pattern. A route of
// "*" applies the policy to every route.
type PolicyConfig struct {
	Name       string `yaml:"name" json:"name"`
	Route      string `yaml:"route" json:"route"`
	Expression string `yaml:"expression" json:"expression"`
}

// SecretsConfig selects and configures the secrets provider.
type SecretsConfig struct {
	// Provider is one of "env", "file", "vault".
	Provider  string      `yaml:"provider" json:"provider"`
	EnvPrefix string      `yaml:"envPrefix" json:"envPrefix"`
	FileDir   string      `yaml:"fileDir" json:"fileDir"`
	Vault     VaultConfig `yaml:"vault" json:"vault"`
}

// VaultConfig configures the HashiCorp Vault KV v2 provider.
type VaultConfig struct {
	Address string   `yaml:"address" json:"address"`
	Token   string   `yaml:"token" json:"token"`
	Mount   string   `yaml:"mount" json:"mount"`
	Path    string   `yaml:"path" json:"path"`
	Timeout Duration `yaml:"timeout" json:"timeout"`
}

// BackpressureConfig configures the admission control stack.
type BackpressureConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// MaxInflight is the concurrency ceiling. Requests admitted past the
	// limiter never exceed this count.
	MaxInflight int `yaml:"maxInflight" json:"maxInflight"`
	// QueueDepth bounds how many requests may wait for a slot; 0 rejects
	// immediately at the ceiling.
	QueueDepth int `yaml:"queueDepth" json:"queueDepth"`
	// QueueTimeout bounds how long a queued request waits for admission.
	QueueTimeout Duration `yaml:"queueTimeout" json:"queueTimeout"`
	// ShedThreshold is the queue-wait level at which the shedder starts
	// rejecting before queuing.
	ShedThreshold Duration `yaml:"shedThreshold" json:"shedThreshold"`
	// RequestTimeout is the per-request execution deadline.
	RequestTimeout Duration `yaml:"requestTimeout" json:"requestTimeout"`
}

// RateLimitConfig configures the optional token-bucket rate limiter.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" json:"enabled"`
	RPS     float64 `yaml:"rps" json:"rps"`
	Burst   int     `yaml:"burst" json:"burst"`
}

// CacheConfig configures the search response cache.
type CacheConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Backend is "memory" or "redis".
	Backend    string   `yaml:"backend" json:"backend"`
	TTL        Duration `yaml:"ttl" json:"ttl"`
	MaxEntries int      `yaml:"maxEntries" json:"maxEntries"`
	RedisURL   string   `yaml:"redisURL" json:"redisURL"`
}

// BackendsConfig holds the backend collaborator endpoints.
type BackendsConfig struct {
	Search BackendConfig `yaml:"search" json:"search"`
	State  BackendConfig `yaml:"state" json:"state"`
}

// BackendConfig configures one backend HTTP client.
type BackendConfig struct {
	BaseURL string `yaml:"baseURL" json:"baseURL"`
	// TokenSecret names the bearer token for this backend in the secrets
	// provider; empty means unauthenticated calls.
	TokenSecret string        `yaml:"tokenSecret" json:"tokenSecret"`
	Timeout     Duration      `yaml:"timeout" json:"timeout"`
	Breaker     BreakerConfig `yaml:"breaker" json:"breaker"`
	Retry       RetryConfig   `yaml:"retry" json:"retry"`
}

// BreakerConfig configures the per-backend circuit breaker.
type BreakerConfig struct {
	Enabled      bool     `yaml:"enabled" json:"enabled"`
	MinRequests  int      `yaml:"minRequests" json:"minRequests"`
	FailureRatio float64  `yaml:"failureRatio" json:"failureRatio"`
	OpenTimeout  Duration `yaml:"openTimeout" json:"openTimeout"`
}

// RetryConfig configures retries for idempotent backend calls.
type RetryConfig struct {
	Enabled         bool     `yaml:"enabled" json:"enabled"`
	MaxAttempts     int      `yaml:"maxAttempts" json:"maxAttempts"`
	InitialInterval Duration `yaml:"initialInterval" json:"initialInterval"`
	MaxInterval     Duration `yaml:"maxInterval" json:"maxInterval"`
}

// SearchConfig holds query validation settings for the search route.
type SearchConfig struct {
	DefaultLimit   int `yaml:"defaultLimit" json:"defaultLimit"`
	QueryMinLength int `yaml:"queryMinLength" json:"queryMinLength"`
	QueryMaxLength int `yaml:"queryMaxLength" json:"queryMaxLength"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	Output string `yaml:"output" json:"output"`
}

// MetricsConfig configures the Prometheus scrape endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Port    int    `yaml:"port" json:"port"`
	Path    string `yaml:"path" json:"path"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	OTLPEndpoint string  `yaml:"otlpEndpoint" json:"otlpEndpoint"`
	SamplingRate float64 `yaml:"samplingRate" json:"samplingRate"`
}

// DefaultConfig returns a configuration with all defaults applied.
func DefaultConfig() *Config {
	return &Config{
		ServiceName: "search-gateway",
		Server: ServerConfig{
			Addr:          DefaultListenAddr,
			Port:          DefaultHTTPPort,
			ReadTimeout:   Duration(DefaultReadTimeout),
			WriteTimeout:  Duration(DefaultWriteTimeout),
			IdleTimeout:   Duration(DefaultIdleTimeout),
			ShutdownGrace: Duration(DefaultShutdownGrace),
		},
		Auth: AuthConfig{
			SecretName: "jwt-secret",
			Algorithms: []string{"HS256", "HS384", "HS512"},
			ClockSkew:  Duration(DefaultClockSkew),
			TokenTTL:   Duration(DefaultTokenTTL),
		},
		Secrets: SecretsConfig{
			Provider:  "env",
			EnvPrefix: DefaultSecretsEnvPrefix,
		},
		Backpressure: BackpressureConfig{
			Enabled:        true,
			MaxInflight:    DefaultMaxInflight,
			QueueDepth:     DefaultQueueDepth,
			QueueTimeout:   Duration(DefaultQueueTimeout),
			ShedThreshold:  Duration(DefaultShedThreshold),
			RequestTimeout: Duration(DefaultRequestTimeout),
		},
		RateLimit: RateLimitConfig{
			RPS:   DefaultRateLimitRPS,
			Burst: DefaultRateLimitBurst,
		},
		Cache: CacheConfig{
			Backend:    "memory",
			TTL:        Duration(DefaultCacheTTL),
			MaxEntries: DefaultCacheMaxEntries,
		},
		Backends: BackendsConfig{
			Search: defaultBackendConfig("http://localhost:9200"),
			State:  defaultBackendConfig("http://localhost:9300"),
		},
		Search: SearchConfig{
			DefaultLimit:   DefaultSearchLimit,
			QueryMinLength: DefaultSearchQueryMinLength,
			QueryMaxLength: DefaultSearchQueryMaxLength,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    DefaultMetricsPort,
			Path:    "/metrics",
		},
		Tracing: TracingConfig{
			SamplingRate: DefaultTracingSamplingRate,
		},
	}
}

func defaultBackendConfig(baseURL string) BackendConfig {
	return BackendConfig{
		BaseURL: baseURL,
		Timeout: Duration(DefaultBackendTimeout),
		Breaker: BreakerConfig{
			Enabled:      true,
			MinRequests:  DefaultBreakerMinRequests,
			FailureRatio: DefaultBreakerFailureRatio,
			OpenTimeout:  Duration(DefaultBreakerOpenTimeout),
		},
		Retry: RetryConfig{
			Enabled:         true,
			MaxAttempts:     DefaultRetryMaxAttempts,
			InitialInterval: Duration(DefaultRetryInitialInterval),
			MaxInterval:     Duration(DefaultRetryMaxInterval),
		},
	}
}

// GetEffectiveQueueTimeout returns the queue timeout, falling back to
// the default when unset.
func (c *BackpressureConfig) GetEffectiveQueueTimeout() time.Duration {
	if c.QueueTimeout <= 0 {
		return DefaultQueueTimeout
	}
	return c.QueueTimeout.Duration()
}

// GetEffectiveRequestTimeout returns the request timeout, falling back
// to the default when unset.
func (c *BackpressureConfig) GetEffectiveRequestTimeout() time.Duration {
	if c.RequestTimeout <= 0 {
		return DefaultRequestTimeout
	}
	return c.RequestTimeout.Duration()
}

// GetEffectiveClockSkew returns the clock skew, falling back to the
// default when unset.
func (c *AuthConfig) GetEffectiveClockSkew() time.Duration {
	if c.ClockSkew <= 0 {
		return DefaultClockSkew
	}
	return c.ClockSkew.Duration()
}

// GetEffectiveTokenTTL returns the token TTL, falling back to the
// default when unset.
func (c *AuthConfig) GetEffectiveTokenTTL() time.Duration {
	if c.TokenTTL <= 0 {
		return DefaultTokenTTL
	}
	return c.TokenTTL.Duration()
}
