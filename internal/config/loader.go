package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// envPrefix is the prefix for flat environment overrides.
const envPrefix = "SEARCH_"

// Load loads configuration from a YAML file path. When path is empty,
// the default configuration with SEARCH_* environment overrides is
// returned instead.
func Load(path string) (*Config, error) {
	if path == "" {
		cfg := DefaultConfig()
		applyEnvOverrides(cfg)
		return cfg, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", path, err)
	}

	data, err := os.ReadFile(absPath) //nolint:gosec // path comes from trusted configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return parse(data)
}

// LoadFromReader loads configuration from an io.Reader.
func LoadFromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return parse(data)
}

// parse substitutes environment variables and unmarshals YAML over the
// default configuration so omitted fields keep their defaults.
func parse(data []byte) (*Config, error) {
	content := substituteEnvVars(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return cfg, nil
}

// substituteEnvVars replaces ${VAR} and ${VAR:-default} patterns with
// environment variable values. A literal dollar sign is written as $$.
func substituteEnvVars(content string) string {
	content = strings.ReplaceAll(content, "$$", "\x00ESCAPED_DOLLAR\x00")

	result := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		defaultValue := ""
		if len(submatches) >= 3 {
			defaultValue = submatches[2]
		}

		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return defaultValue
	})

	return strings.ReplaceAll(result, "\x00ESCAPED_DOLLAR\x00", "$")
}

// applyEnvOverrides applies flat SEARCH_* environment variables on top
// of the configuration. This restores an env-first configuration
// surface for file-less deployments.
func applyEnvOverrides(cfg *Config) {
	setString(&cfg.ServiceName, "SERVICE_NAME")
	setString(&cfg.Server.Addr, "LISTEN_ADDR")
	setInt(&cfg.Server.Port, "PORT")
	setBool(&cfg.Server.TLS.Enabled, "TLS_ENABLED")
	setString(&cfg.Server.TLS.CertFile, "TLS_CERT_FILE")
	setString(&cfg.Server.TLS.KeyFile, "TLS_KEY_FILE")

	setString(&cfg.Auth.SecretName, "JWT_SECRET_NAME")
	setString(&cfg.Auth.Issuer, "JWT_ISSUER")
	setStrings(&cfg.Auth.Audiences, "JWT_AUDIENCES")
	setDuration(&cfg.Auth.TokenTTL, "TOKEN_TTL")

	setInt(&cfg.Backpressure.MaxInflight, "MAX_INFLIGHT")
	setInt(&cfg.Backpressure.QueueDepth, "QUEUE_DEPTH")
	setDuration(&cfg.Backpressure.QueueTimeout, "QUEUE_TIMEOUT")
	setDuration(&cfg.Backpressure.ShedThreshold, "SHED_THRESHOLD")
	setDuration(&cfg.Backpressure.RequestTimeout, "REQUEST_TIMEOUT")

	setBool(&cfg.Cache.Enabled, "CACHE_ENABLED")
	setString(&cfg.Cache.Backend, "CACHE_BACKEND")
	setString(&cfg.Cache.RedisURL, "CACHE_REDIS_URL")
	setDuration(&cfg.Cache.TTL, "CACHE_TTL")

	setString(&cfg.Backends.Search.BaseURL, "SEARCH_BACKEND_URL")
	setString(&cfg.Backends.State.BaseURL, "STATE_BACKEND_URL")

	setString(&cfg.Secrets.Provider, "SECRETS_PROVIDER")
	setString(&cfg.Secrets.FileDir, "SECRETS_FILE_DIR")
	setString(&cfg.Secrets.Vault.Address, "VAULT_ADDR")
	setString(&cfg.Secrets.Vault.Token, "VAULT_TOKEN")

	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setString(&cfg.Logging.Format, "LOG_FORMAT")

	setBool(&cfg.Metrics.Enabled, "METRICS_ENABLED")
	setInt(&cfg.Metrics.Port, "METRICS_PORT")

	setBool(&cfg.Tracing.Enabled, "TRACING_ENABLED")
	setString(&cfg.Tracing.OTLPEndpoint, "OTLP_ENDPOINT")
}

func lookup(name string) (string, bool) {
	return os.LookupEnv(envPrefix + name)
}

func setString(dst *string, name string) {
	if v, ok := lookup(name); ok {
		*dst = v
	}
}

func setStrings(dst *[]string, name string) {
	if v, ok := lookup(name); ok {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		*dst = out
	}
}

func setInt(dst *int, name string) {
	if v, ok := lookup(name); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, name string) {
	if v, ok := lookup(name); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *Duration, name string) {
	if v, ok := lookup(name); ok {
		if d, err := parseDurationValue(v); err == nil {
			*dst = Duration(d)
		}
	}
}

// parseDurationValue accepts Go duration syntax and falls back to bare
// seconds for numeric values.
func parseDurationValue(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return 0, fmt.Errorf("invalid duration: %s", s)
}
