// Package cache provides the optional response cache for search
// queries, backed by an in-memory LRU or redis.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/searchsvc/gateway/internal/config"
	"github.com/searchsvc/gateway/internal/observability"
)

// Cache errors.
var (
	// ErrCacheMiss indicates the key is not cached.
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheDisabled indicates caching is turned off.
	ErrCacheDisabled = errors.New("cache disabled")

	// ErrInvalidConfig indicates a bad cache configuration.
	ErrInvalidConfig = errors.New("invalid cache configuration")
)

// Backend names used as metric labels.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Cache stores serialized responses keyed by request digest.
type Cache interface {
	// Get retrieves a cached value. Returns ErrCacheMiss when the
	// key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with the given TTL. A zero TTL uses the
	// configured default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key.
	Delete(ctx context.Context, key string) error

	// Ping checks the cache backend's reachability.
	Ping(ctx context.Context) error

	// Close releases the cache's resources.
	Close() error
}

// Options carries optional collaborators for cache construction.
type Options struct {
	Logger  observability.Logger
	Metrics *Metrics
}

// New builds a cache from configuration. A disabled config yields a
// no-op cache that always misses.
func New(cfg config.CacheConfig, opts Options) (Cache, error) {
	if opts.Logger == nil {
		opts.Logger = observability.NopLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics()
	}

	if !cfg.Enabled {
		return disabledCache{}, nil
	}

	switch cfg.Backend {
	case BackendMemory, "":
		return newMemoryCache(cfg, opts), nil
	case BackendRedis:
		return newRedisCache(cfg, opts)
	default:
		return nil, errors.New("unknown cache backend: " + cfg.Backend)
	}
}

// disabledCache always misses and drops writes.
type disabledCache struct{}

func (disabledCache) Get(context.Context, string) ([]byte, error) {
	return nil, ErrCacheMiss
}

func (disabledCache) Set(context.Context, string, []byte, time.Duration) error {
	return nil
}

func (disabledCache) Delete(context.Context, string) error { return nil }

func (disabledCache) Ping(context.Context) error { return nil }

func (disabledCache) Close() error { return nil }
