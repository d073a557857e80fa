package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/searchsvc/gateway/internal/config"
	"github.com/searchsvc/gateway/internal/observability"
)

const redisKeyPrefix = "gateway:search:"

// redisCache stores responses in redis with per-key TTLs.
type redisCache struct {
	logger     observability.Logger
	metrics    *Metrics
	client     *redis.Client
	defaultTTL time.Duration
}

func newRedisCache(cfg config.CacheConfig, opts Options) (*redisCache, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("%w: redis backend requires a URL", ErrInvalidConfig)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	c := &redisCache{
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		client:     redis.NewClient(redisOpts),
		defaultTTL: cfg.TTL.Duration(),
	}

	c.logger.Info("redis cache initialized",
		observability.String("addr", redisOpts.Addr),
		observability.Duration("ttl", c.defaultTTL),
	)

	return c, nil
}

func (c *redisCache) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "cache.Get",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("cache.backend", BackendRedis)),
	)
	defer span.End()

	value, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.metrics.recordMiss(BackendRedis)
			span.SetAttributes(attribute.Bool("cache.hit", false))
			return nil, ErrCacheMiss
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	c.metrics.recordHit(BackendRedis)
	span.SetAttributes(attribute.Bool("cache.hit", true))

	return value, nil
}

func (c *redisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "cache.Set",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("cache.backend", BackendRedis),
			attribute.Int("cache.value_size", len(value)),
		),
	)
	defer span.End()

	if ttl == 0 {
		ttl = c.defaultTTL
	}

	if err := c.client.Set(ctx, redisKeyPrefix+key, value, ttl).Err(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (c *redisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, redisKeyPrefix+key).Err()
}

// Ping checks redis reachability, used by the health checker.
func (c *redisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *redisCache) Close() error {
	return c.client.Close()
}
