package middleware

import (
	"net/http"

	"golang.org/x/time/rate"

	"github.com/searchsvc/gateway/internal/config"
	"github.com/searchsvc/gateway/internal/observability"
	"github.com/searchsvc/gateway/internal/router"
	"github.com/searchsvc/gateway/internal/util"
)

// RateLimitOption is a functional option for the rate limit middleware.
type RateLimitOption func(*rateLimiter)

// WithRateLimitLogger sets the logger.
func WithRateLimitLogger(logger observability.Logger) RateLimitOption {
	return func(rl *rateLimiter) {
		rl.logger = logger
	}
}

// WithRateLimitMetrics sets the metrics sink.
func WithRateLimitMetrics(metrics *observability.Metrics) RateLimitOption {
	return func(rl *rateLimiter) {
		rl.metrics = metrics
	}
}

// WithRateLimitTable sets the route table used to resolve the route
// label on rejections. Without it rejections are labeled "unmatched".
func WithRateLimitTable(table *router.Table) RateLimitOption {
	return func(rl *rateLimiter) {
		rl.table = table
	}
}

type rateLimiter struct {
	limiter *rate.Limiter
	table   *router.Table
	logger  observability.Logger
	metrics *observability.Metrics
}

// RateLimit returns a middleware enforcing a global token bucket.
// Probe paths are exempt. A disabled config yields a pass-through.
func RateLimit(cfg config.RateLimitConfig, opts ...RateLimitOption) Middleware {
	if !cfg.Enabled || cfg.RPS <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	burst := cfg.Burst
	if burst <= 0 {
		burst = int(cfg.RPS)
		if burst < 1 {
			burst = 1
		}
	}

	rl := &rateLimiter{
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), burst),
		logger:  observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(rl)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if exempt(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			if !rl.limiter.Allow() {
				rl.reject(w, r)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (rl *rateLimiter) reject(w http.ResponseWriter, r *http.Request) {
	route := "unmatched"
	if rl.table != nil {
		if matched, _, ok := rl.table.Match(r.Method, r.URL.Path); ok {
			route = matched.Pattern
		}
	}

	rl.logger.Warn("rate limit exceeded",
		observability.String("method", r.Method),
		observability.String("path", r.URL.Path),
		observability.String("client_ip", clientIP(r)),
	)
	if rl.metrics != nil {
		rl.metrics.RecordRateLimited(route)
	}

	w.Header().Set("Retry-After", "1")
	util.WriteError(r.Context(), w, http.StatusTooManyRequests,
		util.CodeRateLimited, "rate limit exceeded")
}
