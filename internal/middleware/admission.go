package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/searchsvc/gateway/internal/observability"
	"github.com/searchsvc/gateway/internal/util"
)

// retryAfterSeconds is the Retry-After hint on overload rejections.
const retryAfterSeconds = "1"

// guardOptions configures the LoadShed and Admission middlewares.
type guardOptions struct {
	logger  observability.Logger
	metrics *observability.Metrics
}

// GuardOption is a functional option for the backpressure guards.
type GuardOption func(*guardOptions)

// WithGuardLogger sets the logger.
func WithGuardLogger(logger observability.Logger) GuardOption {
	return func(o *guardOptions) {
		o.logger = logger
	}
}

// WithGuardMetrics sets the metrics sink.
func WithGuardMetrics(metrics *observability.Metrics) GuardOption {
	return func(o *guardOptions) {
		o.metrics = metrics
	}
}

func newGuardOptions(opts []GuardOption) *guardOptions {
	o := &guardOptions{logger: observability.NopLogger()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// LoadShed returns a middleware that rejects requests outright while
// the limiter is saturated, keeping them out of a queue they cannot
// clear. Probe paths are exempt.
func LoadShed(limiter *Limiter, opts ...GuardOption) Middleware {
	o := newGuardOptions(opts)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if exempt(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			if limiter.Saturated() {
				rejectOverload(o, w, r, util.OverloadReasonShed)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Admission returns a middleware that holds every request to the
// concurrency ceiling. Admitted requests release their slot exactly
// once, via defer, on every exit path including panic and timeout.
// Probe paths are exempt.
func Admission(limiter *Limiter, opts ...GuardOption) Middleware {
	o := newGuardOptions(opts)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if exempt(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			if err := limiter.Acquire(r.Context()); err != nil {
				if errors.Is(err, context.Canceled) {
					// Client went away while queued. Nothing to write.
					return
				}
				rejectOverload(o, w, r, overloadReason(err))
				return
			}
			defer limiter.Release()

			next.ServeHTTP(w, r)
		})
	}
}

// overloadReason maps an admission error to its metric label.
func overloadReason(err error) string {
	switch {
	case errors.Is(err, ErrQueueFull):
		return util.OverloadReasonQueueFull
	case errors.Is(err, ErrShed):
		return util.OverloadReasonShed
	default:
		return util.OverloadReasonQueueTimeout
	}
}

func rejectOverload(o *guardOptions, w http.ResponseWriter, r *http.Request, reason string) {
	o.logger.Warn("request rejected under load",
		observability.String("method", r.Method),
		observability.String("path", r.URL.Path),
		observability.String("reason", reason),
		observability.String("request_id", util.RequestIDFromContext(r.Context())),
	)
	if o.metrics != nil {
		o.metrics.RecordShed(reason)
	}

	w.Header().Set("Retry-After", retryAfterSeconds)
	util.WriteError(r.Context(), w, http.StatusServiceUnavailable,
		util.CodeOverloaded, "server overloaded, retry later")
}
