package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/searchsvc/gateway/internal/observability"
	"github.com/searchsvc/gateway/internal/util"
)

// timeoutGracePeriod bounds how long the middleware waits for the
// handler goroutine after writing the 504.
const timeoutGracePeriod = 100 * time.Millisecond

// Timeout returns a middleware that bounds handler execution. The
// handler runs on its own goroutine with a deadline context so
// cancellation reaches backend calls; on expiry the middleware writes
// the 504 envelope and suppresses any late handler writes.
func Timeout(timeout time.Duration, logger observability.Logger) Middleware {
	if timeout <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			r = r.WithContext(ctx)
			done := make(chan struct{})
			tw := &timeoutWriter{inner: w}

			go func() {
				defer func() {
					if rec := recover(); rec != nil {
						logger.Error("panic in timed handler",
							observability.String("method", r.Method),
							observability.String("path", r.URL.Path),
							observability.Any("panic", rec),
						)
						util.WriteError(ctx, tw,
							http.StatusInternalServerError,
							util.CodeInternal, "internal server error")
					}
					close(done)
				}()
				next.ServeHTTP(tw, r)
			}()

			select {
			case <-done:
			case <-ctx.Done():
				if tw.markTimedOut() {
					logger.Warn("request timed out",
						observability.String("method", r.Method),
						observability.String("path", r.URL.Path),
						observability.Duration("timeout", timeout),
						observability.String("request_id", util.RequestIDFromContext(ctx)),
					)
					util.WriteError(ctx, w, http.StatusGatewayTimeout,
						util.CodeGatewayTimeout, "request timed out")
				}

				// Give the handler a moment to observe cancellation;
				// abandon it after the grace period.
				select {
				case <-done:
				case <-time.After(timeoutGracePeriod):
				}
			}
		})
	}
}

// timeoutWriter serializes handler writes against the timeout path.
// After a timeout all handler writes are dropped.
type timeoutWriter struct {
	inner http.ResponseWriter

	mu       sync.Mutex
	written  bool
	timedOut bool
	discard  http.Header
}

// markTimedOut flips the writer into timed-out state. It reports true
// when the handler had not yet written, meaning the caller owns the
// response and should emit the 504.
func (tw *timeoutWriter) markTimedOut() bool {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	tw.timedOut = true
	return !tw.written
}

// Header implements http.ResponseWriter. After a timeout the handler
// gets a detached header map, so late mutations cannot race the
// server finalizing the 504 response.
func (tw *timeoutWriter) Header() http.Header {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut {
		if tw.discard == nil {
			tw.discard = make(http.Header)
		}
		return tw.discard
	}
	return tw.inner.Header()
}

// WriteHeader implements http.ResponseWriter.
func (tw *timeoutWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut {
		return
	}
	tw.written = true
	tw.inner.WriteHeader(code)
}

// Write implements http.ResponseWriter.
func (tw *timeoutWriter) Write(b []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut {
		return len(b), nil
	}
	tw.written = true
	return tw.inner.Write(b)
}

var _ http.ResponseWriter = (*timeoutWriter)(nil)
