package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/searchsvc/gateway/internal/observability"
	"github.com/searchsvc/gateway/internal/util"
)

// Recovery returns a middleware that recovers from handler panics and
// writes the 500 envelope. It sits at the outermost position so no
// panic escapes to the server.
func Recovery(logger observability.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						observability.String("method", r.Method),
						observability.String("path", r.URL.Path),
						observability.String("request_id", util.RequestIDFromContext(r.Context())),
						observability.Any("panic", rec),
						observability.String("stack", string(debug.Stack())),
					)

					util.WriteError(r.Context(), w,
						http.StatusInternalServerError,
						util.CodeInternal, "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
