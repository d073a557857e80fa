package middleware

import (
	"net/http"
	"net/url"
	"time"

	"github.com/searchsvc/gateway/internal/observability"
	"github.com/searchsvc/gateway/internal/util"
)

// redactedValue replaces sensitive header and query values in logs.
const redactedValue = "[REDACTED]"

// sensitiveQueryParams are query parameters whose values never reach
// the log output.
var sensitiveQueryParams = map[string]struct{}{
	"token":        {},
	"access_token": {},
	"apikey":       {},
	"api_key":      {},
	"key":          {},
	"secret":       {},
	"password":     {},
}

// AccessLog returns a middleware that writes one log line per request.
// The level follows the status class: Info for 2xx/3xx, Warn for 4xx,
// Error for 5xx. Credentials in the query string are masked.
func AccessLog(logger observability.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := util.NewStatusCapturingResponseWriter(w)

			next.ServeHTTP(rw, r)

			fields := []observability.Field{
				observability.String("method", r.Method),
				observability.String("path", r.URL.Path),
				observability.String("query", redactQuery(r.URL.Query())),
				observability.Int("status", rw.StatusCode),
				observability.Int64("bytes", rw.BytesWritten),
				observability.Duration("duration", time.Since(start)),
				observability.String("client_ip", clientIP(r)),
				observability.String("user_agent", r.UserAgent()),
				observability.String("request_id", util.RequestIDFromContext(r.Context())),
			}

			switch {
			case rw.StatusCode >= http.StatusInternalServerError:
				logger.Error("request", fields...)
			case rw.StatusCode >= http.StatusBadRequest:
				logger.Warn("request", fields...)
			default:
				logger.Info("request", fields...)
			}
		})
	}
}

// redactQuery re-encodes the query string with sensitive values masked.
func redactQuery(query url.Values) string {
	if len(query) == 0 {
		return ""
	}

	masked := make(url.Values, len(query))
	for name, values := range query {
		if _, sensitive := sensitiveQueryParams[name]; sensitive {
			masked[name] = []string{redactedValue}
			continue
		}
		masked[name] = values
	}
	return masked.Encode()
}
