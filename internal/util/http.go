package util

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

// Error codes carried in the response envelope.
const (
	CodeBadRequest     = "bad_request"
	CodeUnauthorized   = "unauthorized"
	CodeForbidden      = "forbidden"
	CodeNotFound       = "not_found"
	CodeConflict       = "conflict"
	CodeRateLimited    = "rate_limited"
	CodeOverloaded     = "overloaded"
	CodeBadGateway     = "bad_gateway"
	CodeGatewayTimeout = "gateway_timeout"
	CodeInternal       = "internal"
)

// ErrorBody is the JSON envelope written on every failed request.
type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// WriteError writes the JSON error envelope. The request ID is taken from
// the context so the envelope can be correlated with the access log.
func WriteError(ctx context.Context, w http.ResponseWriter, status int, code, message string) {
	_ = WriteJSON(w, status, ErrorBody{
		Code:      code,
		Message:   message,
		RequestID: RequestIDFromContext(ctx),
	})
}

// ErrorStatus maps an error from the gateway taxonomy to the HTTP status
// code and envelope code it should produce. Unknown errors map to 500.
func ErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest, CodeBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, CodeUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, CodeForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, CodeRateLimited
	case errors.Is(err, ErrOverloaded):
		return http.StatusServiceUnavailable, CodeOverloaded
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout, CodeGatewayTimeout
	case errors.Is(err, ErrCircuitOpen), errors.Is(err, ErrBackendUnavail):
		return http.StatusBadGateway, CodeBadGateway
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// RespondError writes err as a JSON error envelope, deriving status and code
// from the taxonomy. Server-side failures get a fixed message so internal
// detail never reaches the client; client errors carry err.Error().
func RespondError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := ErrorStatus(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		message = messageForCode(code)
	}
	WriteError(r.Context(), w, status, code, message)
}

func messageForCode(code string) string {
	switch code {
	case CodeOverloaded:
		return "server overloaded, retry later"
	case CodeGatewayTimeout:
		return "request timed out"
	case CodeBadGateway:
		return "upstream request failed"
	default:
		return "internal server error"
	}
}

// StatusCapturingResponseWriter wraps http.ResponseWriter to track status
// code and bytes written. It is used by the access log and metrics
// middleware that need to inspect the response after the handler completed.
type StatusCapturingResponseWriter struct {
	http.ResponseWriter
	StatusCode    int
	BytesWritten  int64
	HeaderWritten bool
}

// NewStatusCapturingResponseWriter creates a new StatusCapturingResponseWriter
// wrapping the provided http.ResponseWriter with a default status of 200 OK.
func NewStatusCapturingResponseWriter(w http.ResponseWriter) *StatusCapturingResponseWriter {
	return &StatusCapturingResponseWriter{
		ResponseWriter: w,
		StatusCode:     http.StatusOK,
	}
}

// WriteHeader captures the status code and writes it to the underlying ResponseWriter.
func (w *StatusCapturingResponseWriter) WriteHeader(code int) {
	if w.HeaderWritten {
		return
	}
	w.StatusCode = code
	w.HeaderWritten = true
	w.ResponseWriter.WriteHeader(code)
}

// Write writes data to the underlying ResponseWriter and marks header as written.
func (w *StatusCapturingResponseWriter) Write(b []byte) (int, error) {
	if !w.HeaderWritten {
		w.HeaderWritten = true
	}
	n, err := w.ResponseWriter.Write(b)
	w.BytesWritten += int64(n)
	return n, err
}

// Flush implements http.Flusher interface for streaming support.
func (w *StatusCapturingResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Compile-time interface assertion.
var _ http.Flusher = (*StatusCapturingResponseWriter)(nil)
