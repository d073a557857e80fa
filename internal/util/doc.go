// Package util provides utility functions and types for the
// search gateway.
//
// This package contains shared utilities used across the gateway
// including context helpers, the error taxonomy, the JSON error
// envelope, and validation functions.
//
// # Context Helpers
//
// Context utilities for request-scoped data:
//
//	ctx = util.ContextWithRequestID(ctx, "req-123")
//	requestID := util.RequestIDFromContext(ctx)
//
// # Error Types
//
// Structured error types for consistent error handling:
//
//   - AuthError / ForbiddenError: authentication and authorization failures
//   - ValidationError: invalid request input
//   - OverloadError / RateLimitError: admission rejections
//   - Common sentinel errors: ErrNotFound, ErrTimeout, etc.
//
// # Error Envelope
//
// Every failed request is answered with the same JSON body:
//
//	{"code": "not_found", "message": "...", "request_id": "req-123"}
//
// util.RespondError derives status and code from the error taxonomy;
// util.WriteError writes the envelope directly.
//
// # Validation
//
// Input validation helpers for URLs, durations, and addresses:
//
//	err := util.ValidateURL("https://example.com")
//	err := util.ValidateListenAddr("0.0.0.0")
package util
