// Package middleware provides the HTTP guards that wrap the dispatcher.
//
// The chain, outermost first: Recovery, RequestID, Tracing, AccessLog,
// Metrics, RateLimit, Auth, LoadShed, Admission, Timeout. Each guard is
// a func(http.Handler) http.Handler so the assembly can compose any
// subset based on configuration. The health probe paths (/health,
// /ready, /live) are exempt from auth, rate limiting, load shedding and
// admission so liveness stays observable under overload.
package middleware
