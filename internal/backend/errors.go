package backend

import (
	"errors"
	"fmt"

	"github.com/searchsvc/gateway/internal/util"
)

// Kind classifies backend failures for the handlers.
type Kind string

const (
	// KindNotFound maps to 404 at the edge.
	KindNotFound Kind = "not_found"

	// KindInvalid maps to 400 at the edge.
	KindInvalid Kind = "invalid"

	// KindConflict maps to 409 at the edge.
	KindConflict Kind = "conflict"

	// KindUnavailable maps to 502 at the edge. Circuit-open and
	// transport failures land here.
	KindUnavailable Kind = "unavailable"
)

// Error is the error type returned by backend clients.
type Error struct {
	// Backend names the client, "search" or "state".
	Backend string

	// Kind classifies the failure.
	Kind Kind

	// Message describes the failure.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("backend %s: %s: %s: %v", e.Backend, e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("backend %s: %s: %s", e.Backend, e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches util.ErrBackendUnavail for unavailable kinds so callers
// can classify with errors.Is without importing this package's kinds.
func (e *Error) Is(target error) bool {
	if target == util.ErrBackendUnavail {
		return e.Kind == KindUnavailable
	}
	if other, ok := target.(*Error); ok {
		return e.Backend == other.Backend && e.Kind == other.Kind
	}
	return false
}

// IsKind reports whether err is a backend Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var be *Error
	if !errors.As(err, &be) {
		return false
	}
	return be.Kind == kind
}

func newError(backend string, kind Kind, message string, cause error) *Error {
	return &Error{Backend: backend, Kind: kind, Message: message, Cause: cause}
}
