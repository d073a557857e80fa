// Package router holds the immutable route table and the dispatcher
// that resolves requests to handlers.
package router

import (
	"net/http"
	"strings"
)

// AuthMode is a route's authentication requirement.
type AuthMode string

const (
	// AuthRequired demands a valid bearer token.
	AuthRequired AuthMode = "required"

	// AuthRefresh validates signature and audience but ignores
	// expiry, for the token refresh route.
	AuthRefresh AuthMode = "refresh"

	// AuthNone skips authentication entirely.
	AuthNone AuthMode = "none"
)

// Requirement is what the auth middleware needs to know about a route
// before the request reaches its handler.
type Requirement struct {
	// Auth is the authentication mode.
	Auth AuthMode

	// Scope is the claim required by AuthRequired routes; empty
	// means any authenticated caller.
	Scope string
}

// Route is one entry in the table.
type Route struct {
	// Method is the HTTP method.
	Method string

	// Pattern is the path pattern; `{name}` segments capture one
	// path element.
	Pattern string

	// Requirement is the route's auth requirement.
	Requirement Requirement

	// Handler serves matched requests.
	Handler http.Handler

	segments []segment
}

type segment struct {
	literal string
	param   string
}

func parsePattern(pattern string) []segment {
	parts := strings.Split(strings.Trim(pattern, "/"), "/")
	segments := make([]segment, 0, len(parts))
	for _, part := range parts {
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			segments = append(segments, segment{param: part[1 : len(part)-1]})
			continue
		}
		segments = append(segments, segment{literal: part})
	}
	return segments
}

// match tests a request path against the route pattern and returns the
// captured parameters.
func (r *Route) match(path string) (map[string]string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != len(r.segments) {
		return nil, false
	}

	var params map[string]string
	for i, seg := range r.segments {
		if seg.param != "" {
			if parts[i] == "" {
				return nil, false
			}
			if params == nil {
				params = make(map[string]string, 1)
			}
			params[seg.param] = parts[i]
			continue
		}
		if seg.literal != parts[i] {
			return nil, false
		}
	}

	return params, true
}

// specificity counts literal segments so that, among routes with equal
// length, the one with fewer parameters wins.
func (r *Route) specificity() int {
	n := 0
	for _, seg := range r.segments {
		if seg.param == "" {
			n++
		}
	}
	return n
}
