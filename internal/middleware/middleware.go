package middleware

import "net/http"

// Middleware wraps an http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Chain composes middlewares around a handler. The first middleware in
// the list becomes the outermost wrapper.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// exemptPaths are the probe endpoints that bypass auth, rate limiting,
// load shedding and admission.
var exemptPaths = map[string]struct{}{
	"/health": {},
	"/ready":  {},
	"/live":   {},
}

func exempt(path string) bool {
	_, ok := exemptPaths[path]
	return ok
}
