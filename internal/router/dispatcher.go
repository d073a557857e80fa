package router

import (
	"net/http"

	"github.com/searchsvc/gateway/internal/observability"
	"github.com/searchsvc/gateway/internal/util"
)

// Dispatcher resolves requests against the table and invokes the
// matched route's handler. It sits at the inner end of the middleware
// chain.
type Dispatcher struct {
	table  *Table
	logger observability.Logger
}

// DispatcherOption is a functional option for the dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// NewDispatcher creates a dispatcher over an immutable table.
func NewDispatcher(table *Table, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		table:  table,
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ServeHTTP implements http.Handler. Unmatched requests get the 404
// envelope; matched ones run with route name and path parameters in
// the request context.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	route, params, ok := d.table.Match(r.Method, r.URL.Path)
	if !ok {
		d.logger.Debug("no route matched",
			observability.String("method", r.Method),
			observability.String("path", r.URL.Path),
		)
		util.WriteError(r.Context(), w, http.StatusNotFound, util.CodeNotFound, "resource not found")
		return
	}

	ctx := util.ContextWithRoute(r.Context(), route.Pattern)
	if params != nil {
		ctx = util.ContextWithPathParams(ctx, params)
	}

	route.Handler.ServeHTTP(w, r.WithContext(ctx))
}
