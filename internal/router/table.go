package router

import (
	"fmt"
	"sort"
	"strings"
)

// Table is the immutable route table. It is built once at startup and
// safe for unsynchronized concurrent reads.
type Table struct {
	routes []*Route
}

// NewTable builds a table from routes. Patterns are validated and the
// routes ordered most-specific first, so a literal segment always
// beats a parameter at match time.
func NewTable(routes []Route) (*Table, error) {
	t := &Table{routes: make([]*Route, 0, len(routes))}

	seen := make(map[string]struct{}, len(routes))
	for i := range routes {
		r := routes[i]
		if r.Method == "" || !strings.HasPrefix(r.Pattern, "/") {
			return nil, fmt.Errorf("route %s %q: method and absolute pattern required", r.Method, r.Pattern)
		}

		key := r.Method + " " + r.Pattern
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("duplicate route %s", key)
		}
		seen[key] = struct{}{}

		r.segments = parsePattern(r.Pattern)
		t.routes = append(t.routes, &r)
	}

	sort.SliceStable(t.routes, func(i, j int) bool {
		return t.routes[i].specificity() > t.routes[j].specificity()
	})

	return t, nil
}

// Match resolves a method and path to a route and its path parameters.
func (t *Table) Match(method, path string) (*Route, map[string]string, bool) {
	for _, r := range t.routes {
		if r.Method != method {
			continue
		}
		if params, ok := r.match(path); ok {
			return r, params, true
		}
	}
	return nil, nil, false
}

// Lookup returns the auth requirement for a method and path. Unmatched
// paths carry no requirement and fall through to the dispatcher's 404.
func (t *Table) Lookup(method, path string) Requirement {
	if r, _, ok := t.Match(method, path); ok {
		return r.Requirement
	}
	return Requirement{Auth: AuthNone}
}

// Routes returns the table's routes, for introspection in logs.
func (t *Table) Routes() []*Route {
	out := make([]*Route, len(t.routes))
	copy(out, t.routes)
	return out
}
