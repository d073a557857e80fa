package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/searchsvc/gateway/internal/util"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func testRoutes(t *testing.T) *Table {
	t.Helper()

	table, err := NewTable([]Route{
		{Method: http.MethodGet, Pattern: "/search", Requirement: Requirement{Auth: AuthRequired, Scope: "search"}, Handler: okHandler()},
		{Method: http.MethodGet, Pattern: "/token", Requirement: Requirement{Auth: AuthRefresh}, Handler: okHandler()},
		{Method: http.MethodPost, Pattern: "/token", Requirement: Requirement{Auth: AuthRequired, Scope: "token"}, Handler: okHandler()},
		{Method: http.MethodGet, Pattern: "/state/{key}", Requirement: Requirement{Auth: AuthRequired, Scope: "stats"}, Handler: okHandler()},
		{Method: http.MethodPut, Pattern: "/state/{key}", Requirement: Requirement{Auth: AuthRequired, Scope: "token"}, Handler: okHandler()},
		{Method: http.MethodDelete, Pattern: "/state/{key}", Requirement: Requirement{Auth: AuthRequired, Scope: "token"}, Handler: okHandler()},
		{Method: http.MethodGet, Pattern: "/health", Requirement: Requirement{Auth: AuthNone}, Handler: okHandler()},
	})
	require.NoError(t, err)
	return table
}

func TestTableMatch(t *testing.T) {
	t.Parallel()

	table := testRoutes(t)

	route, params, ok := table.Match(http.MethodGet, "/search")
	require.True(t, ok)
	assert.Equal(t, "/search", route.Pattern)
	assert.Nil(t, params)

	route, params, ok = table.Match(http.MethodPut, "/state/counters")
	require.True(t, ok)
	assert.Equal(t, "/state/{key}", route.Pattern)
	assert.Equal(t, map[string]string{"key": "counters"}, params)
}

func TestTableMatchMethodSensitive(t *testing.T) {
	t.Parallel()

	table := testRoutes(t)

	_, _, ok := table.Match(http.MethodDelete, "/search")
	assert.False(t, ok)

	_, _, ok = table.Match(http.MethodPost, "/token")
	assert.True(t, ok)
}

func TestTableMatchUnknownPath(t *testing.T) {
	t.Parallel()

	table := testRoutes(t)

	_, _, ok := table.Match(http.MethodGet, "/nope")
	assert.False(t, ok)

	_, _, ok = table.Match(http.MethodGet, "/state/a/b")
	assert.False(t, ok, "parameter captures exactly one segment")

	_, _, ok = table.Match(http.MethodGet, "/state/")
	assert.False(t, ok, "empty parameter segment does not match")
}

func TestTablePrefersLiteralOverParam(t *testing.T) {
	t.Parallel()

	literal := false
	table, err := NewTable([]Route{
		{Method: http.MethodGet, Pattern: "/state/{key}", Requirement: Requirement{Auth: AuthNone}, Handler: okHandler()},
		{Method: http.MethodGet, Pattern: "/state/special", Requirement: Requirement{Auth: AuthNone},
			Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { literal = true })},
	})
	require.NoError(t, err)

	route, _, ok := table.Match(http.MethodGet, "/state/special")
	require.True(t, ok)
	assert.Equal(t, "/state/special", route.Pattern)

	route.Handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/state/special", nil))
	assert.True(t, literal)
}

func TestTableLookup(t *testing.T) {
	t.Parallel()

	table := testRoutes(t)

	req := table.Lookup(http.MethodGet, "/search")
	assert.Equal(t, AuthRequired, req.Auth)
	assert.Equal(t, "search", req.Scope)

	req = table.Lookup(http.MethodGet, "/token")
	assert.Equal(t, AuthRefresh, req.Auth)

	req = table.Lookup(http.MethodGet, "/health")
	assert.Equal(t, AuthNone, req.Auth)

	req = table.Lookup(http.MethodGet, "/unknown")
	assert.Equal(t, AuthNone, req.Auth, "unmatched paths carry no auth requirement")
}

func TestNewTableRejectsDuplicates(t *testing.T) {
	t.Parallel()

	_, err := NewTable([]Route{
		{Method: http.MethodGet, Pattern: "/search", Handler: okHandler()},
		{Method: http.MethodGet, Pattern: "/search", Handler: okHandler()},
	})
	assert.Error(t, err)
}

func TestNewTableRejectsRelativePattern(t *testing.T) {
	t.Parallel()

	_, err := NewTable([]Route{
		{Method: http.MethodGet, Pattern: "search", Handler: okHandler()},
	})
	assert.Error(t, err)
}

func TestDispatcherServesMatchedRoute(t *testing.T) {
	t.Parallel()

	var gotRoute string
	var gotParams map[string]string
	table, err := NewTable([]Route{
		{Method: http.MethodGet, Pattern: "/state/{key}", Requirement: Requirement{Auth: AuthNone},
			Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotRoute = util.RouteFromContext(r.Context())
				gotParams = util.PathParamsFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})},
	})
	require.NoError(t, err)

	d := NewDispatcher(table)
	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/state/counters", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/state/{key}", gotRoute)
	assert.Equal(t, map[string]string{"key": "counters"}, gotParams)
}

func TestDispatcherNotFoundEnvelope(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(testRoutes(t))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req = req.WithContext(util.ContextWithRequestID(req.Context(), "req-1"))

	d.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body util.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, util.CodeNotFound, body.Code)
	assert.Equal(t, "req-1", body.RequestID)
}

func TestDispatcherPublishesRouteToRecorder(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(testRoutes(t))

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	ctx := util.ContextWithRouteRecorder(req.Context())
	req = req.WithContext(ctx)

	d.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "/search", util.RouteFromContext(ctx), "outer middleware sees the matched route")
}
