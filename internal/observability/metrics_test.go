package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/searchsvc/gateway/internal/util"
)

func newTestCollector(name string) prometheus.Collector {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: name,
		Help: "test collector",
	})
}

func TestNewMetrics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		namespace string
	}{
		{
			name:      "with custom namespace",
			namespace: "custom",
		},
		{
			name:      "with empty namespace uses default",
			namespace: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			metrics := NewMetrics(tt.namespace)

			assert.NotNil(t, metrics)
			assert.NotNil(t, metrics.requestsTotal)
			assert.NotNil(t, metrics.requestDuration)
			assert.NotNil(t, metrics.requestsInflight)
			assert.NotNil(t, metrics.shedTotal)
			assert.NotNil(t, metrics.rateLimited)
			assert.NotNil(t, metrics.authFailures)
			assert.NotNil(t, metrics.backendRequests)
			assert.NotNil(t, metrics.backendHealth)
			assert.NotNil(t, metrics.circuitBreaker)
			assert.NotNil(t, metrics.registry)
		})
	}
}

func TestMetrics_RecordRequest(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics("test")

	metrics.RecordRequest(
		"GET",
		"search",
		200,
		100*time.Millisecond,
		0,
		2048,
	)

	families, err := metrics.Registry().Gather()
	require.NoError(t, err)

	var found *dto.MetricFamily
	for _, mf := range families {
		if mf.GetName() == "test_requests_total" {
			found = mf
			break
		}
	}
	require.NotNil(t, found)
	require.Len(t, found.GetMetric(), 1)
	assert.Equal(t, float64(1), found.GetMetric()[0].GetCounter().GetValue())

	labels := map[string]string{}
	for _, lp := range found.GetMetric()[0].GetLabel() {
		labels[lp.GetName()] = lp.GetValue()
	}
	assert.Equal(t, "GET", labels["method"])
	assert.Equal(t, "search", labels["route"])
	assert.Equal(t, "200", labels["status"])
}

func TestMetrics_Inflight(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics("test")

	metrics.IncInflight()
	metrics.IncInflight()
	metrics.DecInflight()

	families, err := metrics.Registry().Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() == "test_requests_inflight" {
			assert.Equal(t, float64(1), mf.GetMetric()[0].GetGauge().GetValue())
			return
		}
	}
	t.Fatal("requests_inflight metric not found")
}

func TestMetrics_RecordShed(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics("test")

	// Should not panic
	metrics.RecordShed(util.OverloadReasonQueueFull)
	metrics.RecordShed(util.OverloadReasonQueueTimeout)
}

func TestMetrics_RecordRateLimited(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics("test")

	// Should not panic
	metrics.RecordRateLimited("search")
}

func TestMetrics_RecordAuthFailure(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics("test")

	// Should not panic
	metrics.RecordAuthFailure(util.AuthReasonTokenExpired)
}

func TestMetrics_RecordBackendRequest(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics("test")

	// Should not panic
	metrics.RecordBackendRequest("search", "200", 50*time.Millisecond)
	metrics.RecordBackendRequest("state", "502", 10*time.Millisecond)
}

func TestMetrics_SetBackendHealth(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics("test")

	// Should not panic
	metrics.SetBackendHealth("search", true)
	metrics.SetBackendHealth("state", false)
}

func TestMetrics_SetCircuitBreakerState(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics("test")

	// Should not panic
	metrics.SetCircuitBreakerState("search", 0) // Closed
	metrics.SetCircuitBreakerState("search", 1) // Half-open
	metrics.SetCircuitBreakerState("search", 2) // Open
}

func TestMetrics_InitVecMetrics(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics("test")
	metrics.InitVecMetrics()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, req)

	assert.Contains(t, rec.Body.String(), "test_shed_total")
	assert.Contains(t, rec.Body.String(), "test_circuit_breaker_state")
}

func TestMetrics_Handler(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics("test")
	handler := metrics.Handler()

	assert.NotNil(t, handler)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	// Should contain some metrics
	assert.Contains(t, rec.Body.String(), "go_")
}

func TestMetricsMiddleware(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics("test")
	middleware := MetricsMiddleware(metrics)

	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsMiddleware_UsesRouteFromContext(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics("test")
	middleware := MetricsMiddleware(metrics)

	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("created"))
	}))

	req := httptest.NewRequest(http.MethodPost, "/token", nil)
	req = req.WithContext(util.ContextWithRoute(req.Context(), "token_issue"))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)

	families, err := metrics.Registry().Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != "test_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "route" {
					assert.Equal(t, "token_issue", lp.GetValue())
					return
				}
			}
		}
	}
	t.Fatal("requests_total metric with route label not found")
}

func TestMetricsMiddleware_UnmatchedRoute(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics("test")
	middleware := MetricsMiddleware(metrics)

	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	families, err := metrics.Registry().Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != "test_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "route" {
					assert.Equal(t, unmatchedRoute, lp.GetValue())
					return
				}
			}
		}
	}
	t.Fatal("requests_total metric not found")
}

func TestMetrics_RegisterCollector(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics("test")

	err := metrics.RegisterCollector(newTestCollector("test_extra_total"))
	assert.NoError(t, err)

	// Registering the same name again conflicts
	err = metrics.RegisterCollector(newTestCollector("test_extra_total"))
	assert.Error(t, err)
}
