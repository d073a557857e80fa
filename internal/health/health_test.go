package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckerNoChecks(t *testing.T) {
	t.Parallel()

	c := NewChecker()
	report := c.Run(context.Background())

	assert.Equal(t, StatusOK, report.Status)
	assert.Empty(t, report.Checks)
}

func TestCheckerAllPassing(t *testing.T) {
	t.Parallel()

	c := NewChecker()
	c.RegisterCheck("search", func(ctx context.Context) error { return nil })
	c.RegisterCheck("state", func(ctx context.Context) error { return nil })

	report := c.Run(context.Background())

	assert.Equal(t, StatusOK, report.Status)
	assert.Len(t, report.Checks, 2)
	assert.Equal(t, StatusOK, report.Checks["search"].Status)
}

func TestCheckerCriticalFailure(t *testing.T) {
	t.Parallel()

	c := NewChecker()
	c.RegisterCheck("search", func(ctx context.Context) error { return nil })
	c.RegisterCheck("state", func(ctx context.Context) error {
		return errors.New("connection refused")
	})

	report := c.Run(context.Background())

	assert.Equal(t, StatusUnhealthy, report.Status)
	assert.Equal(t, StatusUnhealthy, report.Checks["state"].Status)
	assert.Contains(t, report.Checks["state"].Message, "connection refused")
}

func TestCheckerNonCriticalDegrades(t *testing.T) {
	t.Parallel()

	c := NewChecker()
	c.RegisterCheck("search", func(ctx context.Context) error { return nil })
	c.RegisterCheck("redis", func(ctx context.Context) error {
		return errors.New("redis down")
	}, NonCritical())

	report := c.Run(context.Background())

	assert.Equal(t, StatusDegraded, report.Status)
	assert.Equal(t, StatusDegraded, report.Checks["redis"].Status)
}

func TestCheckerCriticalOutranksDegraded(t *testing.T) {
	t.Parallel()

	c := NewChecker()
	c.RegisterCheck("redis", func(ctx context.Context) error {
		return errors.New("redis down")
	}, NonCritical())
	c.RegisterCheck("state", func(ctx context.Context) error {
		return errors.New("state down")
	})

	report := c.Run(context.Background())
	assert.Equal(t, StatusUnhealthy, report.Status)
}

func TestCheckerTimeoutApplies(t *testing.T) {
	t.Parallel()

	c := NewChecker(WithCheckTimeout(20 * time.Millisecond))
	c.RegisterCheck("slow", func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
			return nil
		}
	})

	start := time.Now()
	report := c.Run(context.Background())

	require.Less(t, time.Since(start), time.Second)
	assert.Equal(t, StatusUnhealthy, report.Status)
}

func TestHealthHandler(t *testing.T) {
	t.Parallel()

	c := NewChecker()
	c.RegisterCheck("search", func(ctx context.Context) error { return nil })

	rec := httptest.NewRecorder()
	c.HealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var report Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, StatusOK, report.Status)
	assert.Contains(t, report.Checks, "search")
}

func TestHealthHandlerUnhealthy(t *testing.T) {
	t.Parallel()

	c := NewChecker()
	c.RegisterCheck("state", func(ctx context.Context) error {
		return errors.New("down")
	})

	rec := httptest.NewRecorder()
	c.HealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestReadyHandlerBeforeStart(t *testing.T) {
	t.Parallel()

	c := NewChecker()

	rec := httptest.NewRecorder()
	c.ReadyHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	c.SetStarted()

	rec = httptest.NewRecorder()
	c.ReadyHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLiveHandlerAlwaysOK(t *testing.T) {
	t.Parallel()

	c := NewChecker()
	c.RegisterCheck("state", func(ctx context.Context) error {
		return errors.New("down")
	})

	rec := httptest.NewRecorder()
	c.LiveHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/live", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
