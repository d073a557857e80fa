package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/searchsvc/gateway/internal/config"
	"github.com/searchsvc/gateway/internal/util"
)

func searchConfig(baseURL string) config.BackendConfig {
	return config.BackendConfig{
		BaseURL: baseURL,
		Timeout: config.Duration(5 * time.Second),
	}
}

func retryingConfig(baseURL string) config.BackendConfig {
	cfg := searchConfig(baseURL)
	cfg.Retry = config.RetryConfig{
		Enabled:         true,
		MaxAttempts:     3,
		InitialInterval: config.Duration(time.Millisecond),
		MaxInterval:     config.Duration(5 * time.Millisecond),
	}
	return cfg
}

func TestSearchQuery(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/index/query", r.URL.Path)
		assert.Equal(t, "rifle", r.URL.Query().Get("q"))
		assert.Equal(t, "item", r.URL.Query().Get("type"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		assert.Equal(t, "true", r.URL.Query().Get("conjunction"))
		assert.Equal(t, "Bearer backend-token", r.Header.Get("Authorization"))
		assert.Equal(t, "search-gateway", r.Header.Get("User-Agent"))

		_ = json.NewEncoder(w).Encode(queryResponse{
			Documents: []Document{
				{ID: "1", Name: "Rifle", ShortName: "rfl", Type: "item"},
			},
		})
	}))
	defer srv.Close()

	c, err := NewSearchClient(searchConfig(srv.URL), WithToken("backend-token"))
	require.NoError(t, err)

	docs, err := c.Query(context.Background(), QueryParams{
		Term:        "rifle",
		Type:        "item",
		Limit:       10,
		Conjunction: true,
	})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Rifle", docs[0].Name)
}

func TestSearchQueryStatusMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		kind   Kind
	}{
		{"bad request", http.StatusBadRequest, KindInvalid},
		{"not found", http.StatusNotFound, KindNotFound},
		{"timeout", http.StatusRequestTimeout, KindUnavailable},
		{"throttled", http.StatusTooManyRequests, KindUnavailable},
		{"server error", http.StatusInternalServerError, KindUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			c, err := NewSearchClient(searchConfig(srv.URL))
			require.NoError(t, err)

			_, err = c.Query(context.Background(), QueryParams{Term: "x"})
			require.Error(t, err)
			assert.True(t, IsKind(err, tt.kind), "got %v", err)
		})
	}
}

func TestSearchQueryDecodeFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c, err := NewSearchClient(searchConfig(srv.URL))
	require.NoError(t, err)

	_, err = c.Query(context.Background(), QueryParams{Term: "x"})
	assert.True(t, IsKind(err, KindUnavailable))
}

func TestSearchQueryRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(queryResponse{Documents: []Document{{ID: "1", Name: "n", Type: "item"}}})
	}))
	defer srv.Close()

	c, err := NewSearchClient(retryingConfig(srv.URL))
	require.NoError(t, err)

	docs, err := c.Query(context.Background(), QueryParams{Term: "x"})
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestSearchQueryDoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c, err := NewSearchClient(retryingConfig(srv.URL))
	require.NoError(t, err)

	_, err = c.Query(context.Background(), QueryParams{Term: "x"})
	assert.True(t, IsKind(err, KindInvalid))
	assert.Equal(t, int32(1), calls.Load())
}

func TestSearchQueryBreakerOpens(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := searchConfig(srv.URL)
	cfg.Breaker = config.BreakerConfig{
		Enabled:      true,
		MinRequests:  3,
		FailureRatio: 0.5,
		OpenTimeout:  config.Duration(time.Minute),
	}

	c, err := NewSearchClient(cfg)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = c.Query(context.Background(), QueryParams{Term: "x"})
		require.Error(t, err)
	}

	before := calls.Load()
	_, err = c.Query(context.Background(), QueryParams{Term: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, util.ErrBackendUnavail), "open breaker maps to unavailable")
	assert.Equal(t, before, calls.Load(), "open breaker short-circuits the call")
}

func TestSearchQueryContextCancellation(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c, err := NewSearchClient(searchConfig(srv.URL))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = c.Query(ctx, QueryParams{Term: "x"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBackendErrorMatchesSentinel(t *testing.T) {
	t.Parallel()

	err := newError("search", KindUnavailable, "boom", nil)
	assert.True(t, errors.Is(err, util.ErrBackendUnavail))

	notFound := newError("state", KindNotFound, "missing", nil)
	assert.False(t, errors.Is(notFound, util.ErrBackendUnavail))
}

func TestNewSearchClientRequiresBaseURL(t *testing.T) {
	t.Parallel()

	_, err := NewSearchClient(config.BackendConfig{})
	assert.Error(t, err)
}
