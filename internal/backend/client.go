// Package backend provides the HTTP clients for the search and state
// services. Each client wraps a pooled http.Client with a circuit
// breaker, bearer authentication, and retries for idempotent calls.
package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/searchsvc/gateway/internal/config"
	"github.com/searchsvc/gateway/internal/observability"
	"github.com/searchsvc/gateway/internal/retry"
)

const (
	userAgent = "search-gateway"

	// maxBodyBytes bounds how much of a backend response is read.
	maxBodyBytes = 4 << 20

	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultIdleConnTimeout     = 90 * time.Second
)

// client is the shared base for the search and state clients.
type client struct {
	name       string
	baseURL    string
	token      string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	retryCfg   *retry.Config
	logger     observability.Logger
	metrics    *observability.Metrics
}

// Option is a functional option shared by both clients.
type Option func(*client)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(c *client) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(c *client) {
		c.metrics = metrics
	}
}

// WithToken sets the bearer token sent on every request.
func WithToken(token string) Option {
	return func(c *client) {
		c.token = token
	}
}

// WithHTTPClient replaces the underlying http.Client, used by tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

func newClient(name string, cfg config.BackendConfig, opts ...Option) (*client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("backend %s: base URL is required", name)
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("backend %s: invalid base URL: %w", name, err)
	}

	c := &client{
		name:    name,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		logger:  observability.NopLogger(),
		httpClient: &http.Client{
			Timeout: cfg.Timeout.Duration(),
			Transport: &http.Transport{
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
			},
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	if cfg.Breaker.Enabled {
		c.breaker = newBreaker(name, cfg.Breaker, c.logger, c.metrics)
	}
	if cfg.Retry.Enabled {
		c.retryCfg = &retry.Config{
			MaxAttempts:    cfg.Retry.MaxAttempts,
			InitialBackoff: cfg.Retry.InitialInterval.Duration(),
			MaxBackoff:     cfg.Retry.MaxInterval.Duration(),
		}
	}

	return c, nil
}

func newBreaker(
	name string,
	cfg config.BreakerConfig,
	logger observability.Logger,
	metrics *observability.Metrics,
) *gobreaker.CircuitBreaker {
	minRequests := uint32(cfg.MinRequests)
	if minRequests == 0 {
		minRequests = 3
	}
	failureRatio := cfg.FailureRatio
	if failureRatio <= 0 {
		failureRatio = 0.5
	}
	openTimeout := cfg.OpenTimeout.Duration()

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= failureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				observability.String("backend", name),
				observability.String("from", from.String()),
				observability.String("to", to.String()),
			)
			if metrics != nil {
				metrics.SetCircuitBreakerState(name, breakerStateValue(to))
			}
		},
	})
}

func breakerStateValue(state gobreaker.State) int {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}

// response is a fully-read backend response.
type response struct {
	status int
	header http.Header
	body   []byte
}

// do performs one HTTP exchange through the breaker. GET requests are
// retried when a retry config is present; everything else gets exactly
// one attempt.
func (c *client) do(ctx context.Context, method, path string, query url.Values, body []byte, header http.Header) (*response, error) {
	var resp *response

	call := func(ctx context.Context) error {
		r, err := c.roundTrip(ctx, method, path, query, body, header)
		if err != nil {
			return err
		}
		resp = r
		return nil
	}

	fn := func(ctx context.Context) error {
		if c.breaker == nil {
			return call(ctx)
		}
		_, err := c.breaker.Execute(func() (interface{}, error) {
			return nil, call(ctx)
		})
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return newError(c.name, KindUnavailable, "circuit breaker open", err)
		}
		return err
	}

	if method == http.MethodGet && c.retryCfg != nil {
		err := retry.Do(ctx, c.retryCfg, fn, &retry.Options{
			ShouldRetry: isRetryable,
			OnRetry: func(attempt int, err error, backoff time.Duration) {
				c.logger.Debug("retrying backend request",
					observability.String("backend", c.name),
					observability.String("path", path),
					observability.Int("attempt", attempt),
					observability.Duration("backoff", backoff),
					observability.Error(err),
				)
			},
		})
		if err != nil {
			return nil, err
		}
		return resp, nil
	}

	if err := fn(ctx); err != nil {
		return nil, err
	}
	return resp, nil
}

// isRetryable retries transport failures and unavailable responses but
// never circuit-open errors, which would only hammer the breaker.
func isRetryable(err error) bool {
	var be *Error
	if errors.As(err, &be) {
		if be.Kind != KindUnavailable {
			return false
		}
		return !strings.Contains(be.Message, "circuit breaker")
	}
	return true
}

func (c *client) roundTrip(ctx context.Context, method, path string, query url.Values, body []byte, header http.Header) (*response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, newError(c.name, KindUnavailable, "build request", err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	start := time.Now()
	res, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordBackendRequest(c.name, "error", duration)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, newError(c.name, KindUnavailable, "request failed", err)
	}
	defer res.Body.Close()

	if c.metrics != nil {
		c.metrics.RecordBackendRequest(c.name, strconv.Itoa(res.StatusCode), duration)
	}

	data, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return nil, newError(c.name, KindUnavailable, "read response", err)
	}

	if kind, ok := classifyStatus(res.StatusCode); ok {
		return nil, newError(c.name, kind, fmt.Sprintf("%s %s returned %d", method, path, res.StatusCode), nil)
	}

	return &response{status: res.StatusCode, header: res.Header, body: data}, nil
}

// classifyStatus maps non-2xx statuses to error kinds.
func classifyStatus(status int) (Kind, bool) {
	switch {
	case status >= 200 && status < 300:
		return "", false
	case status == http.StatusBadRequest:
		return KindInvalid, true
	case status == http.StatusNotFound:
		return KindNotFound, true
	case status == http.StatusConflict:
		return KindConflict, true
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return KindUnavailable, true
	case status >= 500:
		return KindUnavailable, true
	default:
		return KindUnavailable, true
	}
}

// Ping issues a cheap GET to the backend root for health checks. A
// 4xx answer from the root still proves reachability; transport
// failures, 5xx responses, and context errors do not.
func (c *client) Ping(ctx context.Context) error {
	_, err := c.roundTrip(ctx, http.MethodGet, "/", nil, nil, nil)
	if err == nil {
		return nil
	}
	if IsKind(err, KindNotFound) || IsKind(err, KindInvalid) || IsKind(err, KindConflict) {
		return nil
	}
	return err
}
