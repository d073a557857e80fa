// Package health provides the dependency checker behind the gateway's
// probe endpoints.
package health

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/searchsvc/gateway/internal/observability"
)

// Status is the aggregate or per-check health state.
type Status string

const (
	// StatusOK indicates all checks pass.
	StatusOK Status = "ok"
	// StatusDegraded indicates a non-critical check fails.
	StatusDegraded Status = "degraded"
	// StatusUnhealthy indicates a critical check fails.
	StatusUnhealthy Status = "unhealthy"
)

// defaultCheckTimeout bounds a single dependency check.
const defaultCheckTimeout = 5 * time.Second

// CheckFunc probes one dependency. A nil return means healthy.
type CheckFunc func(ctx context.Context) error

// CheckResult is the outcome of one dependency check.
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// Report is the aggregate outcome of all registered checks.
type Report struct {
	Status Status                 `json:"status"`
	Checks map[string]CheckResult `json:"checks,omitempty"`
}

// check is one registered dependency check.
type check struct {
	fn       CheckFunc
	critical bool
}

// Checker runs registered dependency checks and aggregates their
// results. Critical failures make the service unhealthy, non-critical
// ones degrade it.
type Checker struct {
	mu      sync.RWMutex
	checks  map[string]check
	started atomic.Bool

	checkTimeout time.Duration
	logger       observability.Logger
}

// CheckerOption is a functional option for the checker.
type CheckerOption func(*Checker)

// WithCheckTimeout bounds each individual check.
func WithCheckTimeout(timeout time.Duration) CheckerOption {
	return func(c *Checker) {
		c.checkTimeout = timeout
	}
}

// WithCheckerLogger sets the logger.
func WithCheckerLogger(logger observability.Logger) CheckerOption {
	return func(c *Checker) {
		c.logger = logger
	}
}

// NewChecker creates an empty checker.
func NewChecker(opts ...CheckerOption) *Checker {
	c := &Checker{
		checks:       make(map[string]check),
		checkTimeout: defaultCheckTimeout,
		logger:       observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CheckOption configures one registered check.
type CheckOption func(*check)

// NonCritical marks a check as degrading rather than failing the
// service.
func NonCritical() CheckOption {
	return func(c *check) {
		c.critical = false
	}
}

// RegisterCheck adds a named dependency check. Checks are critical
// unless marked otherwise.
func (c *Checker) RegisterCheck(name string, fn CheckFunc, opts ...CheckOption) {
	chk := check{fn: fn, critical: true}
	for _, opt := range opts {
		opt(&chk)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = chk
}

// SetStarted marks startup complete; the readiness probe fails until
// this is called.
func (c *Checker) SetStarted() {
	c.started.Store(true)
}

// Started reports whether startup has completed.
func (c *Checker) Started() bool {
	return c.started.Load()
}

// Run executes all registered checks and aggregates the report.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	checks := make(map[string]check, len(c.checks))
	for name, chk := range c.checks {
		checks[name] = chk
	}
	c.mu.RUnlock()

	report := Report{
		Status: StatusOK,
		Checks: make(map[string]CheckResult, len(checks)),
	}

	for name, chk := range checks {
		result := c.runOne(ctx, name, chk)
		report.Checks[name] = result

		if result.Status == StatusOK {
			continue
		}
		if chk.critical {
			report.Status = StatusUnhealthy
		} else if report.Status != StatusUnhealthy {
			report.Status = StatusDegraded
		}
	}

	return report
}

func (c *Checker) runOne(ctx context.Context, name string, chk check) CheckResult {
	checkCtx, cancel := context.WithTimeout(ctx, c.checkTimeout)
	defer cancel()

	if err := chk.fn(checkCtx); err != nil {
		c.logger.Warn("health check failed",
			observability.String("check", name),
			observability.Bool("critical", chk.critical),
			observability.Error(err),
		)
		status := StatusUnhealthy
		if !chk.critical {
			status = StatusDegraded
		}
		return CheckResult{Status: status, Message: err.Error()}
	}
	return CheckResult{Status: StatusOK}
}
