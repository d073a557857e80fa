package middleware

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/searchsvc/gateway/internal/config"
	"github.com/searchsvc/gateway/internal/observability"
)

// Admission outcomes for requests that were not admitted.
var (
	// ErrQueueFull indicates the wait queue had no room.
	ErrQueueFull = errors.New("admission queue is full")
	// ErrQueueTimeout indicates the queued request gave up waiting.
	ErrQueueTimeout = errors.New("admission queue wait timed out")
	// ErrShed indicates the queue wait exceeded the shed threshold.
	ErrShed = errors.New("request shed under load")
)

// Defaults applied when the config leaves a field zero.
const (
	defaultMaxInflight  = 1024
	defaultQueueTimeout = 5 * time.Second

	// slotPollInterval is how often a queued request re-checks for a
	// free slot.
	slotPollInterval = 10 * time.Millisecond
)

// Limiter is the concurrency ceiling shared by the LoadShed and
// Admission middlewares. Inflight never exceeds the ceiling; the count
// is maintained with a CAS loop so concurrent acquires cannot
// overshoot.
type Limiter struct {
	max           int64
	current       atomic.Int64
	queueDepth    int
	queueTimeout  time.Duration
	shedThreshold time.Duration
	queue         chan struct{}
	logger        observability.Logger
}

// LimiterOption is a functional option for the limiter.
type LimiterOption func(*Limiter)

// WithLimiterLogger sets the logger.
func WithLimiterLogger(logger observability.Logger) LimiterOption {
	return func(l *Limiter) {
		l.logger = logger
	}
}

// NewLimiter creates a limiter from the backpressure config.
func NewLimiter(cfg config.BackpressureConfig, opts ...LimiterOption) *Limiter {
	maxInflight := cfg.MaxInflight
	if maxInflight <= 0 {
		maxInflight = defaultMaxInflight
	}
	queueTimeout := cfg.QueueTimeout.Duration()
	if queueTimeout <= 0 {
		queueTimeout = defaultQueueTimeout
	}

	l := &Limiter{
		max:           int64(maxInflight),
		queueDepth:    cfg.QueueDepth,
		queueTimeout:  queueTimeout,
		shedThreshold: cfg.ShedThreshold.Duration(),
		logger:        observability.NopLogger(),
	}
	if l.queueDepth > 0 {
		l.queue = make(chan struct{}, l.queueDepth)
	}

	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire claims one inflight slot, queuing up to the configured depth
// when the ceiling is reached. The returned error classifies the
// rejection; a nil return must be paired with exactly one Release.
func (l *Limiter) Acquire(ctx context.Context) error {
	if l.tryAcquire() {
		return nil
	}

	if l.queueDepth == 0 {
		return ErrQueueFull
	}

	select {
	case l.queue <- struct{}{}:
	default:
		return ErrQueueFull
	}
	defer func() { <-l.queue }()

	return l.waitForSlot(ctx)
}

// tryAcquire claims a slot below the ceiling without waiting.
func (l *Limiter) tryAcquire() bool {
	for {
		current := l.current.Load()
		if current >= l.max {
			return false
		}
		if l.current.CompareAndSwap(current, current+1) {
			return true
		}
	}
}

// waitForSlot polls for a free slot until the queue timeout or the
// shed threshold elapses.
func (l *Limiter) waitForSlot(ctx context.Context) error {
	start := time.Now()

	waitCtx, cancel := context.WithTimeout(ctx, l.queueTimeout)
	defer cancel()

	ticker := time.NewTicker(slotPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return ErrQueueTimeout
		case <-ticker.C:
			if l.shedThreshold > 0 && time.Since(start) > l.shedThreshold {
				return ErrShed
			}
			if l.tryAcquire() {
				return nil
			}
		}
	}
}

// Release returns one slot. The floor at zero keeps a stray double
// release from corrupting the count.
func (l *Limiter) Release() {
	for {
		current := l.current.Load()
		if current <= 0 {
			l.logger.Error("inflight release below zero")
			return
		}
		if l.current.CompareAndSwap(current, current-1) {
			return
		}
	}
}

// Inflight returns the number of currently admitted requests.
func (l *Limiter) Inflight() int64 {
	return l.current.Load()
}

// Saturated reports whether both the ceiling and the queue are full,
// the point at which queuing another request is futile.
func (l *Limiter) Saturated() bool {
	if l.current.Load() < l.max {
		return false
	}
	if l.queueDepth == 0 {
		return true
	}
	return len(l.queue) >= l.queueDepth
}
