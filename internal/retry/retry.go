// Package retry provides context-aware retry with exponential backoff
// and jitter, used by the backend clients for idempotent requests.
package retry

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

const (
	// DefaultMaxAttempts is the default number of attempts, the
	// first try included.
	DefaultMaxAttempts = 3

	// DefaultInitialBackoff is the default initial backoff.
	DefaultInitialBackoff = 100 * time.Millisecond

	// DefaultMaxBackoff caps the backoff growth.
	DefaultMaxBackoff = 2 * time.Second

	// DefaultJitterFactor adds 25% random jitter to each backoff.
	DefaultJitterFactor = 0.25
)

// Config controls retry behavior.
type Config struct {
	// MaxAttempts is the total number of attempts. Values below 1
	// fall back to the default.
	MaxAttempts int

	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff caps the exponential growth.
	MaxBackoff time.Duration

	// JitterFactor is the random jitter fraction, 0 to 1.
	JitterFactor float64
}

// DefaultConfig returns the default retry configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts:    DefaultMaxAttempts,
		InitialBackoff: DefaultInitialBackoff,
		MaxBackoff:     DefaultMaxBackoff,
		JitterFactor:   DefaultJitterFactor,
	}
}

func (c *Config) maxAttempts() int {
	if c == nil || c.MaxAttempts < 1 {
		return DefaultMaxAttempts
	}
	return c.MaxAttempts
}

func (c *Config) initialBackoff() time.Duration {
	if c == nil || c.InitialBackoff <= 0 {
		return DefaultInitialBackoff
	}
	return c.InitialBackoff
}

func (c *Config) maxBackoff() time.Duration {
	if c == nil || c.MaxBackoff <= 0 {
		return DefaultMaxBackoff
	}
	return c.MaxBackoff
}

func (c *Config) jitterFactor() float64 {
	if c == nil || c.JitterFactor <= 0 {
		return DefaultJitterFactor
	}
	if c.JitterFactor > 1 {
		return 1
	}
	return c.JitterFactor
}

// Func is the operation being retried.
type Func func(ctx context.Context) error

// ShouldRetryFunc reports whether an error is worth retrying.
type ShouldRetryFunc func(error) bool

// OnRetryFunc is called before each retry sleep.
type OnRetryFunc func(attempt int, err error, backoff time.Duration)

// Options carries optional retry behavior.
type Options struct {
	// ShouldRetry filters retryable errors. Nil retries everything.
	ShouldRetry ShouldRetryFunc

	// OnRetry observes each retry attempt.
	OnRetry OnRetryFunc
}

// Do runs fn until it succeeds, the attempts are exhausted, the error
// is not retryable, or the context is done. The context error wins
// over the last attempt error when cancellation interrupts a sleep.
func Do(ctx context.Context, cfg *Config, fn Func, opts *Options) error {
	attempts := cfg.maxAttempts()

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if opts != nil && opts.ShouldRetry != nil && !opts.ShouldRetry(lastErr) {
			return lastErr
		}

		if attempt == attempts-1 {
			break
		}

		backoff := Backoff(attempt, cfg.initialBackoff(), cfg.maxBackoff(), cfg.jitterFactor())
		if opts != nil && opts.OnRetry != nil {
			opts.OnRetry(attempt+1, lastErr, backoff)
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}

// Backoff computes the sleep before retry number attempt+1.
func Backoff(attempt int, initial, max time.Duration, jitter float64) time.Duration {
	backoff := float64(initial) * math.Pow(2, float64(attempt))
	if backoff > float64(max) {
		backoff = float64(max)
	}

	//nolint:gosec // G404: jitter timing is not security-sensitive
	backoff += backoff * jitter * rand.Float64()
	if backoff > float64(max) {
		backoff = float64(max)
	}

	return time.Duration(backoff)
}
