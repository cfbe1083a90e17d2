package adapter

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// ErrMaxAttemptsExceeded is returned when every attempt has been exhausted.
var ErrMaxAttemptsExceeded = errors.New("max attempts exceeded")

// RetryConfig bounds the adapter-internal retry loop. The attempt count is
// caller-supplied; the pipeline core never retries on its own.
type RetryConfig struct {
	// MaxAttempts is the total number of tries (1 = no retries).
	MaxAttempts int
	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration
	// MaxBackoff caps the delay between retries.
	MaxBackoff time.Duration
	// BackoffMultiplier is the factor by which backoff increases.
	BackoffMultiplier float64
	// Jitter adds randomness to backoff to prevent thundering herd.
	Jitter bool
}

// DefaultRetryConfig returns the single-attempt default used for
// remediation dispatch, where blind re-execution is not safe.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       1,
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	}
}

func (c RetryConfig) normalized() RetryConfig {
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 1
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 500 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 5 * time.Second
	}
	if c.BackoffMultiplier <= 0 {
		c.BackoffMultiplier = 2.0
	}
	return c
}

// backoff returns the delay before retry number attempt (0-based).
func (c RetryConfig) backoff(attempt int) time.Duration {
	d := time.Duration(float64(c.InitialBackoff) * math.Pow(c.BackoffMultiplier, float64(attempt)))
	if d > c.MaxBackoff {
		d = c.MaxBackoff
	}
	if c.Jitter && d > 0 {
		// Up to 25% extra, non-cryptographic randomness is fine here.
		// #nosec G404
		d += time.Duration(rand.Int63n(int64(d / 4)))
	}
	return d
}

// withRetries runs fn up to MaxAttempts times with backoff between tries,
// honouring context cancellation. The last error is wrapped in
// ErrMaxAttemptsExceeded when all attempts fail.
func withRetries(ctx context.Context, cfg RetryConfig, fn func() error) error {
	cfg = cfg.normalized()

	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if lastErr = fn(); lastErr == nil {
			return nil
		}

		if attempt < cfg.MaxAttempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(cfg.backoff(attempt)):
			}
		}
	}
	return fmt.Errorf("%w: %v", ErrMaxAttemptsExceeded, lastErr)
}
