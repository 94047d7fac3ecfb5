// Package resilience provides retry with exponential backoff for
// transient stream and transport failures.
package resilience

import (
	"context"
	"errors"
	"io"
	"math"
	"math/rand"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// RetryConfig holds configuration for retry logic.
type RetryConfig struct {
	MaxAttempts       int           // Maximum number of attempts (including the first)
	InitialBackoff    time.Duration // Backoff before the second attempt
	MaxBackoff        time.Duration // Upper bound for any single backoff
	BackoffMultiplier float64       // Growth factor between attempts
	Jitter            bool          // Randomize each backoff by up to 25%
}

// DefaultRetryConfig returns a default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       5,
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	}
}

// Backoff returns the backoff duration before attempt n (zero-based
// attempt counter: Backoff(0) is the delay after the first failure).
func (c RetryConfig) Backoff(attempt int) time.Duration {
	d := time.Duration(float64(c.InitialBackoff) * math.Pow(c.BackoffMultiplier, float64(attempt)))
	if d > c.MaxBackoff || d <= 0 {
		d = c.MaxBackoff
	}
	if c.Jitter {
		d += time.Duration(rand.Int63n(int64(d)/4 + 1))
	}
	if d > c.MaxBackoff {
		d = c.MaxBackoff
	}
	return d
}

// Do runs fn until it succeeds, the attempt budget is exhausted, a
// non-retryable error occurs, or ctx is cancelled. isRetryable may be nil,
// in which case every error is retried.
func Do(ctx context.Context, cfg RetryConfig, fn func() error, isRetryable func(error) bool) error {
	var lastErr error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if isRetryable != nil && !isRetryable(err) {
			return err
		}
		if attempt == cfg.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(cfg.Backoff(attempt)):
		}
	}
	return lastErr
}

// IsRetryableStreamError reports whether a bidi-stream error is worth
// re-establishing the stream for. EOF covers server-side stream rotation;
// the gRPC codes cover transport loss, service-imposed stream duration
// limits and transient throttling.
func IsRetryableStreamError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) {
		return true
	}
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case codes.Unavailable, codes.Aborted, codes.ResourceExhausted, codes.DeadlineExceeded:
		return true
	default:
		return false
	}
}
