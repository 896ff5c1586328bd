// Package retry provides a small bounded-retry combinator shared by
// operations that talk to flaky device-side tooling.
package retry

import (
	"context"
	"time"
)

// BackoffFunc returns the delay to sleep before the given attempt (1-based).
type BackoffFunc func(attempt int) time.Duration

// Exponential returns 2^attempt units, capped at max.
func Exponential(unit, max time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		d := unit << uint(attempt)
		if max > 0 && d > max {
			return max
		}
		return d
	}
}

// Fixed always returns the same delay.
func Fixed(d time.Duration) BackoffFunc {
	return func(int) time.Duration { return d }
}

// Do runs op up to attempts times, sleeping backoff(n) between failures.
// It stops early on success or when ctx is cancelled, returning the last
// error observed.
func Do(ctx context.Context, attempts int, backoff BackoffFunc, op func(attempt int) error) error {
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = op(attempt)
		if lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		delay := time.Duration(0)
		if backoff != nil {
			delay = backoff(attempt)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}
