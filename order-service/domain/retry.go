package domain

import (
	"context"
	"time"
)

// RetryPolicy controls retries of raised activity failures. The backoff is a
// fixed interval: every retry waits the same configured delay. Business
// failures carried in a normal result are never retried.
type RetryPolicy struct {
	MaxAttempts int
	Interval    time.Duration
}

// DefaultRetryPolicy returns the standard policy for saga steps
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Interval:    2000 * time.Millisecond,
	}
}

// NoRetryPolicy returns a single-attempt policy, used for best-effort calls
func NoRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 1,
		Interval:    0,
	}
}

// ShouldRetry reports whether another attempt may follow the given one
func (p RetryPolicy) ShouldRetry(attempt int) bool {
	return attempt >= 1 && attempt < p.MaxAttempts
}

// BackoffDelay returns the delay before the next attempt
func (p RetryPolicy) BackoffDelay() time.Duration {
	return p.Interval
}

// Sleeper abstracts delay so orchestrations and simulated activities can be
// tested without wall-clock waits
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemSleeper sleeps on the wall clock
type SystemSleeper struct{}

// Sleep blocks for d or until the context is cancelled
func (SystemSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
