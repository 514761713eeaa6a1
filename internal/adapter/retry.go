package adapter

import (
	"context"
	"time"
)

const (
	// DefaultMaxAttempts is the total number of upstream calls per exchange.
	DefaultMaxAttempts = 3

	// DefaultRetryDelay is the fixed pause between attempts.
	DefaultRetryDelay = 1 * time.Second
)

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// RetryPolicy retries every failure with a fixed delay.
//
// Exchanges fail for two reasons: the transport (network error, non-2xx) or
// extraction (the reply path yields nothing). Both are retried identically.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetryPolicy returns 3 attempts with a 1s pause between them.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: DefaultMaxAttempts, Delay: DefaultRetryDelay}
}

// Execute runs fn until it succeeds or MaxAttempts is reached, sleeping Delay
// between attempts. It returns the number of attempts made and the last error.
// Cancellation of ctx stops the loop immediately with ctx.Err().
func (p RetryPolicy) Execute(ctx context.Context, sleep SleepFunc, fn func(attempt int) error) (int, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}
		err := fn(attempt)
		if err == nil {
			return attempt, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return attempt, ctx.Err()
		}
		if attempt < maxAttempts {
			if err := sleep(ctx, p.Delay); err != nil {
				return attempt, err
			}
		}
	}
	return maxAttempts, lastErr
}

// sleepContext is the default SleepFunc.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
