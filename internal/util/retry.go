// ABOUTME: Retry utilities for external service calls with exponential backoff
// ABOUTME: RetryPolicy bounds attempts, applies a per-attempt timeout, and retries only what it is told to
package util

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// CalculateBackoff returns exponential backoff with jitter
// Base delay is doubled each attempt, with random jitter up to 25%
func CalculateBackoff(baseDelay time.Duration, attempt int) time.Duration {
	if attempt <= 0 || baseDelay <= 0 {
		return 0
	}
	// Cap attempt to avoid overflow in bit shift (max 30 for safety)
	if attempt > 30 {
		attempt = 30
	}
	// Exponential: 2^attempt * base
	backoff := baseDelay * time.Duration(1<<uint(attempt))
	// Cap at 30 seconds
	if backoff > 30*time.Second || backoff <= 0 {
		backoff = 30 * time.Second
	}
	// Add jitter: -25% to +25% using auto-seeded math/rand/v2
	jitter := time.Duration(rand.Int64N(int64(backoff)/2)) - backoff/4
	return backoff + jitter
}

// ErrAttemptsExhausted wraps the last error once a policy gives up
var ErrAttemptsExhausted = errors.New("retry attempts exhausted")

// RetryPolicy wraps a call to an external service
type RetryPolicy struct {
	// MaxAttempts is the total number of tries, including the first (minimum 1)
	MaxAttempts int
	// BaseDelay feeds CalculateBackoff between attempts
	BaseDelay time.Duration
	// Timeout bounds each attempt; zero means the caller's context alone applies
	Timeout time.Duration
	// Retryable decides whether an error is worth another attempt; nil retries nothing
	Retryable func(error) bool
	// Sleep waits between attempts; nil uses a timer that honours ctx
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry is called before each retry with the attempt about to run (2, 3, ...)
	OnRetry func(attempt int, err error)
}

// NewRetryPolicy builds a policy that retries up to maxRetries times after the first attempt
func NewRetryPolicy(maxRetries int, baseDelay, timeout time.Duration, retryable func(error) bool) *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts: maxRetries + 1,
		BaseDelay:   baseDelay,
		Timeout:     timeout,
		Retryable:   retryable,
	}
}

// Do runs op until it succeeds, fails with a non-retryable error, or attempts run out
func (p *RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if p.OnRetry != nil {
				p.OnRetry(attempt, lastErr)
			}
			if err := p.sleep(ctx, CalculateBackoff(p.BaseDelay, attempt-1)); err != nil {
				return err
			}
		}

		lastErr = p.attempt(ctx, op)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}
		if p.Retryable == nil || !p.Retryable(lastErr) {
			return lastErr
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrAttemptsExhausted, attempts, lastErr)
}

func (p *RetryPolicy) attempt(ctx context.Context, op func(ctx context.Context) error) error {
	if p.Timeout <= 0 {
		return op(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()
	return op(attemptCtx)
}

func (p *RetryPolicy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
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
