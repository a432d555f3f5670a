package providers

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RetryConfig controls retry behavior for transient API failures.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryConfig returns the standard retry policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 3, BaseDelay: time.Second}
}

// retryableError marks an error worth retrying (429, 5xx, transport).
type retryableError struct{ err error }

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// Retryable wraps err so retryDo attempts it again.
func Retryable(err error) error { return &retryableError{err: err} }

// retryDo runs fn with exponential backoff on retryable errors.
func retryDo[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := cfg.BaseDelay << (attempt - 1)
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
		}
		v, err := fn()
		if err == nil {
			return v, nil
		}
		lastErr = err
		var re *retryableError
		if !errors.As(err, &re) {
			return zero, err
		}
	}
	return zero, fmt.Errorf("giving up after %d attempts: %w", cfg.MaxAttempts, lastErr)
}
