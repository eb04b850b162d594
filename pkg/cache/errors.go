package cache

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors shared by fetchers that sit in front of a cache.
var (
	// ErrNotFound is returned when a requested item does not exist upstream.
	ErrNotFound = errors.New("not found")

	// ErrNetwork is returned for transport failures (timeouts, refused
	// connections, 5xx responses).
	ErrNetwork = errors.New("network error")
)

// RetryableError marks an error as transient.
type RetryableError struct{ Err error }

// Retryable wraps err as a RetryableError. Retryable(nil) is nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable reports whether err was wrapped with [Retryable].
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// RetryPolicy controls [Retry].
type RetryPolicy struct {
	Attempts int           // total attempts, including the first
	Delay    time.Duration // delay before the second attempt; doubles after each retry
}

// DefaultRetryPolicy is three attempts starting at one second.
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, Delay: time.Second}

// Retry calls fn until it succeeds, returns a non-retryable error, or the
// policy's attempts are used up. Context cancellation between attempts
// returns ctx.Err().
func Retry(ctx context.Context, p RetryPolicy, fn func() error) error {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	delay := p.Delay
	var lastErr error

	for i := 0; i < p.Attempts; i++ {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !IsRetryable(err) {
			return err
		}

		if i < p.Attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	return lastErr
}
