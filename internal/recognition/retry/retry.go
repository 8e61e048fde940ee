// Package retry wraps the external recognizer call with timeout and
// bounded exponential-backoff retry. Retryability is a pure data
// inspection of the error, never type matching on exceptions.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Default retry configuration for recognizer calls.
const (
	DefaultMaxRetries        = 3
	DefaultInitialDelay      = time.Second
	DefaultMaxDelay          = 5 * time.Second
	DefaultBackoffMultiplier = 2.0
)

// Config controls the retry loop.
type Config struct {
	MaxRetries        int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
}

// DefaultConfig returns the default retry configuration.
func DefaultConfig() Config {
	return Config{
		MaxRetries:        DefaultMaxRetries,
		InitialDelay:      DefaultInitialDelay,
		MaxDelay:          DefaultMaxDelay,
		BackoffMultiplier: DefaultBackoffMultiplier,
	}
}

// Classifier is implemented by errors that carry an explicit
// retryable/terminal tag from the recognizer collaborator.
type Classifier interface {
	IsRetryable() bool
}

// IsRetryable reports whether an attempt may be retried. Tagged errors
// decide for themselves; untagged errors are assumed transient, since
// terminal conditions are always explicitly tagged by the recognizer.
func IsRetryable(err error) bool {
	var c Classifier
	if errors.As(err, &c) {
		return c.IsRetryable()
	}
	return true
}

// TimeoutError is surfaced when an operation outlives its deadline.
// Timeouts are transient: the next attempt may succeed.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("operation timed out after %s", e.Timeout)
}

// IsRetryable implements Classifier.
func (e *TimeoutError) IsRetryable() bool { return true }

// ConnectionError normalizes an unclassified failure into the generic
// connection-failure kind after retries are exhausted.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection failed: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// IsRetryable implements Classifier.
func (e *ConnectionError) IsRetryable() bool { return true }

// WithTimeout races the operation against a timer. On expiry the
// caller gets a TimeoutError and the operation's eventual result is
// discarded. Cancellation is propagated to the operation via its
// context, but stopping the in-flight remote call is best-effort only:
// this aborts the caller's wait, not necessarily the network request.
func WithTimeout[T any](ctx context.Context, timeout time.Duration, op func(context.Context) (T, error)) (T, error) {
	type outcome struct {
		value T
		err   error
	}

	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Buffered so a late-finishing operation never leaks a goroutine.
	done := make(chan outcome, 1)
	go func() {
		value, err := op(opCtx)
		done <- outcome{value: value, err: err}
	}()

	var zero T
	select {
	case out := <-done:
		return out.value, out.err
	case <-opCtx.Done():
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, &TimeoutError{Timeout: timeout}
	}
}

// WithRetry attempts the operation up to cfg.MaxRetries+1 times.
// A terminal error aborts immediately. A retryable error waits
// InitialDelay multiplied by BackoffMultiplier per subsequent attempt,
// capped at MaxDelay, before retrying. If every attempt fails the last
// error is surfaced, normalized to a ConnectionError when the
// recognizer did not classify it.
func WithRetry[T any](ctx context.Context, cfg Config, op func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	delay := cfg.InitialDelay
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * cfg.BackoffMultiplier)
			if delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
		}

		value, err := op(ctx)
		if err == nil {
			return value, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if !IsRetryable(err) {
			return zero, err
		}
	}

	return zero, normalize(lastErr)
}

// normalize maps an unclassified final error to the generic
// connection-failure kind. Classified errors pass through unchanged.
func normalize(err error) error {
	var c Classifier
	if errors.As(err, &c) {
		return err
	}
	return &ConnectionError{Err: err}
}
