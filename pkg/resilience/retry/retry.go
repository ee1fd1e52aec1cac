package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Default retry parameters.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 1 * time.Second
)

// Options configures a retry loop.
type Options struct {
	// MaxAttempts is the total attempt budget, including the first call.
	// Default: DefaultMaxAttempts.
	MaxAttempts int

	// BaseDelay is the delay before the second attempt.
	// Default: DefaultBaseDelay.
	BaseDelay time.Duration

	// ExponentialBackoff doubles the delay after each failed attempt:
	// the delay before attempt i is BaseDelay * 2^(i-2). When false the
	// delay is constant BaseDelay.
	ExponentialBackoff bool

	// RetryIf decides whether an error is worth retrying.
	// Default: Retryable.
	RetryIf func(error) bool
}

// ExhaustedError is returned when every attempt failed with a retryable
// error. It wraps the last underlying error.
type ExhaustedError struct {
	// Attempts is how many times the operation was invoked.
	Attempts int

	// Err is the last underlying error.
	Err error
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry budget exhausted after %d attempts: %v", e.Attempts, e.Err)
}

// Unwrap returns the underlying error for error chain support.
func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Do runs op up to MaxAttempts times. A non-retryable error (per RetryIf)
// is returned immediately and unchanged; a retryable error that survives
// the full budget is wrapped in *ExhaustedError. Context cancellation
// aborts the wait between attempts and returns the context's error.
func Do(ctx context.Context, op func(context.Context) error, opts Options) error {
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	baseDelay := opts.BaseDelay
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	retryIf := opts.RetryIf
	if retryIf == nil {
		retryIf = Retryable
	}

	var policy backoff.BackOff
	if opts.ExponentialBackoff {
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = baseDelay
		exp.RandomizationFactor = 0
		exp.Multiplier = 2
		exp.MaxInterval = time.Hour
		exp.MaxElapsedTime = 0
		policy = exp
	} else {
		policy = backoff.NewConstantBackOff(baseDelay)
	}
	policy = backoff.WithContext(backoff.WithMaxRetries(policy, uint64(maxAttempts-1)), ctx)

	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		opErr := op(ctx)
		if opErr == nil {
			return nil
		}
		if !retryIf(opErr) {
			return backoff.Permanent(opErr)
		}
		slog.Debug("operation failed, will retry",
			"attempt", attempts,
			"max_attempts", maxAttempts,
			"error", opErr,
		)
		return opErr
	}, policy)

	if err == nil {
		return nil
	}
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return err
	}
	if !retryIf(err) {
		// Permanent error, returned unchanged.
		return err
	}
	return &ExhaustedError{Attempts: attempts, Err: err}
}

// DoValue runs an operation returning a value with the same retry
// semantics as Do.
func DoValue[T any](ctx context.Context, op func(context.Context) (T, error), opts Options) (T, error) {
	var result T
	err := Do(ctx, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	}, opts)
	return result, err
}
