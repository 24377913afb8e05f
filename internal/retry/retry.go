// Package retry bounds every store call with a timeout and retries transient failures.
package retry

import (
	"context"
	"errors"
	"time"

	"socialhub/internal/models"
	"socialhub/internal/observability"

	"github.com/cenkalti/backoff/v5"
)

// Policy configures the per-call timeout and the retry budget for transient errors.
type Policy struct {
	CallTimeout time.Duration
	MaxAttempts int
	Initial     time.Duration
	Max         time.Duration
}

// DefaultPolicy mirrors the configuration defaults.
func DefaultPolicy() Policy {
	return Policy{
		CallTimeout: 2 * time.Second,
		MaxAttempts: 3,
		Initial:     50 * time.Millisecond,
		Max:         time.Second,
	}
}

func (p Policy) normalized() Policy {
	d := DefaultPolicy()
	if p.CallTimeout <= 0 {
		p.CallTimeout = d.CallTimeout
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.Initial <= 0 {
		p.Initial = d.Initial
	}
	if p.Max < p.Initial {
		p.Max = p.Initial
	}
	return p
}

// Value runs fn with a fresh deadline per attempt. Errors coded Transient, and
// attempts that hit their own deadline, are retried with exponential backoff
// until MaxAttempts is spent or ctx ends. Anything else is returned at once.
func Value[T any](ctx context.Context, p Policy, operation string, fn func(ctx context.Context) (T, error)) (T, error) {
	p = p.normalized()
	defer observability.TrackStoreCall("db", operation)()

	attempt := func() (T, error) {
		callCtx, cancel := context.WithTimeout(ctx, p.CallTimeout)
		defer cancel()

		v, err := fn(callCtx)
		if err == nil {
			return v, nil
		}
		err = classify(ctx, callCtx, err)
		if !models.IsTransient(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.Initial
	b.MaxInterval = p.Max

	v, err := backoff.Retry(ctx, attempt,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(p.MaxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(error, time.Duration) {
			observability.StoreRetries.WithLabelValues(operation).Inc()
		}),
	)
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Err
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !models.IsTransient(err) && models.ErrorCode(err) == "" {
			err = models.NewTransientError(ctxErr)
		}
		code := models.ErrorCode(err)
		if code == "" {
			code = "UNKNOWN"
		}
		observability.StoreErrors.WithLabelValues(operation, code).Inc()
	}
	return v, err
}

// Do is Value for calls without a result.
func Do(ctx context.Context, p Policy, operation string, fn func(ctx context.Context) error) error {
	_, err := Value(ctx, p, operation, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// classify turns an attempt that ran out of its own time budget into a Transient
// error. A cancelled parent context is left as is so the caller sees it.
func classify(parent, call context.Context, err error) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if parent.Err() == nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(call.Err(), context.DeadlineExceeded)) {
		return models.NewTransientError(err)
	}
	return err
}
