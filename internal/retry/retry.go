// Package retry wraps gateway calls in a fixed attempt count with a fixed
// delay between attempts.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"humpday-trader/internal/api"
	"humpday-trader/internal/logger"
)

// Policy is the retry policy applied at every gateway call site.
type Policy struct {
	Attempts int
	Delay    time.Duration
	// Retryable decides whether an error is worth another attempt.
	// Defaults to api.IsTemporary.
	Retryable func(error) bool
}

// Default is three attempts five seconds apart.
func Default() Policy {
	return Policy{Attempts: 3, Delay: 5 * time.Second}
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Delay), uint64(attempts-1))
	return backoff.WithContext(b, ctx)
}

// Do runs fn until it succeeds, returns a non-retryable error, or the
// attempts are used up.
func (p Policy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	retryable := p.Retryable
	if retryable == nil {
		retryable = api.IsTemporary
	}

	attempt := 0
	operation := func() error {
		attempt++
		err := fn(ctx)
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn(ctx, "Retrying after failure",
			"operation", op,
			"attempt", attempt,
			"max_attempts", p.Attempts,
			"wait", wait.String(),
			"error", err)
	}

	err := backoff.RetryNotify(operation, p.backOff(ctx), notify)
	if err == nil {
		return nil
	}
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Err
	}
	return fmt.Errorf("%s failed after %d attempt(s): %w", op, attempt, err)
}

// Value runs fn under the policy and returns its result.
func Value[T any](ctx context.Context, p Policy, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := p.Do(ctx, op, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
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
