package unifiedllm

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// RetryPolicy is the retry-or-fail policy for completion calls. The zero
// MaxRetries makes a single attempt.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
	Jitter     bool // scale each delay by a factor in [0.5, 1.5)
	OnRetry    func(err error, attempt int, delay time.Duration)
}

// DefaultRetryPolicy reports the first failure. Raise MaxRetries to back off
// and retry.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		BaseDelay:  time.Second,
		MaxDelay:   time.Minute,
		Multiplier: 2,
		Jitter:     true,
	}
}

// Delay returns the wait before retry number attempt (0-indexed).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := float64(p.BaseDelay)
	for range attempt {
		d *= p.Multiplier
		if d >= float64(p.MaxDelay) {
			break
		}
	}
	d = min(d, float64(p.MaxDelay))
	if p.Jitter {
		d *= 0.5 + rand.Float64()
	}
	return time.Duration(d)
}

type retryAfterer interface {
	retryAfter() (time.Duration, bool)
}

func (e *ProviderError) retryAfter() (time.Duration, bool) {
	return e.RetryAfter, e.RetryAfter > 0
}

// Retry calls fn until it succeeds, fails with an error IsRetryable rejects,
// or the policy is exhausted. A provider's Retry-After hint replaces the
// computed delay; a hint beyond MaxDelay ends retrying immediately.
func Retry[T any](ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if attempt >= policy.MaxRetries || !IsRetryable(err) {
			return zero, err
		}

		delay := policy.Delay(attempt)
		var ra retryAfterer
		if errors.As(err, &ra) {
			if hint, ok := ra.retryAfter(); ok {
				if hint > policy.MaxDelay {
					return zero, err
				}
				delay = hint
			}
		}
		if policy.OnRetry != nil {
			policy.OnRetry(err, attempt+1, delay)
		}
		if werr := sleepCtx(ctx, delay); werr != nil {
			return zero, &AbortError{SDKError: SDKError{Message: "request cancelled during retry", Cause: werr}}
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
