// Package backoff implements bounded exponential backoff with jitter and a
// retry executor for remote calls.
package backoff

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Policy is an immutable retry policy. Delays are computed per attempt,
// never stored.
type Policy struct {
	Base        time.Duration
	Max         time.Duration
	MaxAttempts int     // total attempts including the first
	Jitter      float64 // multiplicative jitter fraction, 0.2 = ±20%
}

func Default() Policy {
	return Policy{
		Base:        1 * time.Second,
		Max:         8 * time.Second,
		MaxAttempts: 5,
		Jitter:      0.2,
	}
}

// Delay returns the wait before the retry following attempt (0-based index
// of the failed attempt): min(Max, Base*2^attempt), then jitter in
// [1-Jitter, 1+Jitter].
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := time.Duration(float64(p.Base) * math.Pow(2, float64(attempt)))
	if d <= 0 || d > p.Max {
		d = p.Max
	}
	if p.Jitter > 0 {
		d = time.Duration(float64(d) * (1 + p.Jitter*(2*rand.Float64()-1)))
	}
	if d < 0 {
		d = 0
	}
	return d
}

// Retry runs op until it succeeds, fails with a non-retryable error, the
// context expires, or MaxAttempts total attempts are spent. retryable
// decides eligibility; errors it rejects are returned unchanged from the
// first failure. Op must be safe to re-invoke.
func Retry[T any](ctx context.Context, p Policy, retryable func(error) bool, op func(context.Context) (T, error)) (T, error) {
	return RetryNotify(ctx, p, retryable, op, nil)
}

// RetryNotify is Retry with a hook invoked before each backoff sleep,
// making the attempt count and computed delay observable.
func RetryNotify[T any](ctx context.Context, p Policy, retryable func(error) bool, op func(context.Context) (T, error), notify func(attempt int, delay time.Duration)) (T, error) {
	var zero T
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		var out T
		out, err = op(ctx)
		if err == nil {
			return out, nil
		}
		if !retryable(err) {
			return zero, err
		}
		if attempt == attempts-1 {
			break
		}

		delay := p.Delay(attempt)
		if notify != nil {
			notify(attempt+1, delay)
		}
		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("canceled during backoff: %w", ctx.Err())
		case <-time.After(delay):
		}
	}
	return zero, fmt.Errorf("giving up after %d attempts: %w", attempts, err)
}
