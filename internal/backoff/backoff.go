// Package backoff computes retry delays. Policy drives in-handler retries of
// rate-limited calls; Capped drives process-level restarts.
package backoff

import (
	"context"
	"math"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-retry"
)

// Policy is an exponential backoff with additive jitter:
//
//	delay(attempt) = min(2^attempt + jitter, Cap) * Unit,  jitter in [0, 1)
//
// where Cap is expressed in time, so the result never exceeds Cap.
type Policy struct {
	// MaxAttempts bounds the total number of calls, including the first.
	MaxAttempts int
	// Unit is the length of one time unit (one second in production).
	Unit time.Duration
	// Cap is the largest delay ever returned.
	Cap time.Duration
	// Jitter returns a value in [0, 1). Defaults to math/rand.
	Jitter func() float64
}

// NewPolicy returns a Policy with the default jitter source.
func NewPolicy(maxAttempts int, unit, cap time.Duration) Policy {
	return Policy{MaxAttempts: maxAttempts, Unit: unit, Cap: cap, Jitter: rand.Float64}
}

// Delay returns the wait before retrying after the given failed attempt (1-based).
func (p Policy) Delay(attempt int) time.Duration {
	jitter := 0.0
	if p.Jitter != nil {
		jitter = p.Jitter()
	}
	d := (math.Pow(2, float64(attempt)) + jitter) * float64(p.Unit)
	if d >= float64(p.Cap) {
		return p.Cap
	}
	return time.Duration(d)
}

// Backoff returns a fresh go-retry Backoff that yields Delay(1), Delay(2), ...
// and stops after MaxAttempts-1 retries.
func (p Policy) Backoff() retry.Backoff {
	var attempt int64
	b := retry.BackoffFunc(func() (time.Duration, bool) {
		return p.Delay(int(atomic.AddInt64(&attempt, 1))), false
	})
	retries := p.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	return retry.WithMaxRetries(uint64(retries), b)
}

// Do calls fn until it succeeds, returns an error that isRetryable rejects,
// or MaxAttempts calls have been made. fn receives the 1-based attempt number.
// The last error is returned unwrapped.
func (p Policy) Do(
	ctx context.Context,
	isRetryable func(error) bool,
	fn func(ctx context.Context, attempt int) error,
) error {
	attempt := 0
	return retry.Do(ctx, p.Backoff(), func(ctx context.Context) error {
		attempt++
		err := fn(ctx, attempt)
		if err != nil && isRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// Capped returns an exponential backoff starting at initial, doubling on
// each call to Next and capped at max. It never stops on its own.
func Capped(initial, max time.Duration) retry.Backoff {
	return retry.WithCappedDuration(max, retry.NewExponential(initial))
}
