package recovery

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/coder/quartz"
)

// ErrOperationCancelled is returned when a retry wait is aborted
var ErrOperationCancelled = errors.New("operation cancelled")

// BackoffStrategy selects how retry delays grow
type BackoffStrategy string

const (
	BackoffExponential BackoffStrategy = "exponential"
	BackoffLinear      BackoffStrategy = "linear"
	BackoffFixed       BackoffStrategy = "fixed"
)

// Policy configures a retry executor
type Policy struct {
	MaxAttempts  int
	Strategy     BackoffStrategy
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Jitter       bool
}

// Validate checks the policy against the configuration envelope ranges
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 || p.MaxAttempts > 10 {
		return fmt.Errorf("max attempts must be in [1,10], got %d", p.MaxAttempts)
	}
	switch p.Strategy {
	case BackoffExponential, BackoffLinear, BackoffFixed:
	default:
		return fmt.Errorf("unknown backoff strategy %q", p.Strategy)
	}
	if p.InitialDelay < 100*time.Millisecond || p.InitialDelay > 10*time.Second {
		return fmt.Errorf("initial delay must be in [100ms,10s], got %s", p.InitialDelay)
	}
	if p.MaxDelay < time.Second || p.MaxDelay > 60*time.Second || p.MaxDelay < p.InitialDelay {
		return fmt.Errorf("max delay must be in [1s,60s] and >= initial delay, got %s", p.MaxDelay)
	}
	return nil
}

// Delay returns the base backoff before attempt n (1-indexed), capped
// at MaxDelay. Jitter is applied by the executor, not here.
func (p Policy) Delay(attempt int) time.Duration {
	var d time.Duration
	switch p.Strategy {
	case BackoffLinear:
		d = p.InitialDelay * time.Duration(attempt)
	case BackoffFixed:
		d = p.InitialDelay
	default:
		d = p.InitialDelay << (attempt - 1)
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// Retryer runs operations under a retry policy. The clock is
// injectable so backoff sleeps are testable.
type Retryer struct {
	policy  Policy
	clock   quartz.Clock
	rng     *rand.Rand
	metrics *Metrics
	name    string
}

// RetryerOption configures a Retryer
type RetryerOption func(*Retryer)

// WithClock injects a clock (mock clock in tests)
func WithClock(clock quartz.Clock) RetryerOption {
	return func(r *Retryer) { r.clock = clock }
}

// WithRand injects a jitter source for deterministic tests
func WithRand(rng *rand.Rand) RetryerOption {
	return func(r *Retryer) { r.rng = rng }
}

// WithMetrics records attempt outcomes on the given metrics
func WithMetrics(m *Metrics) RetryerOption {
	return func(r *Retryer) { r.metrics = m }
}

// NewRetryer creates a retry executor for a named resource
func NewRetryer(name string, policy Policy, opts ...RetryerOption) *Retryer {
	r := &Retryer{
		name:   name,
		policy: policy,
		clock:  quartz.NewReal(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Do runs the operation until it succeeds, the attempts are exhausted,
// a non-retryable error is returned, or the context is cancelled. A
// cancelled wait fails with ErrOperationCancelled immediately.
func (r *Retryer) Do(ctx context.Context, op func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrOperationCancelled, err)
	}

	var lastErr error
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := r.wait(ctx, r.delayFor(attempt-1)); err != nil {
				return err
			}
		}

		lastErr = op(ctx)
		if r.metrics != nil {
			r.metrics.RecordAttempt(r.name, lastErr == nil)
		}
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, ErrOperationCancelled) {
			return fmt.Errorf("%w: %v", ErrOperationCancelled, lastErr)
		}
		if !Retryable(lastErr) {
			return lastErr
		}
	}

	return fmt.Errorf("all %d attempts failed: %w", r.policy.MaxAttempts, lastErr)
}

// delayFor applies jitter on top of the policy's base delay
func (r *Retryer) delayFor(attempt int) time.Duration {
	d := r.policy.Delay(attempt)
	if r.policy.Jitter && d > 0 {
		var f float64
		if r.rng != nil {
			f = r.rng.Float64()
		} else {
			f = rand.Float64()
		}
		d += time.Duration(f * float64(d))
	}
	return d
}

func (r *Retryer) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := r.clock.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrOperationCancelled, ctx.Err())
	}
}
