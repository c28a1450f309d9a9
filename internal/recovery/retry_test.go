package recovery

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyValidate(t *testing.T) {
	t.Parallel()

	valid := Policy{
		MaxAttempts:  3,
		Strategy:     BackoffExponential,
		InitialDelay: time.Second,
		MaxDelay:     10 * time.Second,
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Policy)
	}{
		{"zero attempts", func(p *Policy) { p.MaxAttempts = 0 }},
		{"too many attempts", func(p *Policy) { p.MaxAttempts = 11 }},
		{"unknown strategy", func(p *Policy) { p.Strategy = "quadratic" }},
		{"initial delay too short", func(p *Policy) { p.InitialDelay = 50 * time.Millisecond }},
		{"initial delay too long", func(p *Policy) { p.InitialDelay = 11 * time.Second }},
		{"max delay too long", func(p *Policy) { p.MaxDelay = 2 * time.Minute }},
		{"max delay below initial", func(p *Policy) { p.InitialDelay = 5 * time.Second; p.MaxDelay = 2 * time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			assert.Error(t, p.Validate())
		})
	}
}

func TestPolicyDelay(t *testing.T) {
	t.Parallel()

	t.Run("exponential doubles and caps", func(t *testing.T) {
		p := Policy{Strategy: BackoffExponential, InitialDelay: time.Second, MaxDelay: 5 * time.Second}
		assert.Equal(t, time.Second, p.Delay(1))
		assert.Equal(t, 2*time.Second, p.Delay(2))
		assert.Equal(t, 4*time.Second, p.Delay(3))
		assert.Equal(t, 5*time.Second, p.Delay(4))
		assert.Equal(t, 5*time.Second, p.Delay(10))
	})

	t.Run("linear grows by initial delay", func(t *testing.T) {
		p := Policy{Strategy: BackoffLinear, InitialDelay: time.Second, MaxDelay: 10 * time.Second}
		assert.Equal(t, time.Second, p.Delay(1))
		assert.Equal(t, 3*time.Second, p.Delay(3))
	})

	t.Run("fixed never grows", func(t *testing.T) {
		p := Policy{Strategy: BackoffFixed, InitialDelay: 5 * time.Second, MaxDelay: 5 * time.Second}
		assert.Equal(t, 5*time.Second, p.Delay(1))
		assert.Equal(t, 5*time.Second, p.Delay(6))
	})
}

func TestRetryerDo(t *testing.T) {
	t.Parallel()

	// Short delays keep these tests fast; the policy envelope is only
	// enforced at configuration time.
	fastPolicy := func(attempts int) Policy {
		return Policy{
			MaxAttempts:  attempts,
			Strategy:     BackoffFixed,
			InitialDelay: time.Millisecond,
			MaxDelay:     time.Millisecond,
		}
	}

	t.Run("succeeds after transient failures", func(t *testing.T) {
		t.Parallel()
		calls := 0
		r := NewRetryer("oracle", fastPolicy(5))
		err := r.Do(context.Background(), func(ctx context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("connection refused")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("non-retryable error stops immediately", func(t *testing.T) {
		t.Parallel()
		calls := 0
		r := NewRetryer("oracle", fastPolicy(5))
		err := r.Do(context.Background(), func(ctx context.Context) error {
			calls++
			return errors.New("validation failed: bad amount")
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("exhaustion wraps the last error", func(t *testing.T) {
		t.Parallel()
		cause := errors.New("connection reset by peer")
		r := NewRetryer("oracle", fastPolicy(3))
		err := r.Do(context.Background(), func(ctx context.Context) error {
			return cause
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "all 3 attempts failed")
	})

	t.Run("cancelled context never attempts", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		calls := 0
		r := NewRetryer("oracle", fastPolicy(3))
		err := r.Do(ctx, func(ctx context.Context) error {
			calls++
			return nil
		})
		assert.ErrorIs(t, err, ErrOperationCancelled)
		assert.Equal(t, 0, calls)
	})

	t.Run("cancellation during backoff aborts the wait", func(t *testing.T) {
		t.Parallel()
		policy := Policy{
			MaxAttempts:  3,
			Strategy:     BackoffFixed,
			InitialDelay: time.Minute,
			MaxDelay:     time.Minute,
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		r := NewRetryer("oracle", policy)
		start := time.Now()
		err := r.Do(ctx, func(ctx context.Context) error {
			return errors.New("connection refused")
		})
		assert.ErrorIs(t, err, ErrOperationCancelled)
		assert.Less(t, time.Since(start), 5*time.Second)
	})

	t.Run("jitter stays within one extra base delay", func(t *testing.T) {
		t.Parallel()
		p := Policy{
			MaxAttempts:  5,
			Strategy:     BackoffExponential,
			InitialDelay: time.Second,
			MaxDelay:     30 * time.Second,
			Jitter:       true,
		}
		r := NewRetryer("oracle", p, WithRand(rand.New(rand.NewSource(1))))
		for attempt := 1; attempt <= 4; attempt++ {
			base := p.Delay(attempt)
			d := r.delayFor(attempt)
			assert.GreaterOrEqual(t, d, base)
			assert.Less(t, d, 2*base)
		}
	})
}
