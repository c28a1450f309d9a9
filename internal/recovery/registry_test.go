package recovery

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry(t *testing.T) (*Registry, *Metrics) {
	t.Helper()
	metrics := NewMetrics(prometheus.NewRegistry())
	logger := log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
	return NewRegistry(logger,
		WithRegistryClock(quartz.NewMock(t)),
		WithRegistryMetrics(metrics)), metrics
}

func TestRegistryConfiguration(t *testing.T) {
	t.Parallel()

	reg, _ := testRegistry(t)

	t.Run("rejects invalid breaker config", func(t *testing.T) {
		err := reg.ConfigureBreaker("oracle", BreakerConfig{FailureThreshold: 0})
		assert.Error(t, err)
	})

	t.Run("rejects invalid retry policy", func(t *testing.T) {
		err := reg.ConfigurePolicy("oracle", Policy{MaxAttempts: 99})
		assert.Error(t, err)
	})

	t.Run("breakers are shared per resource", func(t *testing.T) {
		require.NoError(t, reg.ConfigureBreaker("stats", testBreakerConfig()))
		assert.Same(t, reg.Breaker("stats"), reg.Breaker("stats"))
	})

	t.Run("unknown resource gets a default breaker", func(t *testing.T) {
		b := reg.Breaker("never-configured")
		require.NotNil(t, b)
		assert.Equal(t, StateClosed, b.Status().State)
	})
}

func TestRegistryExecute(t *testing.T) {
	t.Parallel()

	t.Run("success records a metric", func(t *testing.T) {
		t.Parallel()
		reg, metrics := testRegistry(t)
		err := reg.Execute(context.Background(), "oracle", ClassExternalService,
			func(ctx context.Context) error { return nil })
		require.NoError(t, err)
		got := testutil.ToFloat64(metrics.attempts.WithLabelValues("oracle", "success"))
		assert.Equal(t, 1.0, got)
	})

	t.Run("non-retryable failure surfaces once", func(t *testing.T) {
		t.Parallel()
		reg, metrics := testRegistry(t)
		boom := errors.New("invalid request payload")
		err := reg.Execute(context.Background(), "oracle", ClassExternalService,
			func(ctx context.Context) error { return boom })
		assert.ErrorIs(t, err, boom)
		got := testutil.ToFloat64(metrics.attempts.WithLabelValues("oracle", "failure"))
		assert.Equal(t, 1.0, got)
	})

	t.Run("open breaker short-circuits", func(t *testing.T) {
		t.Parallel()
		reg, _ := testRegistry(t)
		require.NoError(t, reg.ConfigurePolicy("stats", Policy{
			MaxAttempts:  1,
			Strategy:     BackoffFixed,
			InitialDelay: time.Second,
			MaxDelay:     time.Second,
		}))
		reg.Breaker("stats").Trip()
		invoked := false
		err := reg.Execute(context.Background(), "stats", ClassExternalService,
			func(ctx context.Context) error { invoked = true; return nil })
		assert.ErrorIs(t, err, ErrServiceUnavailable)
		assert.False(t, invoked)
	})
}

func TestMetricsBreakerState(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics(prometheus.NewRegistry())
	b := NewCircuitBreaker("oracle", testBreakerConfig(),
		WithBreakerClock(quartz.NewMock(t)),
		WithBreakerMetrics(metrics))

	b.Trip()
	assert.Equal(t, float64(StateOpen), testutil.ToFloat64(metrics.breakerState.WithLabelValues("oracle")))
	b.Reset()
	assert.Equal(t, float64(StateClosed), testutil.ToFloat64(metrics.breakerState.WithLabelValues("oracle")))
}

func TestRegistryBreakerStates(t *testing.T) {
	t.Parallel()
	reg, _ := testRegistry(t)

	assert.Empty(t, reg.BreakerStates())

	require.NoError(t, reg.ConfigureBreaker("oracle", BreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Second,
		HalfOpenLimit:    1,
		MonitoringPeriod: time.Minute,
	}))
	reg.Breaker("stats-store")
	reg.Breaker("oracle").Trip()

	states := reg.BreakerStates()
	assert.Equal(t, "open", states["oracle"])
	assert.Equal(t, "closed", states["stats-store"])
}
