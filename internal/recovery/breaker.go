package recovery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/quartz"
)

// ErrServiceUnavailable is the sanitized error surfaced when a breaker
// refuses a request. It deliberately carries no internal detail.
var ErrServiceUnavailable = errors.New("service temporarily unavailable")

// BreakerState is the circuit breaker state
type BreakerState int

const (
	StateClosed BreakerState = iota
	StateOpen
	StateHalfOpen
)

// String returns the string representation of a breaker state
func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// BreakerConfig parameterizes a circuit breaker
type BreakerConfig struct {
	FailureThreshold int
	ResetTimeout     time.Duration
	HalfOpenLimit    int
	MonitoringPeriod time.Duration
}

// Validate checks the config against the configuration envelope ranges
func (c BreakerConfig) Validate() error {
	if c.FailureThreshold < 1 || c.FailureThreshold > 100 {
		return fmt.Errorf("failure threshold must be in [1,100], got %d", c.FailureThreshold)
	}
	if c.ResetTimeout < time.Second || c.ResetTimeout > 5*time.Minute {
		return fmt.Errorf("reset timeout must be in [1s,5m], got %s", c.ResetTimeout)
	}
	if c.HalfOpenLimit < 1 || c.HalfOpenLimit > 10 {
		return fmt.Errorf("half-open limit must be in [1,10], got %d", c.HalfOpenLimit)
	}
	if c.MonitoringPeriod < 10*time.Second || c.MonitoringPeriod > time.Hour {
		return fmt.Errorf("monitoring period must be in [10s,1h], got %s", c.MonitoringPeriod)
	}
	return nil
}

// DefaultBreakerConfig returns a sensible breaker configuration
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		HalfOpenLimit:    1,
		MonitoringPeriod: 60 * time.Second,
	}
}

// AlertKind classifies breaker alerts
type AlertKind string

const (
	AlertTripped          AlertKind = "tripped"
	AlertRecovered        AlertKind = "recovered"
	AlertTripRateExceeded AlertKind = "trip_rate_exceeded"
	AlertFailureRateHigh  AlertKind = "failure_rate_high"
)

// Alert is emitted on breaker state changes and rate thresholds
type Alert struct {
	Kind         AlertKind
	Breaker      string
	State        BreakerState
	FailureCount int
	TripsPerHour float64
	FailureRate  float64
}

// AlertFunc receives breaker alerts
type AlertFunc func(Alert)

// Status is the externally visible breaker state
type Status struct {
	Name            string
	State           BreakerState
	SuccessCount    int
	FailureCount    int
	LastFailureTime time.Time
}

// CircuitBreaker gates calls to a failing dependency. Breakers are
// shared by resource name across the table engines in a process and
// are safe for concurrent use.
type CircuitBreaker struct {
	name    string
	cfg     BreakerConfig
	clock   quartz.Clock
	onAlert AlertFunc
	metrics *Metrics

	mu               sync.Mutex
	state            BreakerState
	failureCount     int
	successCount     int
	lastFailure      time.Time
	metricsResetAt   time.Time
	halfOpenInFlight int
	tripTimes        []time.Time
}

// BreakerOption configures a circuit breaker
type BreakerOption func(*CircuitBreaker)

// WithBreakerClock injects a clock (mock clock in tests)
func WithBreakerClock(clock quartz.Clock) BreakerOption {
	return func(b *CircuitBreaker) { b.clock = clock }
}

// WithAlerts registers an alert callback
func WithAlerts(fn AlertFunc) BreakerOption {
	return func(b *CircuitBreaker) { b.onAlert = fn }
}

// WithBreakerMetrics records breaker state on the given metrics
func WithBreakerMetrics(m *Metrics) BreakerOption {
	return func(b *CircuitBreaker) { b.metrics = m }
}

// NewCircuitBreaker creates a breaker for a named resource
func NewCircuitBreaker(name string, cfg BreakerConfig, opts ...BreakerOption) *CircuitBreaker {
	b := &CircuitBreaker{
		name:  name,
		cfg:   cfg,
		clock: quartz.NewReal(),
		state: StateClosed,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.metricsResetAt = b.clock.Now().Add(cfg.MonitoringPeriod)
	return b
}

// Execute runs the operation through the breaker. An OPEN breaker
// refuses immediately with ErrServiceUnavailable without invoking the
// operation.
func (b *CircuitBreaker) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	if err := b.admit(); err != nil {
		return err
	}

	err := op(ctx)
	b.record(err == nil)
	return err
}

func (b *CircuitBreaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clock.Now()
	b.maybeResetCounters(now)

	switch b.state {
	case StateOpen:
		if now.Sub(b.lastFailure) >= b.cfg.ResetTimeout {
			b.setState(StateHalfOpen)
			b.halfOpenInFlight = 1
			return nil
		}
		return ErrServiceUnavailable

	case StateHalfOpen:
		if b.halfOpenInFlight >= b.cfg.HalfOpenLimit {
			return ErrServiceUnavailable
		}
		b.halfOpenInFlight++
		return nil

	default:
		return nil
	}
}

func (b *CircuitBreaker) record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clock.Now()

	if b.state == StateHalfOpen {
		b.halfOpenInFlight--
		if success {
			b.successCount++
			b.reset(now)
			b.alert(Alert{Kind: AlertRecovered, Breaker: b.name, State: b.state})
		} else {
			b.failureCount++
			b.lastFailure = now
			b.trip(now)
		}
		return
	}

	if success {
		b.successCount++
		return
	}

	b.failureCount++
	b.lastFailure = now
	if b.state == StateClosed && b.failureCount >= b.cfg.FailureThreshold {
		b.trip(now)
	}
}

// maybeResetCounters clears the windowed counters once the monitoring
// period elapses
func (b *CircuitBreaker) maybeResetCounters(now time.Time) {
	if now.After(b.metricsResetAt) {
		if b.state == StateClosed {
			b.failureCount = 0
			b.successCount = 0
		}
		b.metricsResetAt = now.Add(b.cfg.MonitoringPeriod)
	}
}

func (b *CircuitBreaker) trip(now time.Time) {
	b.setState(StateOpen)
	b.tripTimes = append(b.tripTimes, now)

	cutoff := now.Add(-time.Hour)
	kept := b.tripTimes[:0]
	for _, t := range b.tripTimes {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	b.tripTimes = kept

	b.alert(Alert{
		Kind:         AlertTripped,
		Breaker:      b.name,
		State:        b.state,
		FailureCount: b.failureCount,
	})
	if len(b.tripTimes) > 3 {
		b.alert(Alert{
			Kind:         AlertTripRateExceeded,
			Breaker:      b.name,
			State:        b.state,
			TripsPerHour: float64(len(b.tripTimes)),
		})
	}
	if total := b.successCount + b.failureCount; total > 0 {
		rate := 100 * float64(b.failureCount) / float64(total)
		if rate >= 50 {
			b.alert(Alert{
				Kind:        AlertFailureRateHigh,
				Breaker:     b.name,
				State:       b.state,
				FailureRate: rate,
			})
		}
	}
}

func (b *CircuitBreaker) reset(now time.Time) {
	b.setState(StateClosed)
	b.failureCount = 0
	b.halfOpenInFlight = 0
	b.metricsResetAt = now.Add(b.cfg.MonitoringPeriod)
}

func (b *CircuitBreaker) setState(s BreakerState) {
	b.state = s
	if b.metrics != nil {
		b.metrics.SetBreakerState(b.name, s)
	}
}

func (b *CircuitBreaker) alert(a Alert) {
	if b.onAlert != nil {
		b.onAlert(a)
	}
}

// Trip forces the breaker open
func (b *CircuitBreaker) Trip() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastFailure = b.clock.Now()
	b.trip(b.lastFailure)
}

// Reset forces the breaker closed and clears its counters
func (b *CircuitBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.successCount = 0
	b.reset(b.clock.Now())
}

// Status returns the externally visible breaker state
func (b *CircuitBreaker) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Status{
		Name:            b.name,
		State:           b.state,
		SuccessCount:    b.successCount,
		FailureCount:    b.failureCount,
		LastFailureTime: b.lastFailure,
	}
}
