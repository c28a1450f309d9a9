package recovery

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes recovery instrumentation. Pass a private registerer
// in tests to keep them hermetic.
type Metrics struct {
	attempts     *prometheus.CounterVec
	breakerState *prometheus.GaugeVec
}

// NewMetrics registers the recovery metrics on the given registerer
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		attempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "holdem",
			Subsystem: "recovery",
			Name:      "attempts_total",
			Help:      "Operation attempts by resource and outcome.",
		}, []string{"resource", "outcome"}),
		breakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "holdem",
			Subsystem: "recovery",
			Name:      "breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=open, 2=half_open).",
		}, []string{"breaker"}),
	}
}

// RecordAttempt counts one operation attempt
func (m *Metrics) RecordAttempt(resource string, ok bool) {
	outcome := "failure"
	if ok {
		outcome = "success"
	}
	m.attempts.WithLabelValues(resource, outcome).Inc()
}

// SetBreakerState publishes a breaker's current state
func (m *Metrics) SetBreakerState(breaker string, state BreakerState) {
	m.breakerState.WithLabelValues(breaker).Set(float64(state))
}
