package recovery

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
)

// Registry holds the process-wide circuit breakers and retry policies,
// keyed by resource name. Inject one per process; tests build their
// own to stay hermetic.
type Registry struct {
	mu       sync.Mutex
	clock    quartz.Clock
	logger   *log.Logger
	metrics  *Metrics
	breakers map[string]*CircuitBreaker
	policies map[string]Policy
}

// RegistryOption configures a Registry
type RegistryOption func(*Registry)

// WithRegistryClock injects the clock used by created breakers and
// retryers
func WithRegistryClock(clock quartz.Clock) RegistryOption {
	return func(r *Registry) { r.clock = clock }
}

// WithRegistryMetrics attaches operation metrics
func WithRegistryMetrics(m *Metrics) RegistryOption {
	return func(r *Registry) { r.metrics = m }
}

// NewRegistry creates a recovery registry
func NewRegistry(logger *log.Logger, opts ...RegistryOption) *Registry {
	r := &Registry{
		clock:    quartz.NewReal(),
		logger:   logger.WithPrefix("recovery"),
		breakers: make(map[string]*CircuitBreaker),
		policies: make(map[string]Policy),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ConfigureBreaker registers a breaker configuration for a resource
func (r *Registry) ConfigureBreaker(resource string, cfg BreakerConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.breakers[resource] = r.newBreaker(resource, cfg)
	return nil
}

// ConfigurePolicy registers a retry policy for a resource
func (r *Registry) ConfigurePolicy(resource string, policy Policy) error {
	if err := policy.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policies[resource] = policy
	return nil
}

// Breaker returns the breaker for a resource, creating one with the
// default configuration when none is registered
func (r *Registry) Breaker(resource string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[resource]
	if !ok {
		b = r.newBreaker(resource, DefaultBreakerConfig())
		r.breakers[resource] = b
	}
	return b
}

// BreakerStates reports the current state of every known breaker,
// keyed by resource name
func (r *Registry) BreakerStates() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	states := make(map[string]string, len(r.breakers))
	for resource, b := range r.breakers {
		states[resource] = b.Status().State.String()
	}
	return states
}

func (r *Registry) newBreaker(resource string, cfg BreakerConfig) *CircuitBreaker {
	opts := []BreakerOption{
		WithBreakerClock(r.clock),
		WithAlerts(func(a Alert) {
			r.logger.Warn("breaker alert",
				"kind", a.Kind,
				"breaker", a.Breaker,
				"state", a.State,
				"failures", a.FailureCount)
		}),
	}
	if r.metrics != nil {
		opts = append(opts, WithBreakerMetrics(r.metrics))
	}
	return NewCircuitBreaker(resource, cfg, opts...)
}

// policyFor returns the retry policy for a resource, falling back to
// the class strategy catalogue
func (r *Registry) policyFor(resource string, class ErrorClass) Policy {
	r.mu.Lock()
	p, ok := r.policies[resource]
	r.mu.Unlock()
	if ok {
		return p
	}
	if s := StrategyFor(class); s.Policy != nil {
		return *s.Policy
	}
	return Policy{MaxAttempts: 1, Strategy: BackoffFixed, InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second}
}

// Execute wraps an operation against an external resource: the call
// goes through the resource's breaker, and retryable failures are
// retried under the resource's policy.
func (r *Registry) Execute(ctx context.Context, resource string, class ErrorClass, op func(ctx context.Context) error) error {
	breaker := r.Breaker(resource)
	retryer := NewRetryer(resource, r.policyFor(resource, class),
		WithClock(r.clock), WithMetrics(r.metrics))

	err := retryer.Do(ctx, func(ctx context.Context) error {
		return breaker.Execute(ctx, op)
	})
	if err != nil {
		r.logger.Error("operation failed",
			"resource", resource,
			"class", Classify(err),
			"err", err)
	}
	return err
}
