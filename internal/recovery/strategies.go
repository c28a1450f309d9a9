package recovery

import "time"

// Strategy describes how a class of errors is recovered from
type Strategy struct {
	Class    ErrorClass
	Retry    bool
	Policy   *Policy
	Breaker  *BreakerConfig
	Fallback string
}

// strategies is the per-class recovery catalogue. Classes without a
// retry policy surface immediately; classes with a breaker config get
// a dedicated breaker per resource.
var strategies = map[ErrorClass]Strategy{
	ClassNetwork: {
		Class: ClassNetwork,
		Retry: true,
		Policy: &Policy{
			MaxAttempts:  5,
			Strategy:     BackoffExponential,
			InitialDelay: time.Second,
			MaxDelay:     30 * time.Second,
			Jitter:       true,
		},
		Fallback: "offline-mode",
	},
	ClassTimeout: {
		Class: ClassTimeout,
		Retry: true,
		Policy: &Policy{
			MaxAttempts:  3,
			Strategy:     BackoffExponential,
			InitialDelay: 2 * time.Second,
			MaxDelay:     10 * time.Second,
		},
	},
	ClassAuth: {
		Class:    ClassAuth,
		Fallback: "re-authenticate",
	},
	ClassValidation: {
		Class:    ClassValidation,
		Fallback: "reject",
	},
	ClassRateLimit: {
		Class: ClassRateLimit,
		Retry: true,
		Policy: &Policy{
			MaxAttempts:  4,
			Strategy:     BackoffExponential,
			InitialDelay: time.Second,
			MaxDelay:     5 * time.Minute,
		},
	},
	ClassServer: {
		Class: ClassServer,
		Retry: true,
		Policy: &Policy{
			MaxAttempts:  4,
			Strategy:     BackoffExponential,
			InitialDelay: time.Second,
			MaxDelay:     10 * time.Second,
			Jitter:       true,
		},
		Breaker: &BreakerConfig{
			FailureThreshold: 5,
			ResetTimeout:     60 * time.Second,
			HalfOpenLimit:    1,
			MonitoringPeriod: 60 * time.Second,
		},
	},
	ClassExternalService: {
		Class: ClassExternalService,
		Retry: true,
		Policy: &Policy{
			MaxAttempts:  4,
			Strategy:     BackoffExponential,
			InitialDelay: 2 * time.Second,
			MaxDelay:     30 * time.Second,
			Jitter:       true,
		},
		Breaker: &BreakerConfig{
			FailureThreshold: 3,
			ResetTimeout:     120 * time.Second,
			HalfOpenLimit:    1,
			MonitoringPeriod: 120 * time.Second,
		},
	},
	ClassWebSocket: {
		Class: ClassWebSocket,
		Retry: true,
		Policy: &Policy{
			MaxAttempts:  10,
			Strategy:     BackoffExponential,
			InitialDelay: time.Second,
			MaxDelay:     30 * time.Second,
		},
		Fallback: "reconnect",
	},
	ClassPlayerDisconnected: {
		Class: ClassPlayerDisconnected,
		Retry: true,
		Policy: &Policy{
			MaxAttempts:  6,
			Strategy:     BackoffFixed,
			InitialDelay: 5 * time.Second,
			MaxDelay:     5 * time.Second,
		},
		Fallback: "grace-period",
	},
	ClassResourceExhausted: {
		Class: ClassResourceExhausted,
		Breaker: &BreakerConfig{
			FailureThreshold: 1,
			ResetTimeout:     300 * time.Second,
			HalfOpenLimit:    1,
			MonitoringPeriod: 300 * time.Second,
		},
		Fallback: "shed-load",
	},
}

// StrategyFor returns the recovery strategy for an error class
func StrategyFor(class ErrorClass) Strategy {
	if s, ok := strategies[class]; ok {
		return s
	}
	return Strategy{Class: ClassUnknown, Fallback: "reject"}
}
