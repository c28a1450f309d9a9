package recovery

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"nil", nil, ClassUnknown},
		{"deadline exceeded", context.DeadlineExceeded, ClassTimeout},
		{"wrapped deadline", fmt.Errorf("fetch: %w", context.DeadlineExceeded), ClassTimeout},
		{"status 401", &StatusError{Code: 401, Message: "nope"}, ClassAuth},
		{"status 403", &StatusError{Code: 403, Message: "nope"}, ClassAuth},
		{"status 429", &StatusError{Code: 429, Message: "slow down"}, ClassRateLimit},
		{"status 400", &StatusError{Code: 400, Message: "bad request"}, ClassValidation},
		{"status 500", &StatusError{Code: 500, Message: "boom"}, ClassServer},
		{"status 503", &StatusError{Code: 503, Message: "overloaded"}, ClassServer},
		{"connection refused", errors.New("dial tcp: connection refused"), ClassNetwork},
		{"no such host", errors.New("lookup oracle: no such host"), ClassNetwork},
		{"timed out", errors.New("read timed out"), ClassTimeout},
		{"websocket", errors.New("websocket: close 1006"), ClassWebSocket},
		{"player disconnected", errors.New("player disconnected mid-hand"), ClassPlayerDisconnected},
		{"rate limit text", errors.New("rate limit exceeded"), ClassRateLimit},
		{"out of memory", errors.New("out of memory"), ClassResourceExhausted},
		{"validation text", errors.New("invalid bet amount"), ClassValidation},
		{"upstream", errors.New("upstream returned garbage"), ClassExternalService},
		{"mystery", errors.New("something odd happened"), ClassUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestRetryable(t *testing.T) {
	t.Parallel()

	assert.True(t, Retryable(errors.New("connection reset")))
	assert.True(t, Retryable(&StatusError{Code: 502, Message: "bad gateway"}))
	assert.True(t, Retryable(errors.New("websocket: broken pipe")))
	assert.False(t, Retryable(&StatusError{Code: 401, Message: "unauthorized"}))
	assert.False(t, Retryable(errors.New("invalid action")))
	assert.False(t, Retryable(errors.New("completely novel failure")))
}

func TestStrategyCatalogue(t *testing.T) {
	t.Parallel()

	t.Run("network retries with jitter and offline fallback", func(t *testing.T) {
		s := StrategyFor(ClassNetwork)
		assert.True(t, s.Retry)
		assert.True(t, s.Policy.Jitter)
		assert.Equal(t, "offline-mode", s.Fallback)
	})

	t.Run("validation never retries", func(t *testing.T) {
		s := StrategyFor(ClassValidation)
		assert.False(t, s.Retry)
		assert.Nil(t, s.Policy)
		assert.Equal(t, "reject", s.Fallback)
	})

	t.Run("server class carries a breaker", func(t *testing.T) {
		s := StrategyFor(ClassServer)
		assert.NotNil(t, s.Breaker)
		assert.Equal(t, 5, s.Breaker.FailureThreshold)
	})

	t.Run("resource exhaustion sheds load", func(t *testing.T) {
		s := StrategyFor(ClassResourceExhausted)
		assert.False(t, s.Retry)
		assert.NotNil(t, s.Breaker)
		assert.Equal(t, "shed-load", s.Fallback)
	})

	t.Run("unknown class falls back to reject", func(t *testing.T) {
		s := StrategyFor(ErrorClass("martian"))
		assert.Equal(t, ClassUnknown, s.Class)
		assert.Equal(t, "reject", s.Fallback)
	})
}
