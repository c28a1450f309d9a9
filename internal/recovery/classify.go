package recovery

import (
	"context"
	"errors"
	"strings"
)

// ErrorClass buckets an error for recovery strategy selection
type ErrorClass string

const (
	ClassNetwork            ErrorClass = "network"
	ClassTimeout            ErrorClass = "timeout"
	ClassAuth               ErrorClass = "auth"
	ClassValidation         ErrorClass = "validation"
	ClassRateLimit          ErrorClass = "rate_limit"
	ClassServer             ErrorClass = "server"
	ClassExternalService    ErrorClass = "external_service"
	ClassWebSocket          ErrorClass = "websocket"
	ClassPlayerDisconnected ErrorClass = "player_disconnected"
	ClassResourceExhausted  ErrorClass = "resource_exhausted"
	ClassUnknown            ErrorClass = "unknown"
)

// StatusCoder is implemented by errors that carry an HTTP-like status
type StatusCoder interface {
	StatusCode() int
}

// StatusError wraps an HTTP-like status code as an error
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return e.Message
}

// StatusCode returns the HTTP-like status code
func (e *StatusError) StatusCode() int {
	return e.Code
}

// Substring catalogue for classification, checked in order. Kept
// documented here so operators know which messages are recognized.
var substringCatalogue = []struct {
	needle string
	class  ErrorClass
}{
	{"websocket", ClassWebSocket},
	{"player disconnected", ClassPlayerDisconnected},
	{"rate limit", ClassRateLimit},
	{"too many requests", ClassRateLimit},
	{"unauthorized", ClassAuth},
	{"forbidden", ClassAuth},
	{"authentication", ClassAuth},
	{"timeout", ClassTimeout},
	{"timed out", ClassTimeout},
	{"deadline exceeded", ClassTimeout},
	{"connection refused", ClassNetwork},
	{"connection reset", ClassNetwork},
	{"no such host", ClassNetwork},
	{"network", ClassNetwork},
	{"out of memory", ClassResourceExhausted},
	{"resource exhausted", ClassResourceExhausted},
	{"validation", ClassValidation},
	{"invalid", ClassValidation},
	{"external service", ClassExternalService},
	{"upstream", ClassExternalService},
	{"internal server error", ClassServer},
}

// Classify buckets an error by status code when available, otherwise
// by message substring. Unrecognized errors are ClassUnknown.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTimeout
	}

	var sc StatusCoder
	if errors.As(err, &sc) {
		switch code := sc.StatusCode(); {
		case code == 401 || code == 403:
			return ClassAuth
		case code == 429:
			return ClassRateLimit
		case code == 400:
			return ClassValidation
		case code >= 500 && code < 600:
			return ClassServer
		}
	}

	msg := strings.ToLower(err.Error())
	for _, entry := range substringCatalogue {
		if strings.Contains(msg, entry.needle) {
			return entry.class
		}
	}
	return ClassUnknown
}

// Retryable reports whether an error's class permits retrying
func Retryable(err error) bool {
	switch Classify(err) {
	case ClassNetwork, ClassTimeout, ClassRateLimit, ClassServer, ClassExternalService, ClassWebSocket:
		return true
	default:
		return false
	}
}
