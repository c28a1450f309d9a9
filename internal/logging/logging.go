// Package logging wraps the structured logger with the PII filter the
// ingress contract requires: sensitive fields are replaced with an
// opaque redaction before they reach any sink.
package logging

import (
	"strings"

	"github.com/charmbracelet/log"
)

// Redacted replaces the value of any sensitive field
const Redacted = "[REDACTED]"

// piiFields are field names whose values never reach a log sink
var piiFields = map[string]bool{
	"password":    true,
	"email":       true,
	"token":       true,
	"api_key":     true,
	"credit_card": true,
	"ssn":         true,
}

// Logger is a redacting facade over the structured logger
type Logger struct {
	inner *log.Logger
}

// NewLogger wraps a structured logger with PII redaction
func NewLogger(inner *log.Logger) *Logger {
	return &Logger{inner: inner}
}

// WithPrefix returns a logger with the given prefix
func (l *Logger) WithPrefix(prefix string) *Logger {
	return &Logger{inner: l.inner.WithPrefix(prefix)}
}

// With returns a logger with the given context attached, redacted
func (l *Logger) With(keyvals ...any) *Logger {
	return &Logger{inner: l.inner.With(redact(keyvals)...)}
}

// Debug logs at debug level with redacted context
func (l *Logger) Debug(msg string, keyvals ...any) {
	l.inner.Debug(msg, redact(keyvals)...)
}

// Info logs at info level with redacted context
func (l *Logger) Info(msg string, keyvals ...any) {
	l.inner.Info(msg, redact(keyvals)...)
}

// Warn logs at warn level with redacted context
func (l *Logger) Warn(msg string, keyvals ...any) {
	l.inner.Warn(msg, redact(keyvals)...)
}

// Error logs at error level with redacted context
func (l *Logger) Error(msg string, keyvals ...any) {
	l.inner.Error(msg, redact(keyvals)...)
}

// redact replaces the values of PII keys. Map values are filtered
// recursively so nested context cannot smuggle a secret through.
func redact(keyvals []any) []any {
	out := make([]any, len(keyvals))
	copy(out, keyvals)
	for i := 0; i+1 < len(out); i += 2 {
		key, ok := out[i].(string)
		if !ok {
			continue
		}
		if sensitiveKey(key) {
			out[i+1] = Redacted
			continue
		}
		if m, isMap := out[i+1].(map[string]any); isMap {
			out[i+1] = redactMap(m)
		}
	}
	return out
}

func redactMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch {
		case sensitiveKey(k):
			out[k] = Redacted
		default:
			if nested, isMap := v.(map[string]any); isMap {
				out[k] = redactMap(nested)
			} else {
				out[k] = v
			}
		}
	}
	return out
}

func sensitiveKey(key string) bool {
	return piiFields[strings.ToLower(key)]
}
