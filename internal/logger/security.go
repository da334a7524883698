// Package logger provides security event logging for the inbox API.
package logger

import (
	"log/slog"
	"strings"
	"time"
)

// SecurityLogger records security-relevant events. Credentials are never
// logged.
type SecurityLogger struct {
	logger *slog.Logger
}

// NewSecurityLogger wraps base, tagging every entry as a security event.
// A nil base falls back to slog.Default().
func NewSecurityLogger(base *slog.Logger) *SecurityLogger {
	if base == nil {
		base = slog.Default()
	}
	return &SecurityLogger{
		logger: base.With(slog.String("component", "security")),
	}
}

// NewSecurityLoggerWithHandler creates a SecurityLogger with a custom handler.
func NewSecurityLoggerWithHandler(handler slog.Handler) *SecurityLogger {
	return NewSecurityLogger(slog.New(handler))
}

// AuthFailure logs a failed authentication attempt.
// Never logs the actual credentials.
func (s *SecurityLogger) AuthFailure(ip, path, reason string) {
	s.logger.Warn("authentication_failure",
		slog.String("event_type", "auth_failure"),
		slog.String("ip", ip),
		slog.String("path", path),
		slog.String("reason", reason),
		slog.Time("timestamp", time.Now().UTC()),
	)
}

// RateLimitExceeded logs when a client exceeds rate limits.
func (s *SecurityLogger) RateLimitExceeded(ip, path string) {
	s.logger.Warn("rate_limit_exceeded",
		slog.String("event_type", "rate_limit"),
		slog.String("ip", ip),
		slog.String("path", path),
		slog.Time("timestamp", time.Now().UTC()),
	)
}

// InvalidOrigin logs a rejected WebSocket connection due to invalid origin.
func (s *SecurityLogger) InvalidOrigin(ip, origin string) {
	s.logger.Warn("invalid_origin",
		slog.String("event_type", "invalid_origin"),
		slog.String("ip", ip),
		slog.String("origin", origin),
		slog.Time("timestamp", time.Now().UTC()),
	)
}

// ValidationFailure logs a rejected contact form submission. Only the
// field name and the rule are recorded, never the submitted value.
func (s *SecurityLogger) ValidationFailure(ip, path, reason string) {
	s.logger.Info("validation_failure",
		slog.String("event_type", "validation_failure"),
		slog.String("ip", ip),
		slog.String("path", path),
		slog.String("reason", reason),
		slog.Time("timestamp", time.Now().UTC()),
	)
}

// SecurityEvent logs a generic security event.
func (s *SecurityLogger) SecurityEvent(eventType, ip string, details map[string]string) {
	attrs := []any{
		slog.String("event_type", eventType),
		slog.String("ip", ip),
		slog.Time("timestamp", time.Now().UTC()),
	}

	for k, v := range details {
		// Filter out sensitive keys
		if isSensitiveKey(k) {
			continue
		}
		attrs = append(attrs, slog.String(k, v))
	}

	s.logger.Warn("security_event", attrs...)
}

// GetLogger returns the underlying slog.Logger for use with middleware.
func (s *SecurityLogger) GetLogger() *slog.Logger {
	return s.logger
}

var sensitiveKeys = map[string]bool{
	"password":      true,
	"api_key":       true,
	"apikey":        true,
	"x-api-key":     true,
	"token":         true,
	"secret":        true,
	"authorization": true,
	"auth":          true,
	"credential":    true,
	"credentials":   true,
	"session":       true,
	"cookie":        true,
}

// isSensitiveKey checks if a key might contain sensitive data.
func isSensitiveKey(key string) bool {
	return sensitiveKeys[strings.ToLower(key)]
}
