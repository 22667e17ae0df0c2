// Package logger builds the application's structured loggers and records
// security events for the review server.
package logger

import (
	"log/slog"
	"os"
	"time"
)

// SecurityLogger provides methods for logging security-related events.
// It ensures sensitive data is never logged.
type SecurityLogger struct {
	logger *slog.Logger
}

// NewSecurityLogger creates a new SecurityLogger with JSON output.
func NewSecurityLogger() *SecurityLogger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	return &SecurityLogger{
		logger: slog.New(handler),
	}
}

// NewSecurityLoggerWithHandler creates a SecurityLogger with a custom handler.
func NewSecurityLoggerWithHandler(handler slog.Handler) *SecurityLogger {
	return &SecurityLogger{
		logger: slog.New(handler),
	}
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

// SuspiciousActivity logs potentially malicious activity.
func (s *SecurityLogger) SuspiciousActivity(ip, path, activity string) {
	s.logger.Warn("suspicious_activity",
		slog.String("event_type", "suspicious"),
		slog.String("ip", ip),
		slog.String("path", path),
		slog.String("activity", activity),
		slog.Time("timestamp", time.Now().UTC()),
	)
}

// PathTraversalAttempt logs a path traversal attempt.
func (s *SecurityLogger) PathTraversalAttempt(ip, path, attemptedPath string) {
	s.logger.Warn("path_traversal_attempt",
		slog.String("event_type", "path_traversal"),
		slog.String("ip", ip),
		slog.String("path", path),
		slog.String("attempted_path", attemptedPath),
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

// RejectedTestSend logs a refused test send. Only the recipient domain is
// recorded.
func (s *SecurityLogger) RejectedTestSend(ip, recipientDomain, reason string) {
	s.logger.Warn("rejected_test_send",
		slog.String("event_type", "rejected_send"),
		slog.String("ip", ip),
		slog.String("recipient_domain", recipientDomain),
		slog.String("reason", reason),
		slog.Time("timestamp", time.Now().UTC()),
	)
}

// GetLogger returns the underlying slog.Logger for use with middleware.
func (s *SecurityLogger) GetLogger() *slog.Logger {
	return s.logger
}
