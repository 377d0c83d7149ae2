package auth

import (
	"context"

	pkgLog "logstream-srv/pkg/log"
)

// SecurityEventType represents the type of security event
type SecurityEventType string

const (
	SecurityEventAuthorizationFailure SecurityEventType = "authorization_failure"
	SecurityEventRateLimitExceeded    SecurityEventType = "rate_limit_exceeded"
	SecurityEventInvalidInput         SecurityEventType = "invalid_input"
	SecurityEventAuthenticationFailed SecurityEventType = "authentication_failed"
)

// SecurityLogger logs security-relevant events on the push transport
type SecurityLogger struct {
	l pkgLog.Logger
}

// NewSecurityLogger creates a new SecurityLogger
func NewSecurityLogger(l pkgLog.Logger) *SecurityLogger {
	return &SecurityLogger{l: l}
}

// LogAuthorizationFailure logs a refused topic subscription
func (sl *SecurityLogger) LogAuthorizationFailure(ctx context.Context, userID, resource, resourceID, reason string) {
	sl.l.Warnf(ctx, "SECURITY: %s - user=%s resource=%s resourceID=%s reason=%s",
		SecurityEventAuthorizationFailure, userID, resource, resourceID, reason)
}

// LogRateLimitExceeded logs a rate limit exceeded event
func (sl *SecurityLogger) LogRateLimitExceeded(ctx context.Context, userID, limitType string, current, max int) {
	sl.l.Warnf(ctx, "SECURITY: %s - user=%s limit=%s current=%d max=%d",
		SecurityEventRateLimitExceeded, userID, limitType, current, max)
}

// LogInvalidInput logs a rejected inbound frame. The offending value is not logged.
func (sl *SecurityLogger) LogInvalidInput(ctx context.Context, userID, field, reason string) {
	sl.l.Warnf(ctx, "SECURITY: %s - user=%s field=%s reason=%s",
		SecurityEventInvalidInput, userID, field, reason)
}

// LogAuthenticationFailure logs a rejected upgrade
func (sl *SecurityLogger) LogAuthenticationFailure(ctx context.Context, remoteAddr, reason string) {
	sl.l.Warnf(ctx, "SECURITY: %s - remote=%s reason=%s",
		SecurityEventAuthenticationFailed, remoteAddr, reason)
}
