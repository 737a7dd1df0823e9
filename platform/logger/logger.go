// Package logger provides structured logging infrastructure for the
// application. This is part of the platform layer and contains no business
// logic.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Context key types for storing values in context
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// PrincipalKey is the context key for the authenticated principal ID
	PrincipalKey contextKey = "principal_id"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithContext returns a logger with request-scoped values extracted.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("request_id", requestID))}
	}

	if principal, ok := ctx.Value(PrincipalKey).(string); ok && principal != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("principal_id", principal))}
	}

	return newLogger
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// ClaimResolved logs the outcome of claim arbitration on a lead request.
func (l *Logger) ClaimResolved(requestID, agentID string, won bool) {
	if won {
		l.Info("claim_resolved",
			slog.String("request_id", requestID),
			slog.String("agent_id", agentID),
			slog.Bool("won", true),
		)
		return
	}
	l.Debug("claim_resolved",
		slog.String("request_id", requestID),
		slog.String("agent_id", agentID),
		slog.Bool("won", false),
	)
}

// DeliveryError logs a failed channel delivery for one candidate.
// Broadcast continues for the remaining candidates, so this is a warning.
func (l *Logger) DeliveryError(requestID, agentID string, err error) {
	l.Warn("delivery_failed",
		slog.String("request_id", requestID),
		slog.String("agent_id", agentID),
		slog.String("error", err.Error()),
	)
}

// SweepResult logs the outcome of a TTL sweep pass.
func (l *Logger) SweepResult(expired int) {
	if expired == 0 {
		l.Debug("ttl_sweep", slog.Int("expired", 0))
		return
	}
	l.Info("ttl_sweep", slog.Int("expired", expired))
}

// RateLimitExceeded logs rate limit events
func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}
