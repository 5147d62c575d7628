package logger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LogRateLimit logs a rate limit pause for an account
func LogRateLimit(l Logger, account string, attempt int, delay time.Duration) {
	l.WithFields(map[string]interface{}{
		"account": account,
		"attempt": attempt,
		"delay":   delay,
		"action":  "rate_limited",
	}).Warn("Rate limit reached, backing off")
}

// LogAccountResult logs the final disposition of one account. A failed
// account logged without err is reported at info level.
func LogAccountResult(l Logger, account, disposition string, posts int, err error) {
	fields := map[string]interface{}{
		"account":     account,
		"disposition": disposition,
		"posts":       posts,
	}

	entry := l.WithFields(fields)
	switch {
	case err != nil:
		entry.WithError(err).Warn("Account collection ended without data")
	case disposition != "success":
		entry.Info("Account collection ended without data")
	default:
		entry.Info("Account collected")
	}
}

// LogComponentStart logs when a component starts
func LogComponentStart(l Logger, component string, config map[string]interface{}) {
	entry := l.WithField("component", component)
	if len(config) > 0 {
		entry = entry.WithFields(config)
	}
	entry.Info("Component started")
}

// LogComponentStop logs when a component stops
func LogComponentStop(l Logger, component string, reason string) {
	l.WithFields(map[string]interface{}{
		"component": component,
		"reason":    reason,
	}).Info("Component stopped")
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger                               { return nil }
