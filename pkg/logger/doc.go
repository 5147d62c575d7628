// Package logger provides a structured logging interface for the timeline collector.
//
// It wraps the zerolog library to provide:
//   - Multiple log levels (Debug, Info, Warn, Error)
//   - Structured logging with fields
//   - Coloured console output on stderr
//   - Optional append-only file output
//   - A global logger instance for easy access
//
// Basic usage:
//
//	err := logger.Initialize(&cfg.Logging)
//	logger.WithField("account", "jack").Info("Account collected")
//
// Tests use NewNopLogger to discard output or NewTestLogger to capture it.
package logger
