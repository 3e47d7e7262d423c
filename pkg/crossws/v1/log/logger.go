// Package log defines the logging interface shared by crossws packages.
package log

import (
	"context"
	"log/slog"
)

// Logger is the logging surface used by the engine, router and CLI.
// Implementations are expected to be safe for concurrent use.
type Logger interface {
	// Debugf, Infof, Warnf and Errorf log a fmt.Sprintf-style message at the
	// matching level. Errorf inspects a trailing error argument and logs known
	// crossws error types structurally.
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})

	// Log logs msg at level with key-value attributes.
	Log(level slog.Level, msg string, args ...interface{})
	// LogCtx is Log with a context, so trace and span IDs of an active span
	// end up on the record.
	LogCtx(ctx context.Context, level slog.Level, msg string, args ...interface{})

	// With returns a Logger that adds args to every record.
	With(args ...interface{}) Logger
	// IsEnabled reports whether records at level are emitted.
	IsEnabled(level slog.Level) bool
}
