// Package errutil funnels errors that cannot be returned to a caller into the
// log.
package errutil

import (
	"fmt"
	"io"
	"log/slog"
)

func logger(log *slog.Logger) *slog.Logger {
	if log == nil {
		return slog.Default()
	}
	return log
}

// LogMsg logs the error with a custom message if it is not nil.
func LogMsg(log *slog.Logger, err error, msg string, args ...any) {
	if err != nil {
		allArgs := append([]any{"error", err}, args...)
		logger(log).Warn(msg, allArgs...)
	}
}

// ReportError logs an unexpected error.
func ReportError(log *slog.Logger, err error, msg string, args ...any) {
	if err != nil {
		allArgs := append([]any{"error", err}, args...)
		logger(log).Error(msg, allArgs...)
	}
}

// Close closes c and reports a failure.
func Close(log *slog.Logger, c io.Closer, msg string, args ...any) {
	ReportError(log, c.Close(), msg, args...)
}

// Recover turns a panic into a logged error. It must be deferred directly.
func Recover(log *slog.Logger, msg string, args ...any) {
	if r := recover(); r != nil {
		ReportError(log, fmt.Errorf("panic: %v", r), msg, args...)
	}
}
