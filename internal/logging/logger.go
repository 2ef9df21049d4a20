// Package logging builds the structured loggers used throughout dirwatch.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// New creates a structured logger writing to w (os.Stdout if nil) at the
// given level ("debug", "info", "warn", "error"; defaults to "info") in
// either "json" or text format.
func New(format, level string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}

	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// WithWatcher returns a logger with the subscription id attached, so that
// concurrent subscriptions' log lines are attributable.
func WithWatcher(logger *slog.Logger, subscriptionID string) *slog.Logger {
	return logger.With("subscription", subscriptionID)
}

// WithRoot returns a logger with the watched root path attached.
func WithRoot(logger *slog.Logger, root string) *slog.Logger {
	return logger.With("root", root)
}
