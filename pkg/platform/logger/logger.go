// Package logger builds the structured logger shared by every pipeline
// stage. All components log through *slog.Logger from the standard
// library rather than a separate logging library.
package logger

import (
	"log/slog"
	"os"
)

// Option configures the logger.
type Option func(*slog.HandlerOptions)

// WithLevel overrides the minimum log level (default slog.LevelInfo).
func WithLevel(level slog.Level) Option {
	return func(o *slog.HandlerOptions) {
		o.Level = level
	}
}

// New returns a JSON-handler slog.Logger writing to stdout, suitable for
// both the stream processor and the scheduled rule engine.
func New(opts ...Option) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: slog.LevelInfo}
	for _, opt := range opts {
		opt(handlerOpts)
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, handlerOpts))
}
