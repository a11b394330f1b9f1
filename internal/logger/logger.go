// Package logger wraps log/slog with the small surface the rest of the
// server uses: leveled text output plus Fatal.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// Logger is the application-wide structured logger.
type Logger struct {
	*slog.Logger
}

// New returns a Logger writing text records to stdout. The level maps
// directly onto slog levels, so 0 is Info and -4 is Debug.
func New(level int) *Logger {
	return NewWithWriter(os.Stdout, level)
}

// NewWithWriter returns a Logger writing to w at the given level.
func NewWithWriter(w io.Writer, level int) *Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.Level(level)})
	return &Logger{Logger: slog.New(handler)}
}

// Fatal logs at error level and exits the process.
func (l *Logger) Fatal(msg string, args ...any) {
	l.Logger.Error(msg, args...)
	os.Exit(1)
}
