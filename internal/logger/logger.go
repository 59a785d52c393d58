// Package logger builds the slog logger used by the wildtag CLI.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog.Logger and owns the optional log file.
type Logger struct {
	*slog.Logger
	file *os.File
}

// New creates a logger writing to stderr with the given level and format.
func New(level, format string) *Logger {
	return &Logger{Logger: slog.New(newHandler(os.Stderr, level, format))}
}

// NewWithFile creates a logger that writes to stderr and appends to path.
// An empty path behaves like New.
func NewWithFile(level, format, path string) (*Logger, error) {
	if path == "" {
		return New(level, format), nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	w := io.MultiWriter(os.Stderr, f)
	return &Logger{Logger: slog.New(newHandler(w, level, format)), file: f}, nil
}

// Close closes the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// WithRun returns a logger tagged with a processing run ID.
func (l *Logger) WithRun(id string) *Logger {
	return &Logger{Logger: l.With("run_id", id), file: l.file}
}

// WithError returns a logger with error context.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{Logger: l.With("error", err.Error()), file: l.file}
}

func newHandler(w io.Writer, level, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// ParseLevel maps a level name to slog.Level. Unknown names give Info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
