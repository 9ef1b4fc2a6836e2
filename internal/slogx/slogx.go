package slogx

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Default logger for direct use (writes to stderr, level info).
var Default = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
	Level: slog.LevelInfo,
}))

// ParseLevel converts string (debug|info|warn|error) to slog.Level. Unknown → info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewDefault creates a logger writing to stderr with the given level string.
func NewDefault(level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: ParseLevel(level),
	}))
}

// NewFileConsole creates a logger writing timestamped lines to both the log
// file (append) and stderr. The returned closer flushes the file handle; call
// it at process exit. When the file cannot be opened, the logger degrades to
// stderr only and the closer is a no-op.
func NewFileConsole(path, level string) (*slog.Logger, func() error) {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		l := slog.New(slog.NewTextHandler(os.Stderr, opts))
		l.Warn("cannot open log file, console only", "path", path, "error", err)
		return l, func() error { return nil }
	}
	l := slog.New(slog.NewTextHandler(io.MultiWriter(f, os.Stderr), opts))
	return l, f.Close
}
