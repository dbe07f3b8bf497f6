package weedlog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog.Logger with an optional JSON log file.
type Logger struct {
	*slog.Logger
	file *os.File
}

// Config holds configuration for creating a new Logger.
type Config struct {
	Source string
	Level  slog.Level
	// Format of the console output: "text" (default) or "json".
	Format string
	// File, when set, receives every record as JSON in addition to the console.
	File string
	// Output overrides the console writer (stderr by default).
	Output io.Writer
}

// NewLogger creates a Logger writing to the console and, if configured, to a
// JSON log file. Every record carries the source attribute.
func NewLogger(cfg Config) (*Logger, error) {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: cfg.Level}

	var console slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		console = slog.NewTextHandler(out, opts)
	case "json":
		console = slog.NewJSONHandler(out, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	logger := &Logger{}
	handler := console
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		logger.file = f
		handler = &multiHandler{
			handlers: []slog.Handler{console, slog.NewJSONHandler(f, opts)},
		}
	}

	l := slog.New(handler)
	if cfg.Source != "" {
		l = l.With("source", cfg.Source)
	}
	logger.Logger = l
	return logger, nil
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// ParseLevel maps debug, info, warn and error (case insensitive) to a level.
// Offsets such as "info+2" are rejected.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
}
