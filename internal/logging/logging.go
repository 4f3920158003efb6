// Package logging configures the process-wide slog logger from the
// environment.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Init installs the default logger from LOG_LEVEL, LOG_FORMAT and
// LOG_FILE. fallback is the level used when LOG_LEVEL is unset. The
// returned Closer closes the log file, if one was opened.
func Init(fallback slog.Level) (io.Closer, error) {
	level := ParseLevel(os.Getenv("LOG_LEVEL"), fallback)

	var (
		w      io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
	)
	if path := os.Getenv("LOG_FILE"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		w, closer = f, f
	}

	handler, err := NewHandler(w, level, os.Getenv("LOG_FORMAT"))
	if err != nil {
		closer.Close()
		return nil, err
	}
	slog.SetDefault(slog.New(handler))
	return closer, nil
}

// ParseLevel maps a LOG_LEVEL value to a level. Unknown values give
// fallback.
func ParseLevel(s string, fallback slog.Level) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dev", "development", "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "production", "prod":
		return slog.LevelError
	}
	return fallback
}

// NewHandler returns a text or json handler writing to w. An empty format
// means text.
func NewHandler(w io.Writer, level slog.Level, format string) (slog.Handler, error) {
	opts := &slog.HandlerOptions{
		Level: level,
	}

	switch strings.ToLower(format) {
	case "", FormatText:
		return slog.NewTextHandler(w, opts), nil
	case FormatJSON:
		return slog.NewJSONHandler(w, opts), nil
	default:
		return nil, fmt.Errorf("unsupported log format %q", format)
	}
}
