// Package logger builds the log/slog logger of the taxlot command.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// ParseLevel parses debug, info, warn or error, case insensitive.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
}

// New returns a logger writing to w at the given level, in "json" or "text"
// format. Invalid values fall back to info and text, with a warning.
func New(w io.Writer, level, format string) *slog.Logger {
	lvl, levelErr := ParseLevel(level)

	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.Format(time.RFC3339))
				}
			}
			return a
		},
	}

	var handler slog.Handler
	var formatErr error
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	case "text", "":
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
		formatErr = fmt.Errorf("invalid log format %q", format)
	}

	l := slog.New(handler)
	if levelErr != nil {
		l.Warn("Invalid LOG_LEVEL, defaulting to info", "error", levelErr)
	}
	if formatErr != nil {
		l.Warn("Invalid LOG_FORMAT, defaulting to text", "error", formatErr)
	}
	return l
}

// Init builds the logger with New and sets it as the slog default.
func Init(w io.Writer, level, format string) *slog.Logger {
	l := New(w, level, format)
	slog.SetDefault(l)
	return l
}
