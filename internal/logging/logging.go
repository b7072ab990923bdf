// Package logging builds the process logger and the gate that reports
// finished model runs to it.
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// LevelCritical sits above slog.LevelError for runs that broke a model.
const LevelCritical = slog.LevelError + 4

// ParseLevel converts a level name to a slog.Level. The second return is
// false for names it does not recognize.
func ParseLevel(level string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	case "critical":
		return LevelCritical, true
	default:
		return slog.LevelInfo, false
	}
}

// New returns a logger writing json or text records to w at the given level.
func New(w io.Writer, format, level string) *slog.Logger {
	lev, _ := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level:       lev,
		ReplaceAttr: replaceLevel,
	}

	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler)
}

func replaceLevel(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelCritical {
		a.Value = slog.StringValue("CRITICAL")
	}
	return a
}
