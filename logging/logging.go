package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Log output formats
const (
	FORMAT_TEXT = "text"
	FORMAT_JSON = "json"
)

// Returns a logger writing to stderr. `format` is "text" or "json", stdout
// is left to the run summary
func NewLogger(level slog.Level, format string) *slog.Logger {
	return NewLoggerWithWriter(level, format, os.Stderr)
}

// Returns a logger writing to `w`. Unknown formats fall back to text
func NewLoggerWithWriter(level slog.Level, format string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case FORMAT_JSON:
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// Returns a logger that drops every record
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// Converts a level name to a slog.Level, unknown names map to info
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

// Returns true if `format` names a supported output format
func ValidFormat(format string) bool {
	switch strings.ToLower(format) {
	case FORMAT_TEXT, FORMAT_JSON:
		return true
	}
	return false
}
