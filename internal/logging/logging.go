package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Mode selects the handler format.
type Mode int

const (
	// ModeText writes key=value lines for interactive CLI use.
	ModeText Mode = iota
	// ModeJSON writes one JSON object per line for daemons.
	ModeJSON
)

// New builds a logger writing to w.
func New(w io.Writer, mode Mode, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if mode == ModeJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Init creates the root logger on stderr, sets it as the slog default and returns it.
// Stdout stays free for command output.
func Init(mode Mode, level string) *slog.Logger {
	logger := New(os.Stderr, mode, ParseLevel(level))
	slog.SetDefault(logger)
	return logger
}

// ParseLevel converts a string ("debug", "info", "warn", "error") to slog.Level.
// Unknown strings default to LevelInfo.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
