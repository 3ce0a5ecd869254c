// Package logging configures the process-wide slog logger used for
// diagnostic messages. Nothing in the export depends on what is logged.
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// Setup installs a text handler writing to w at the given level.
//
// Level values: "debug", "info", "warn", "error" (default: "warn")
func Setup(level string, w io.Writer) {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(w, opts)))
}

// Discard silences all logging, for use while a full-screen UI owns the
// terminal.
func Discard() {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
