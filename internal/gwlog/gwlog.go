// Package gwlog configures the process-wide structured logger every other
// package reaches via slog.Default(), a slog.NewJSONHandler setup with
// level and format controlled by environment variables.
package gwlog

import (
	"log/slog"
	"os"
	"strings"
)

// New builds a JSON slog.Logger writing to stderr at the level named by
// level ("debug", "info", "warn", "error"; unrecognized values fall back to
// info).
func New(level string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
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
