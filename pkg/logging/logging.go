// Package logging selects the slog handler for the process.
//
// Production uses a JSON handler on stdout. Everywhere else tint writes
// colored, human-readable lines to stderr.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Setup builds the logger for the given level name and installs it as the default.
func Setup(levelName string, production bool) *slog.Logger {
	var logger *slog.Logger
	if production {
		logger = NewJSONLogger(os.Stdout, ParseLevel(levelName))
	} else {
		logger = NewDevLogger(os.Stderr, ParseLevel(levelName))
	}
	slog.SetDefault(logger)
	return logger
}

// NewJSONLogger writes one JSON object per record.
func NewJSONLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewDevLogger writes colored records through tint.
func NewDevLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		AddSource:  true,
	}))
}

// ParseLevel maps debug, warn and error to their levels. Anything else is info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
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
