// Package logging provides structured logging configuration shared by the
// binaries. Components receive a *slog.Logger through their constructors
// and never reach for a global.
package logging

import (
	"log/slog"
	"os"
)

// Config holds logging configuration.
type Config struct {
	Level string
	Text  bool
}

// NewLogger builds a slog logger writing to stdout. JSON output is the
// default; Text switches to the human-readable handler for local use.
func NewLogger(cfg Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Text {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
