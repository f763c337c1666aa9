package config

import (
	"io"
	"log/slog"
	"strings"
)

// BuildLogger constructs the process logger from the logging configuration.
// Debug mode forces the level down to debug regardless of logging.level.
func BuildLogger(cfg *Config, w io.Writer) *slog.Logger {
	level, err := ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	if cfg.Core.Debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(cfg.Logging.Format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}
