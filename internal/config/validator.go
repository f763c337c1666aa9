package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/elliotttmiller/sentinel/internal/types"
)

// Validate checks a configuration for values the runtime cannot work with.
func Validate(cfg *Config) error {
	var problems []string

	if cfg.Database.Path == "" {
		problems = append(problems, "database.path is required")
	}
	if cfg.Engine.MaxHealingAttempts < 0 {
		problems = append(problems, "engine.max_healing_attempts cannot be negative")
	}
	if cfg.Events.QueueCapacity < 1 {
		problems = append(problems, "events.queue_capacity must be at least 1")
	}
	if cfg.Events.ReplayDepth < 0 {
		problems = append(problems, "events.replay_depth cannot be negative")
	}
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d out of range 1-65535", cfg.Server.Port))
	}
	if _, err := ParseLevel(cfg.Logging.Level); err != nil {
		problems = append(problems, err.Error())
	}
	switch strings.ToLower(cfg.Logging.Format) {
	case "text", "json":
	default:
		problems = append(problems, "logging.format must be text or json")
	}

	if len(problems) > 0 {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, strings.Join(problems, "; "))
	}
	return nil
}

// ParseLevel converts a config level string to a slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", level)
	}
}
