// Package config defines the Sentinel configuration tree and its YAML
// loader.
package config

import (
	"time"
)

// Config is the root configuration for Sentinel.
type Config struct {
	Core     CoreConfig    `mapstructure:"core" yaml:"core"`
	Database DBConfig      `mapstructure:"database" yaml:"database"`
	Engine   EngineConfig  `mapstructure:"engine" yaml:"engine"`
	Events   EventsConfig  `mapstructure:"events" yaml:"events"`
	Server   ServerConfig  `mapstructure:"server" yaml:"server"`
	Logging  LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// CoreConfig contains core application settings.
type CoreConfig struct {
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`
	Debug   bool   `mapstructure:"debug" yaml:"debug"`
}

// DBConfig contains database configuration.
type DBConfig struct {
	Path        string        `mapstructure:"path" yaml:"path"`
	BusyTimeout time.Duration `mapstructure:"busy_timeout" yaml:"busy_timeout"`
}

// EngineConfig contains mission engine configuration.
type EngineConfig struct {
	// MaxHealingAttempts bounds automatic retries of a failed mission.
	MaxHealingAttempts int `mapstructure:"max_healing_attempts" yaml:"max_healing_attempts"`

	// PipelineFile optionally points at a YAML stage sequence definition.
	// Empty means the built-in default pipeline.
	PipelineFile string `mapstructure:"pipeline_file" yaml:"pipeline_file"`

	// StageDelay is the artificial latency of the simulated stages used
	// when no real stage implementations are registered.
	StageDelay time.Duration `mapstructure:"stage_delay" yaml:"stage_delay"`
}

// EventsConfig contains event bus configuration.
type EventsConfig struct {
	// QueueCapacity bounds the broadcast queue; at capacity the oldest
	// queued record is dropped.
	QueueCapacity int `mapstructure:"queue_capacity" yaml:"queue_capacity"`

	// ReplayDepth is the number of recent records replayed to a new
	// subscriber. Zero disables replay.
	ReplayDepth int `mapstructure:"replay_depth" yaml:"replay_depth"`
}

// ServerConfig contains the HTTP surface configuration.
type ServerConfig struct {
	Host           string        `mapstructure:"host" yaml:"host"`
	Port           int           `mapstructure:"port" yaml:"port"`
	AllowedOrigins []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	ShutdownGrace  time.Duration `mapstructure:"shutdown_grace" yaml:"shutdown_grace"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}
