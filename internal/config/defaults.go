package config

import (
	"os"
	"path/filepath"
	"time"
)

// DefaultConfig returns the configuration used when no file is provided.
func DefaultConfig() *Config {
	dataDir := defaultDataDir()

	return &Config{
		Core: CoreConfig{
			DataDir: dataDir,
		},
		Database: DBConfig{
			Path:        filepath.Join(dataDir, "sentinel.db"),
			BusyTimeout: 5 * time.Second,
		},
		Engine: EngineConfig{
			MaxHealingAttempts: 2,
			StageDelay:         250 * time.Millisecond,
		},
		Events: EventsConfig{
			QueueCapacity: 1000,
			ReplayDepth:   0,
		},
		Server: ServerConfig{
			Host:          "127.0.0.1",
			Port:          8420,
			ShutdownGrace: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sentinel"
	}
	return filepath.Join(home, ".sentinel")
}
