package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/elliotttmiller/sentinel/internal/config"
)

var (
	configFile string
	debugMode  bool

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "sentinel",
	Short: "Sentinel - self-healing mission execution engine",
	Long: `Sentinel executes agent missions through a staged pipeline,
automatically retrying failed missions with a mutated prompt and
broadcasting progress to connected observers.`,
	PersistentPreRunE: setup,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

// Execute runs the root command with signal handling.
func Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return rootCmd.ExecuteContext(ctx)
}

// setup loads the environment, configuration, and logger before any
// subcommand runs.
func setup(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" || cmd.Name() == "help" {
		return nil
	}

	// A local .env is optional; absence is not an error.
	_ = godotenv.Load()

	path := configFile
	if path == "" {
		path = os.Getenv("SENTINEL_CONFIG")
	}

	loaded, err := config.LoadWithDefaults(path)
	if err != nil {
		return err
	}
	if debugMode {
		loaded.Core.Debug = true
	}

	cfg = loaded
	logger = config.BuildLogger(cfg, os.Stderr)
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config file (default $SENTINEL_CONFIG)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}
