package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/elliotttmiller/sentinel/internal/database"
	"github.com/elliotttmiller/sentinel/internal/events"
	"github.com/elliotttmiller/sentinel/internal/mission"
	"github.com/elliotttmiller/sentinel/internal/server"
	"github.com/elliotttmiller/sentinel/internal/stage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Sentinel HTTP server",
	Long: `Starts the mission API and the live event stream. Missions are
persisted to SQLite and survive restarts; the server shuts down
gracefully on SIGINT/SIGTERM.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	dbCfg := database.DefaultConfig(cfg.Database.Path)
	if cfg.Database.BusyTimeout > 0 {
		dbCfg.BusyTimeout = cfg.Database.BusyTimeout
	}
	db, err := database.OpenWithConfig(dbCfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return err
	}
	store := mission.NewSQLiteStore(db)

	bus := events.NewBus(
		events.WithQueueCapacity(cfg.Events.QueueCapacity),
		events.WithReplayDepth(cfg.Events.ReplayDepth),
		events.WithLogger(logger),
	)
	bus.Start(ctx)

	pipeline, err := loadPipeline()
	if err != nil {
		return err
	}

	engine, err := mission.NewEngine(store, bus, stage.SimulatedRegistry(cfg.Engine.StageDelay),
		mission.WithPipeline(pipeline),
		mission.WithMaxHealingAttempts(cfg.Engine.MaxHealingAttempts),
		mission.WithEngineLogger(logger),
	)
	if err != nil {
		return err
	}

	srv := server.New(cfg.Server, engine, store, bus, logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		return bus.Close()
	})
	return g.Wait()
}

func loadPipeline() (stage.Pipeline, error) {
	if cfg.Engine.PipelineFile == "" {
		return stage.DefaultPipeline(), nil
	}
	return stage.LoadPipeline(cfg.Engine.PipelineFile)
}
