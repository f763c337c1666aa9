package main

import (
	"fmt"
	"io"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/elliotttmiller/sentinel/internal/events"
	"github.com/elliotttmiller/sentinel/internal/mission"
	"github.com/elliotttmiller/sentinel/internal/stage"
)

var (
	runPrompt string
	runAgent  string
	runID     string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a single mission and print its events",
	Long: `Runs one mission to completion in the foreground, printing every
event to stdout. State is kept in memory; nothing is persisted.`,
	RunE: runOneShot,
}

func init() {
	runCmd.Flags().StringVarP(&runPrompt, "prompt", "p", "", "Mission prompt (required)")
	runCmd.Flags().StringVarP(&runAgent, "agent", "a", "default", "Agent type to execute the mission")
	runCmd.Flags().StringVar(&runID, "id", "", "Mission ID (default: random)")
	_ = runCmd.MarkFlagRequired("prompt")
}

func runOneShot(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	id := runID
	if id == "" {
		id = uuid.New().String()
	}

	store := mission.NewMemoryStore()
	bus := events.NewBus(
		events.WithQueueCapacity(cfg.Events.QueueCapacity),
		events.WithLogger(logger),
	)
	bus.Start(ctx)

	bus.Subscribe(newConsoleConn(cmd.OutOrStdout()))

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

	status, runErr := engine.Run(ctx, id, runPrompt, runAgent)

	// Drain remaining events before reporting the outcome.
	if err := bus.Close(); err != nil {
		return err
	}

	if runErr != nil {
		return runErr
	}

	fmt.Fprintf(cmd.OutOrStdout(), "mission %s finished: %s\n", id, status)
	if status == mission.StatusFailed {
		return fmt.Errorf("mission %s failed", id)
	}
	return nil
}

// consoleConn prints each event record as a single line.
type consoleConn struct {
	id     string
	w      io.Writer
	closed atomic.Bool
}

func newConsoleConn(w io.Writer) *consoleConn {
	return &consoleConn{id: "console-" + uuid.New().String(), w: w}
}

func (c *consoleConn) ID() string { return c.id }

func (c *consoleConn) Send(rec events.EventRecord) error {
	line := fmt.Sprintf("[%s] %-18s %s\n", rec.Severity, rec.Type, rec.Message)
	_, err := c.w.Write([]byte(line))
	return err
}

func (c *consoleConn) Alive() bool { return !c.closed.Load() }

func (c *consoleConn) Close() error {
	c.closed.Store(true)
	return nil
}

var _ events.Connection = (*consoleConn)(nil)
