package mission

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/elliotttmiller/sentinel/internal/events"
	"github.com/elliotttmiller/sentinel/internal/stage"
	"github.com/elliotttmiller/sentinel/internal/types"
)

// DefaultMaxHealingAttempts bounds the automatic retries of a failed
// mission.
const DefaultMaxHealingAttempts = 2

// healingPromptFormat embeds the failure text into the prompt for the next
// attempt.
const healingPromptFormat = "Original prompt failed due to '%s'. Re-attempt with more robustness. Original prompt: %s"

// FaultInjector is a test hook invoked before each stage execution. A
// non-nil return is treated as a stage failure. Never set in production.
type FaultInjector func(stageID string, attempt int) error

// Engine drives missions through the stage sequence, applying the healing
// policy on failure: a failed stage triggers a bounded automatic retry of
// the whole sequence with a prompt that embeds the failure text, instead of
// surfacing the first failure.
//
// Concurrency: at most one in-flight run per mission ID; runs for distinct
// IDs execute independently, sharing only the store and the bus.
type Engine struct {
	store    MissionStore
	bus      *events.Bus
	resolver stage.Resolver

	pipeline      stage.Pipeline
	maxAttempts   int
	faultInjector FaultInjector
	logger        *slog.Logger

	mu     sync.Mutex
	active map[string]*activeMission
}

// activeMission tracks one in-flight run.
type activeMission struct {
	cancelled atomic.Bool
}

// EngineOption is a functional option for configuring an Engine.
type EngineOption func(*Engine)

// WithPipeline sets the stage sequence. Default: stage.DefaultPipeline.
func WithPipeline(p stage.Pipeline) EngineOption {
	return func(e *Engine) { e.pipeline = p }
}

// WithMaxHealingAttempts sets the healing retry bound. Default: 2.
func WithMaxHealingAttempts(n int) EngineOption {
	return func(e *Engine) {
		if n >= 0 {
			e.maxAttempts = n
		}
	}
}

// WithEngineLogger sets the structured logger for engine operations.
func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithFaultInjector installs a synthetic failure hook for tests.
func WithFaultInjector(fi FaultInjector) EngineOption {
	return func(e *Engine) { e.faultInjector = fi }
}

// NewEngine creates an Engine over a store, a bus, and a stage resolver.
func NewEngine(store MissionStore, bus *events.Bus, resolver stage.Resolver, opts ...EngineOption) (*Engine, error) {
	e := &Engine{
		store:       store,
		bus:         bus,
		resolver:    resolver,
		pipeline:    stage.DefaultPipeline(),
		maxAttempts: DefaultMaxHealingAttempts,
		logger:      slog.Default(),
		active:      make(map[string]*activeMission),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "mission-engine")

	if err := e.pipeline.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// Pipeline returns the engine's stage sequence.
func (e *Engine) Pipeline() stage.Pipeline {
	return e.pipeline
}

// ActiveCount returns the number of in-flight runs.
func (e *Engine) ActiveCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.active)
}

// Cancel flags a mission for cooperative cancellation. An in-flight run
// observes the flag at its next stage boundary, skips the remaining stages,
// and transitions to cancelled without healing. A pending mission that has
// not started is cancelled directly.
func (e *Engine) Cancel(ctx context.Context, missionID string) error {
	e.mu.Lock()
	am, inFlight := e.active[missionID]
	e.mu.Unlock()

	if inFlight {
		am.cancelled.Store(true)
		return nil
	}

	m, err := e.store.Get(ctx, missionID)
	if err != nil {
		return err
	}
	if m.Status.IsTerminal() {
		return types.NewError(types.MISSION_TERMINAL,
			"mission "+missionID+" is already "+m.Status.String())
	}

	if err := e.store.UpdateStatus(ctx, missionID, StatusCancelled, StatusFields{}); err != nil {
		return err
	}
	m.Status = StatusCancelled
	e.publish(cancelledRecord(m))
	return nil
}

// Run drives a mission from pending to a terminal status and returns that
// status. If no mission row exists for missionID one is created, so both
// the HTTP submission path (row already persisted) and the one-shot CLI
// path work.
//
// The healing policy is an explicit bounded loop: each attempt is a full
// restart of the stage sequence under the same mission ID, never a
// checkpoint resume, and attempt_count never exceeds the configured bound.
func (e *Engine) Run(ctx context.Context, missionID, prompt, agentType string) (Status, error) {
	if missionID == "" {
		return "", types.NewError(types.ENGINE_INVALID_INPUT, "mission id is required")
	}
	if prompt == "" {
		return "", types.NewError(types.ENGINE_INVALID_INPUT, "prompt is required")
	}

	am, err := e.register(missionID)
	if err != nil {
		return "", err
	}
	defer e.unregister(missionID)

	m, err := e.ensureMission(ctx, missionID, prompt, agentType)
	if err != nil {
		return "", err
	}

	stages, err := e.resolveStages()
	if err != nil {
		return "", err
	}

	logger := e.logger.With(slog.String("mission_id", missionID))

	// PENDING -> RUNNING
	start := e.pipeline.StartPercent
	if err := e.store.UpdateStatus(ctx, missionID, StatusRunning, StatusFields{Progress: &start}); err != nil {
		return "", err
	}
	m.Status = StatusRunning
	m.Progress = start
	e.publish(startedRecord(m))
	logger.Info("mission started", slog.String("agent_type", agentType))

	currentPrompt := m.CurrentPrompt

	for attempt := m.AttemptCount; ; {
		outputs := make(map[string]map[string]any, len(stages))
		failure := ""

		for i, st := range stages {
			if cancelled(ctx, am) {
				return e.finishCancelled(ctx, m, logger)
			}

			spec := e.pipeline.Stages[i]
			res := e.executeStage(ctx, m, st, stage.Context{
				MissionID:    missionID,
				Prompt:       currentPrompt,
				AgentType:    agentType,
				Attempt:      attempt,
				PriorOutputs: outputs,
			})

			if !res.Success {
				failure = res.Error
				if failure == "" {
					failure = fmt.Sprintf("stage %s failed without detail", st.ID())
				}
				logger.Warn("stage failed",
					slog.String("stage", st.ID()),
					slog.Int("attempt", attempt),
					slog.String("error", failure))
				break
			}

			outputs[st.ID()] = res.Output

			if i == len(stages)-1 {
				// All stages succeeded: RUNNING -> COMPLETED.
				result := encodeResult(res.Output)
				full := 100
				if err := e.store.UpdateStatus(ctx, missionID, StatusCompleted, StatusFields{
					Progress: &full,
					Result:   &result,
				}); err != nil {
					logger.Error("store update failed on completion", slog.String("error", err.Error()))
				}
				m.Status = StatusCompleted
				e.publish(completedRecord(m, result))
				logger.Info("mission completed", slog.Int("attempt_count", attempt))
				return StatusCompleted, nil
			}

			// Stage succeeded with more stages remaining: progress update.
			if err := e.store.UpdateProgress(ctx, missionID, spec.Percent); err != nil {
				logger.Error("store update failed on progress", slog.String("error", err.Error()))
			}
			m.Progress = spec.Percent
			e.publish(progressRecord(m, st.ID(), spec.Percent))
		}

		// A stage failed. Cancellation observed at the boundary wins over
		// healing.
		if cancelled(ctx, am) {
			return e.finishCancelled(ctx, m, logger)
		}

		if attempt >= e.maxAttempts {
			// Attempts exhausted: RUNNING -> FAILED, last error verbatim.
			if err := e.store.UpdateStatus(ctx, missionID, StatusFailed, StatusFields{
				ErrorMessage: &failure,
			}); err != nil {
				logger.Error("store update failed on failure", slog.String("error", err.Error()))
			}
			m.Status = StatusFailed
			e.publish(failedRecord(m, failure, attempt))
			logger.Warn("mission failed", slog.Int("attempt_count", attempt), slog.String("error", failure))
			return StatusFailed, nil
		}

		// Healing cycle: RUNNING -> HEALING -> RUNNING in one bounded
		// loop iteration. One event covers the cycle; the two store
		// updates record the failure and then the restarted attempt.
		attempt++
		if err := e.store.UpdateStatus(ctx, missionID, StatusHealing, StatusFields{
			ErrorMessage: &failure,
		}); err != nil {
			logger.Error("store update failed on healing", slog.String("error", err.Error()))
		}
		m.Status = StatusHealing
		e.publish(healingRecord(m, failure, attempt))

		// Always mutate from the original prompt so repeated healing
		// never nests the wrapper.
		currentPrompt = fmt.Sprintf(healingPromptFormat, failure, m.Prompt)
		if err := e.store.UpdateStatus(ctx, missionID, StatusRunning, StatusFields{
			AttemptCount:  &attempt,
			CurrentPrompt: &currentPrompt,
			Progress:      &start,
		}); err != nil {
			logger.Error("store update failed on healing restart", slog.String("error", err.Error()))
		}
		m.Status = StatusRunning
		m.AttemptCount = attempt
		m.Progress = start
		logger.Info("healing restart", slog.Int("attempt_count", attempt))
	}
}

// executeStage runs one stage, converting panics and injected faults into
// stage failures so orchestration-level trouble follows the same healing
// path as stage-reported failures.
func (e *Engine) executeStage(ctx context.Context, m *Mission, st stage.Stage, sc stage.Context) (res stage.Result) {
	defer func() {
		if r := recover(); r != nil {
			errText := fmt.Sprintf("stage %s panicked: %v", st.ID(), r)
			e.publish(errorRecord(m, st.ID(), errText))
			res = stage.Fail(errText)
		}
	}()

	if e.faultInjector != nil {
		if err := e.faultInjector(st.ID(), sc.Attempt); err != nil {
			return stage.Fail(err.Error())
		}
	}

	return st.Execute(ctx, sc)
}

// ensureMission loads the mission row, creating a pending one when absent.
func (e *Engine) ensureMission(ctx context.Context, missionID, prompt, agentType string) (*Mission, error) {
	m, err := e.store.Get(ctx, missionID)
	if err == nil {
		if m.Status != StatusPending {
			return nil, types.NewError(types.MISSION_INVALID,
				"mission "+missionID+" is "+m.Status.String()+", expected pending")
		}
		return m, nil
	}
	if !types.HasCode(err, types.MISSION_NOT_FOUND) {
		return nil, err
	}

	m = NewMission(missionID, prompt, agentType)
	if err := e.store.Save(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (e *Engine) resolveStages() ([]stage.Stage, error) {
	stages := make([]stage.Stage, 0, len(e.pipeline.Stages))
	for _, spec := range e.pipeline.Stages {
		st, err := e.resolver.Resolve(spec.ID)
		if err != nil {
			return nil, types.WrapError(types.ENGINE_PIPELINE_INVALID, "resolve stage "+spec.ID, err)
		}
		stages = append(stages, st)
	}
	return stages, nil
}

func (e *Engine) register(missionID string) (*activeMission, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.active[missionID]; exists {
		return nil, types.NewError(types.MISSION_ALREADY_ACTIVE,
			"mission "+missionID+" already has an in-flight run")
	}
	am := &activeMission{}
	e.active[missionID] = am
	return am, nil
}

func (e *Engine) unregister(missionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.active, missionID)
}

func (e *Engine) finishCancelled(ctx context.Context, m *Mission, logger *slog.Logger) (Status, error) {
	if err := e.store.UpdateStatus(ctx, m.ID, StatusCancelled, StatusFields{}); err != nil {
		logger.Error("store update failed on cancellation", slog.String("error", err.Error()))
	}
	m.Status = StatusCancelled
	e.publish(cancelledRecord(m))
	logger.Info("mission cancelled")
	return StatusCancelled, nil
}

// publish pushes a record to the bus. Delivery trouble never reaches
// mission execution; a closed bus is only logged.
func (e *Engine) publish(rec events.EventRecord) {
	if err := e.bus.Publish(rec); err != nil {
		e.logger.Warn("event publish failed", slog.String("event_type", rec.Type.String()))
	}
}

func cancelled(ctx context.Context, am *activeMission) bool {
	if am.cancelled.Load() {
		return true
	}
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// encodeResult serializes the final stage output as the mission result.
func encodeResult(output map[string]any) string {
	if len(output) == 0 {
		return ""
	}
	data, err := json.Marshal(output)
	if err != nil {
		return fmt.Sprintf("%v", output)
	}
	return string(data)
}
