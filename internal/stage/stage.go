// Package stage defines the execution collaborator contract for the mission
// engine: one Stage performs one discrete unit of mission work. The engine
// treats stages as opaque, possibly slow, possibly failing.
package stage

import (
	"context"
)

// Context carries the inputs a stage needs for one execution. The prompt is
// the current (possibly healed) mission prompt, and Attempt is the healing
// attempt this pass belongs to (0 for the first pass).
type Context struct {
	MissionID string
	Prompt    string
	AgentType string
	Attempt   int

	// PriorOutputs holds the outputs of stages that completed earlier in
	// this pass, keyed by stage ID. Reset on every healing restart.
	PriorOutputs map[string]map[string]any
}

// Result is the outcome of one stage execution.
type Result struct {
	Success bool
	Output  map[string]any
	Error   string
}

// Ok builds a successful Result.
func Ok(output map[string]any) Result {
	return Result{Success: true, Output: output}
}

// Fail builds a failed Result with the given error text.
func Fail(errText string) Result {
	return Result{Success: false, Error: errText}
}

// Stage performs one unit of mission work.
type Stage interface {
	// ID returns the stage identifier referenced by pipeline specs.
	ID() string

	// Execute runs the stage. Respecting ctx cancellation is the stage's
	// responsibility; the engine additionally checks for cancellation at
	// every stage boundary.
	Execute(ctx context.Context, sc Context) Result
}

// Func adapts a plain function to the Stage interface via New.
type Func func(ctx context.Context, sc Context) Result

type funcStage struct {
	id string
	fn Func
}

// New wraps fn as a Stage with the given ID.
func New(id string, fn Func) Stage {
	return &funcStage{id: id, fn: fn}
}

func (s *funcStage) ID() string { return s.id }

func (s *funcStage) Execute(ctx context.Context, sc Context) Result {
	return s.fn(ctx, sc)
}
