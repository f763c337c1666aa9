package stage

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Resolver maps a pipeline stage ID to its implementation. The engine
// resolves every stage of its pipeline up front, so a missing stage is
// caught before the mission leaves PENDING.
type Resolver interface {
	Resolve(id string) (Stage, error)
}

// Registry is a thread-safe Resolver backed by a map.
type Registry struct {
	mu     sync.RWMutex
	stages map[string]Stage
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{stages: make(map[string]Stage)}
}

// Register adds or replaces a stage implementation.
func (r *Registry) Register(s Stage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages[s.ID()] = s
}

// Resolve returns the stage registered under id.
func (r *Registry) Resolve(id string) (Stage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.stages[id]
	if !ok {
		return nil, fmt.Errorf("no stage registered with id %q", id)
	}
	return s, nil
}

// SimulatedRegistry returns a Registry with simulated implementations for
// the default pipeline stages. Each stage sleeps for delay and reports
// success with a small canned output. Used by the CLI demo and in tests;
// real deployments register their own worker-backed stages.
func SimulatedRegistry(delay time.Duration) *Registry {
	r := NewRegistry()
	for _, id := range []string{"plan", "generate", "execute", "verify"} {
		id := id
		r.Register(New(id, func(ctx context.Context, sc Context) Result {
			if delay > 0 {
				select {
				case <-time.After(delay):
				case <-ctx.Done():
					return Fail(ctx.Err().Error())
				}
			}
			return Ok(map[string]any{
				"stage":      id,
				"agent_type": sc.AgentType,
				"attempt":    sc.Attempt,
				"summary":    fmt.Sprintf("%s finished for mission %s", id, sc.MissionID),
			})
		}))
	}
	return r
}
