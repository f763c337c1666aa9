package mission

import (
	"context"
	"time"
)

// StatusFields carries the optional fields updated alongside a status
// transition. Nil fields are left untouched.
type StatusFields struct {
	Progress      *int
	AttemptCount  *int
	CurrentPrompt *string
	Result        *string
	ErrorMessage  *string
}

// Filter provides filtering options for mission queries.
type Filter struct {
	Status        *Status
	AgentType     *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	Limit         int
	Offset        int
}

// MissionStore persists mission records. Implementations must be safe for
// concurrent use; the engine and the HTTP surface share one store.
//
// Store-level invariant: once a mission is terminal, every further mutation
// is rejected.
type MissionStore interface {
	// Save persists a new mission. Fails if the ID already exists.
	Save(ctx context.Context, m *Mission) error

	// Get retrieves a mission by ID.
	Get(ctx context.Context, id string) (*Mission, error)

	// List retrieves missions matching the filter, newest first.
	List(ctx context.Context, filter *Filter) ([]*Mission, error)

	// UpdateStatus transitions a mission to a new status and applies the
	// given fields. The transition must be valid per the automaton.
	UpdateStatus(ctx context.Context, id string, status Status, fields StatusFields) error

	// UpdateProgress updates only the progress field of a running mission.
	UpdateProgress(ctx context.Context, id string, progress int) error

	// GetActive retrieves all missions in a non-terminal state.
	GetActive(ctx context.Context) ([]*Mission, error)

	// Count returns the number of missions matching the filter.
	Count(ctx context.Context, filter *Filter) (int, error)

	// Delete removes a mission. Only terminal missions may be deleted.
	Delete(ctx context.Context, id string) error
}

// matchesFilter reports whether a mission satisfies the filter criteria,
// ignoring pagination. Shared by the in-memory store; the SQLite store
// filters in SQL.
func matchesFilter(m *Mission, f *Filter) bool {
	if f == nil {
		return true
	}
	if f.Status != nil && m.Status != *f.Status {
		return false
	}
	if f.AgentType != nil && m.AgentType != *f.AgentType {
		return false
	}
	if f.CreatedAfter != nil && !m.CreatedAt.After(*f.CreatedAfter) {
		return false
	}
	if f.CreatedBefore != nil && !m.CreatedAt.Before(*f.CreatedBefore) {
		return false
	}
	return true
}

// applyStatusFields applies non-nil fields to a mission and stamps the
// lifecycle timestamps implied by the new status.
func applyStatusFields(m *Mission, status Status, fields StatusFields) {
	now := time.Now().UTC()

	m.Status = status
	m.UpdatedAt = now

	if status == StatusRunning && m.StartedAt == nil {
		m.StartedAt = &now
	}
	if status.IsTerminal() {
		m.CompletedAt = &now
	}

	if fields.Progress != nil {
		m.Progress = *fields.Progress
	}
	if fields.AttemptCount != nil {
		m.AttemptCount = *fields.AttemptCount
	}
	if fields.CurrentPrompt != nil {
		m.CurrentPrompt = *fields.CurrentPrompt
	}
	if fields.Result != nil {
		m.Result = fields.Result
	}
	if fields.ErrorMessage != nil {
		m.ErrorMessage = fields.ErrorMessage
	}
}
