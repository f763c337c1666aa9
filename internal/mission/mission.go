package mission

import (
	"strings"
	"time"

	"github.com/elliotttmiller/sentinel/internal/types"
)

// Status represents the lifecycle state of a mission.
type Status string

const (
	// StatusPending indicates the mission is created but not yet started.
	StatusPending Status = "pending"

	// StatusRunning indicates the mission is executing its stage sequence.
	StatusRunning Status = "running"

	// StatusHealing indicates a stage failed and the mission is being
	// prepared for an automatic retry with a mutated prompt.
	StatusHealing Status = "healing"

	// StatusCompleted indicates every stage succeeded.
	StatusCompleted Status = "completed"

	// StatusFailed indicates a stage failed with no healing attempts left.
	StatusFailed Status = "failed"

	// StatusCancelled indicates the mission was cancelled externally.
	StatusCancelled Status = "cancelled"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true for completed, failed, and cancelled. A mission in
// a terminal state is never mutated again.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo validates whether a state transition is allowed by the
// mission automaton.
func (s Status) CanTransitionTo(target Status) bool {
	if s.IsTerminal() {
		return false
	}

	switch s {
	case StatusPending:
		return target == StatusRunning || target == StatusCancelled
	case StatusRunning:
		return target == StatusHealing ||
			target == StatusCompleted ||
			target == StatusFailed ||
			target == StatusCancelled
	case StatusHealing:
		return target == StatusRunning || target == StatusCancelled
	default:
		return false
	}
}

// ParseStatus converts a string to a Status, case-insensitively.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(s)) {
	case StatusPending, StatusRunning, StatusHealing, StatusCompleted, StatusFailed, StatusCancelled:
		return Status(strings.ToLower(s)), nil
	default:
		return "", types.NewError(types.MISSION_INVALID, "unknown mission status "+s)
	}
}

// Mission is one user-submitted unit of work tracked through the state
// machine. The ID is caller-supplied, globally unique, and stable across all
// healing attempts of the same logical mission. The engine owns all
// mutation; everything else reads.
type Mission struct {
	// ID is the caller-supplied unique identifier.
	ID string `json:"id"`

	// Prompt is the natural-language request the mission was submitted
	// with. Preserved verbatim; healing mutates CurrentPrompt only.
	Prompt string `json:"prompt"`

	// CurrentPrompt is the prompt for the active attempt. Equal to Prompt
	// until the first healing cycle embeds the failure text.
	CurrentPrompt string `json:"current_prompt"`

	// AgentType selects the worker pool handling this mission's stages.
	AgentType string `json:"agent_type"`

	// Status is the current lifecycle state.
	Status Status `json:"status"`

	// Progress is the 0-100 completion percentage, monotonic within one
	// attempt and reset when a healing cycle restarts the stage sequence.
	Progress int `json:"progress"`

	// AttemptCount starts at 0 and increments by one per healing cycle.
	AttemptCount int `json:"attempt_count"`

	// Result holds the final output, set only at completion.
	Result *string `json:"result,omitempty"`

	// ErrorMessage holds the most recent failure text, set when the
	// mission enters healing or fails terminally.
	ErrorMessage *string `json:"error_message,omitempty"`

	// CreatedAt is when the mission row was created.
	CreatedAt time.Time `json:"created_at"`

	// StartedAt is when execution began.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when the mission reached a terminal state.
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// UpdatedAt is the timestamp of the last mutation.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewMission creates a pending mission.
func NewMission(id, prompt, agentType string) *Mission {
	now := time.Now().UTC()
	return &Mission{
		ID:            id,
		Prompt:        prompt,
		CurrentPrompt: prompt,
		AgentType:     agentType,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Validate checks the invariants an externally submitted mission must hold.
func (m *Mission) Validate() error {
	if m.ID == "" {
		return types.NewError(types.MISSION_INVALID, "mission id is required")
	}
	if m.Prompt == "" {
		return types.NewError(types.MISSION_INVALID, "mission prompt is required")
	}
	if m.Progress < 0 || m.Progress > 100 {
		return types.NewError(types.MISSION_INVALID, "mission progress out of range 0-100")
	}
	if m.AttemptCount < 0 {
		return types.NewError(types.MISSION_INVALID, "mission attempt_count cannot be negative")
	}
	return nil
}

// Clone returns a deep copy. Stores hand out clones so callers can never
// mutate the stored record.
func (m *Mission) Clone() *Mission {
	out := *m
	if m.Result != nil {
		v := *m.Result
		out.Result = &v
	}
	if m.ErrorMessage != nil {
		v := *m.ErrorMessage
		out.ErrorMessage = &v
	}
	if m.StartedAt != nil {
		v := *m.StartedAt
		out.StartedAt = &v
	}
	if m.CompletedAt != nil {
		v := *m.CompletedAt
		out.CompletedAt = &v
	}
	return &out
}
