package mission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusIsTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusRunning.IsTerminal())
	assert.False(t, StatusHealing.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
}

func TestStatusCanTransitionTo(t *testing.T) {
	tests := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusPending, StatusRunning, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusCompleted, false},
		{StatusPending, StatusHealing, false},

		{StatusRunning, StatusHealing, true},
		{StatusRunning, StatusCompleted, true},
		{StatusRunning, StatusFailed, true},
		{StatusRunning, StatusCancelled, true},
		{StatusRunning, StatusPending, false},

		{StatusHealing, StatusRunning, true},
		{StatusHealing, StatusCancelled, true},
		{StatusHealing, StatusCompleted, false},
		{StatusHealing, StatusFailed, false},

		// No transitions out of terminal states.
		{StatusCompleted, StatusRunning, false},
		{StatusFailed, StatusRunning, false},
		{StatusFailed, StatusHealing, false},
		{StatusCancelled, StatusPending, false},
		{StatusCompleted, StatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"_to_"+tt.to.String(), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("RUNNING")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, s)

	_, err = ParseStatus("exploded")
	assert.Error(t, err)
}

func TestNewMission(t *testing.T) {
	m := NewMission("m1", "build a parser", "coder")

	assert.Equal(t, StatusPending, m.Status)
	assert.Equal(t, 0, m.Progress)
	assert.Equal(t, 0, m.AttemptCount)
	assert.Equal(t, "build a parser", m.Prompt)
	assert.Equal(t, "build a parser", m.CurrentPrompt)
	assert.NoError(t, m.Validate())
}

func TestMissionValidate(t *testing.T) {
	assert.Error(t, NewMission("", "prompt", "coder").Validate())
	assert.Error(t, NewMission("m1", "", "coder").Validate())

	m := NewMission("m1", "prompt", "coder")
	m.Progress = 120
	assert.Error(t, m.Validate())

	m = NewMission("m1", "prompt", "coder")
	m.AttemptCount = -1
	assert.Error(t, m.Validate())
}

func TestMissionClone(t *testing.T) {
	m := NewMission("m1", "prompt", "coder")
	result := "done"
	m.Result = &result

	clone := m.Clone()
	*clone.Result = "changed"
	clone.Status = StatusCompleted

	assert.Equal(t, "done", *m.Result)
	assert.Equal(t, StatusPending, m.Status)
}
