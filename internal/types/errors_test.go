package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelErrorFormat(t *testing.T) {
	err := NewError(MISSION_NOT_FOUND, "no mission with id m1")
	assert.Equal(t, "[MISSION_NOT_FOUND] no mission with id m1", err.Error())

	wrapped := WrapError(DB_QUERY_FAILED, "query missions", errors.New("disk I/O error"))
	assert.Equal(t, "[DB_QUERY_FAILED] query missions: disk I/O error", wrapped.Error())
}

func TestSentinelErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := WrapError(DB_OPEN_FAILED, "open store", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestSentinelErrorIsMatchesByCode(t *testing.T) {
	a := NewError(ENGINE_STAGE_FAILED, "generate stage crashed")
	b := NewError(ENGINE_STAGE_FAILED, "different message")
	c := NewError(ENGINE_STAGE_PANIC, "boom")

	assert.ErrorIs(t, a, b)
	assert.NotErrorIs(t, a, c)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewRetryableError(ENGINE_STAGE_FAILED, "tool crashed")))
	assert.False(t, IsRetryable(NewError(ENGINE_INVALID_INPUT, "empty prompt")))

	// Plain errors default to retryable; the healing bound limits them.
	assert.True(t, IsRetryable(errors.New("unclassified")))

	// Retryability survives fmt wrapping.
	wrapped := fmt.Errorf("stage plan: %w", NewError(ENGINE_INVALID_INPUT, "empty prompt"))
	assert.False(t, IsRetryable(wrapped))
}
