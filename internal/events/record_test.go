package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecord(t *testing.T) {
	before := time.Now().UTC()
	rec := NewRecord(EventMissionStarted, "engine:m1", SeverityInfo, "mission started",
		map[string]any{"mission_id": "m1"})
	after := time.Now().UTC()

	assert.NoError(t, rec.EventID.Validate())
	assert.Equal(t, EventMissionStarted, rec.Type)
	assert.Equal(t, "engine:m1", rec.Source)
	assert.Equal(t, SeverityInfo, rec.Severity)
	assert.False(t, rec.Timestamp.Before(before))
	assert.False(t, rec.Timestamp.After(after))

	other := NewRecord(EventMissionStarted, "engine:m1", SeverityInfo, "mission started", nil)
	assert.NotEqual(t, rec.EventID, other.EventID)
}

func TestRecordWireShape(t *testing.T) {
	rec := NewRecord(EventMissionProgress, "engine:m1", SeverityInfo, "progress",
		map[string]any{"percent": 50})

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(data, &wire))

	for _, key := range []string{"event_id", "timestamp", "event_type", "source", "severity", "message", "payload"} {
		assert.Contains(t, wire, key)
	}
	assert.Equal(t, "mission_progress", wire["event_type"])
	assert.Equal(t, "INFO", wire["severity"])

	// Timestamp must serialize as ISO-8601 / RFC 3339.
	_, err = time.Parse(time.RFC3339Nano, wire["timestamp"].(string))
	assert.NoError(t, err)
}

func TestRecordPayloadOmittedWhenEmpty(t *testing.T) {
	rec := NewRecord(EventMissionCancelled, "engine:m1", SeverityWarning, "cancelled", nil)

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"payload"`)
}
