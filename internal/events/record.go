package events

import (
	"time"

	"github.com/elliotttmiller/sentinel/internal/types"
)

// EventType identifies the category and nature of an event.
type EventType string

// Mission lifecycle events.
// These are the only event types the mission engine emits; each one
// corresponds to a transition of the mission state machine.
const (
	EventMissionStarted   EventType = "mission_started"
	EventMissionProgress  EventType = "mission_progress"
	EventMissionHealing   EventType = "mission_healing"
	EventMissionCompleted EventType = "mission_completed"
	EventMissionFailed    EventType = "mission_failed"
	EventMissionError     EventType = "mission_error"
	EventMissionCancelled EventType = "mission_cancelled"
)

// System events.
// These track bus and server lifecycle, not mission execution.
const (
	EventSystemStarted    EventType = "system_started"
	EventSystemShutdown   EventType = "system_shutdown"
	EventClientConnected  EventType = "client_connected"
	EventClientDisconnect EventType = "client_disconnected"
)

// String returns the string representation of the event type.
func (t EventType) String() string {
	return string(t)
}

// Severity classifies how an observer should treat an event.
type Severity string

const (
	SeverityInfo    Severity = "INFO"
	SeverityWarning Severity = "WARNING"
	SeverityError   Severity = "ERROR"
	SeveritySuccess Severity = "SUCCESS"
)

// EventRecord is one immutable observability fact. Records are constructed
// once, queued on the bus, and fanned out to every live connection; nothing
// mutates a record after NewRecord returns.
//
// The JSON encoding of this struct is the wire shape delivered to observers.
type EventRecord struct {
	// EventID uniquely identifies this record.
	EventID types.ID `json:"event_id"`

	// Timestamp is when the record was constructed (UTC).
	Timestamp time.Time `json:"timestamp"`

	// Type identifies the kind of happening this record describes.
	Type EventType `json:"event_type"`

	// Source names the component that emitted the record, e.g.
	// "engine:mission-id" or "server".
	Source string `json:"source"`

	// Severity classifies the record for observers.
	Severity Severity `json:"severity"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// Payload carries structured event-specific data. May be nil.
	Payload map[string]any `json:"payload,omitempty"`
}

// NewRecord constructs an EventRecord with a fresh ID and UTC timestamp.
func NewRecord(eventType EventType, source string, severity Severity, message string, payload map[string]any) EventRecord {
	return EventRecord{
		EventID:   types.NewID(),
		Timestamp: time.Now().UTC(),
		Type:      eventType,
		Source:    source,
		Severity:  severity,
		Message:   message,
		Payload:   payload,
	}
}
