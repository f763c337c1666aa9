package events

import (
	"sync/atomic"
	"time"
)

// Connection is one observer's live transport handle. The bus requires only
// two things from a transport: deliver one JSON-serializable record, and
// report liveness. The wire protocol behind Send is a collaborator detail
// (SSE, websocket, console, test double).
//
// Send is called only from the broadcaster goroutine, one record at a time,
// so implementations do not need to serialize their own writes.
type Connection interface {
	// ID returns a stable identifier for this connection.
	ID() string

	// Send delivers one record to the observer. Any returned error marks
	// the connection dead: the bus unsubscribes it and never retries.
	Send(rec EventRecord) error

	// Alive reports whether the transport is still usable. A non-live
	// connection is pruned before the next delivery attempt.
	Alive() bool

	// Close releases the transport. Called by the bus after pruning and by
	// Close on bus shutdown. Must be idempotent.
	Close() error
}

// ConnDiagnostics is an informational snapshot of one registered
// connection's delivery history. It has no behavioral effect.
type ConnDiagnostics struct {
	ConnectionID string    `json:"connection_id"`
	RegisteredAt time.Time `json:"registered_at"`
	LastActivity time.Time `json:"last_activity"`
	MessagesSent int64     `json:"messages_sent"`
}

// connState pairs a registered connection with its delivery counters.
// Counters are atomics so the broadcaster can update them without holding
// the bus mutex during a delivery pass.
type connState struct {
	conn         Connection
	registeredAt time.Time
	lastActivity atomic.Int64 // unix nanos
	sent         atomic.Int64
}

func newConnState(conn Connection) *connState {
	now := time.Now()
	cs := &connState{conn: conn, registeredAt: now}
	cs.lastActivity.Store(now.UnixNano())
	return cs
}

func (cs *connState) markDelivered() {
	cs.sent.Add(1)
	cs.lastActivity.Store(time.Now().UnixNano())
}

func (cs *connState) diagnostics() ConnDiagnostics {
	return ConnDiagnostics{
		ConnectionID: cs.conn.ID(),
		RegisteredAt: cs.registeredAt,
		LastActivity: time.Unix(0, cs.lastActivity.Load()),
		MessagesSent: cs.sent.Load(),
	}
}
