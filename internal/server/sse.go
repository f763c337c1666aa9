package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/elliotttmiller/sentinel/internal/events"
	"github.com/elliotttmiller/sentinel/internal/types"
)

// sseConn adapts one Server-Sent Events response stream to the
// events.Connection contract: send one JSON-serializable record, detect
// liveness.
type sseConn struct {
	id      string
	w       http.ResponseWriter
	flusher http.Flusher
	ctx     context.Context

	mu     sync.Mutex
	closed bool
}

func newSSEConn(w http.ResponseWriter, flusher http.Flusher, ctx context.Context) *sseConn {
	return &sseConn{
		id:      "sse-" + types.NewID().String(),
		w:       w,
		flusher: flusher,
		ctx:     ctx,
	}
}

func (c *sseConn) ID() string { return c.id }

// Send writes one record as an SSE data frame and flushes it. Any write
// failure marks the connection for pruning.
func (c *sseConn) Send(rec events.EventRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("connection %s is closed", c.id)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if _, err := fmt.Fprintf(c.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	c.flusher.Flush()
	return nil
}

// Alive reports whether the client is still connected.
func (c *sseConn) Alive() bool {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return false
	}

	select {
	case <-c.ctx.Done():
		return false
	default:
		return true
	}
}

// Close marks the connection unusable. The underlying response stream is
// owned by net/http and ends when the handler returns.
func (c *sseConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

var _ events.Connection = (*sseConn)(nil)
