package events

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/elliotttmiller/sentinel/internal/types"
)

// Bus fans EventRecords out to every registered Connection.
//
// Architecture:
//   - one bounded FIFO queue with a drop-oldest overflow policy
//   - one long-lived broadcaster goroutine draining the queue
//   - a connection registry pruned on the first delivery failure
//
// Publish never blocks on consumer speed or count: a slow, absent, or dead
// observer cannot stall a publisher. Delivery is best-effort: a record
// evicted for capacity is delivered to nobody, and a pruned connection is
// never retried.
//
// Thread safety: all methods are safe for concurrent use. The queue and the
// registry are guarded by a single mutex; the broadcaster holds it only
// while dequeuing, never across a delivery call.
type Bus struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  *recordQueue
	replay *recordQueue // nil unless replay is enabled
	conns  map[string]*connState
	closed bool

	startOnce sync.Once
	done      chan struct{}

	logger *slog.Logger
}

// busOptions holds configuration for Bus.
type busOptions struct {
	queueCapacity int
	replayDepth   int
	logger        *slog.Logger
}

// BusOption is a functional option for configuring a Bus.
type BusOption func(*busOptions)

// WithQueueCapacity sets the bounded queue capacity. Default: 1000.
func WithQueueCapacity(n int) BusOption {
	return func(o *busOptions) {
		if n > 0 {
			o.queueCapacity = n
		}
	}
}

// WithReplayDepth enables replay of the last n broadcast records to each new
// subscriber. Replay is best-effort, like live delivery. Default: 0 (off).
func WithReplayDepth(n int) BusOption {
	return func(o *busOptions) {
		if n > 0 {
			o.replayDepth = n
		}
	}
}

// WithLogger sets the structured logger for bus operations.
func WithLogger(logger *slog.Logger) BusOption {
	return func(o *busOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewBus creates a Bus. Call Start to launch the broadcaster; records
// published before Start simply accumulate in the bounded queue.
func NewBus(opts ...BusOption) *Bus {
	options := busOptions{
		queueCapacity: 1000,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	b := &Bus{
		queue:  newRecordQueue(options.queueCapacity),
		conns:  make(map[string]*connState),
		done:   make(chan struct{}),
		logger: options.logger.With("component", "eventbus"),
	}
	if options.replayDepth > 0 {
		b.replay = newRecordQueue(options.replayDepth)
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Start launches the broadcaster goroutine. The broadcaster runs until
// Close is called or ctx is cancelled, whichever happens first. Start is
// idempotent; only the first call has any effect.
func (b *Bus) Start(ctx context.Context) {
	b.startOnce.Do(func() {
		if ctx != nil && ctx.Done() != nil {
			go func() {
				select {
				case <-ctx.Done():
					b.Close()
				case <-b.done:
				}
			}()
		}
		go b.broadcast()
	})
}

// Publish enqueues a record for broadcast. It is non-blocking: at capacity
// the single oldest queued record is evicted first. Returns an error only
// when the bus is closed.
func (b *Bus) Publish(rec EventRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return types.NewError(types.EVENTBUS_CLOSED, "event bus is closed")
	}

	b.queue.push(rec)
	b.cond.Signal()
	return nil
}

// Subscribe registers a connection for delivery. Registration is idempotent
// by connection ID. When replay is enabled, the last recorded broadcasts are
// sent to the new connection before it joins live delivery; a replay failure
// marks the connection dead and it is never registered.
//
// New subscribers receive no backlog beyond the optional replay.
func (b *Bus) Subscribe(conn Connection) {
	if conn == nil {
		return
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	if _, exists := b.conns[conn.ID()]; exists {
		b.mu.Unlock()
		return
	}
	var backlog []EventRecord
	if b.replay != nil {
		backlog = b.replay.snapshot()
	}
	b.mu.Unlock()

	// Replay delivery happens outside the lock so a slow new subscriber
	// cannot stall publishers. Records broadcast while the replay is in
	// flight are missed, consistent with the no-backlog contract.
	cs := newConnState(conn)
	for _, rec := range backlog {
		if err := conn.Send(rec); err != nil {
			b.logger.Warn("replay delivery failed, dropping connection",
				slog.String("connection_id", conn.ID()),
				slog.String("error", err.Error()))
			_ = conn.Close()
			return
		}
		cs.markDelivered()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		_ = conn.Close()
		return
	}
	if _, exists := b.conns[conn.ID()]; exists {
		return
	}
	b.conns[conn.ID()] = cs
	b.logger.Debug("connection subscribed", slog.String("connection_id", conn.ID()))
}

// Unsubscribe removes a connection from the registry. It is a no-op for a
// connection that is not subscribed. The transport is not closed; the caller
// retains ownership of connections it removes explicitly.
func (b *Bus) Unsubscribe(conn Connection) {
	if conn == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.conns[conn.ID()]; !exists {
		return
	}
	delete(b.conns, conn.ID())
	b.logger.Debug("connection unsubscribed", slog.String("connection_id", conn.ID()))
}

// Close shuts down the bus. The broadcaster drains any queued records, then
// every remaining connection is closed and the registry is cleared. After
// Close, Publish returns an error. Close is idempotent and safe to call
// whether or not Start was ever called.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		// A late caller still waits for the drain, so every Close
		// return means deliveries have finished.
		<-b.done
		return nil
	}
	b.closed = true
	b.cond.Broadcast()
	b.mu.Unlock()

	// If the broadcaster was started, wait for it to drain and exit.
	b.startOnce.Do(func() { close(b.done) })
	<-b.done

	b.mu.Lock()
	defer b.mu.Unlock()
	for id, cs := range b.conns {
		_ = cs.conn.Close()
		delete(b.conns, id)
	}
	return nil
}

// SubscriberCount returns the number of registered connections.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.conns)
}

// QueueDepth returns the number of records waiting for broadcast.
func (b *Bus) QueueDepth() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queue.len()
}

// DroppedRecords returns the total number of records evicted for capacity.
func (b *Bus) DroppedRecords() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queue.dropped
}

// Diagnostics returns an informational snapshot of every registered
// connection, ordered by connection ID.
func (b *Bus) Diagnostics() []ConnDiagnostics {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]ConnDiagnostics, 0, len(b.conns))
	for _, cs := range b.conns {
		out = append(out, cs.diagnostics())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConnectionID < out[j].ConnectionID })
	return out
}

// broadcast is the single delivery loop. It dequeues one record at a time
// and attempts delivery to every registered connection. A connection whose
// transport is dead or whose send fails is pruned immediately; the loop
// proceeds to the next connection regardless. Delivery failures never reach
// the publisher.
func (b *Bus) broadcast() {
	defer close(b.done)

	for {
		b.mu.Lock()
		for b.queue.len() == 0 && !b.closed {
			b.cond.Wait()
		}
		if b.queue.len() == 0 && b.closed {
			b.mu.Unlock()
			return
		}
		rec, _ := b.queue.pop()
		if b.replay != nil {
			b.replay.push(rec)
		}
		targets := make([]*connState, 0, len(b.conns))
		for _, cs := range b.conns {
			targets = append(targets, cs)
		}
		b.mu.Unlock()

		for _, cs := range targets {
			if !cs.conn.Alive() {
				b.prune(cs, "transport not live", nil)
				continue
			}
			if err := cs.conn.Send(rec); err != nil {
				b.prune(cs, "delivery failed", err)
				continue
			}
			cs.markDelivered()
		}
	}
}

// prune removes a dead connection from the registry and closes its
// transport. Pruned connections are never retried.
func (b *Bus) prune(cs *connState, reason string, cause error) {
	b.mu.Lock()
	_, exists := b.conns[cs.conn.ID()]
	delete(b.conns, cs.conn.ID())
	b.mu.Unlock()

	if !exists {
		return
	}
	_ = cs.conn.Close()

	attrs := []any{
		slog.String("connection_id", cs.conn.ID()),
		slog.String("reason", reason),
	}
	if cause != nil {
		attrs = append(attrs, slog.String("error", cause.Error()))
	}
	b.logger.Info("pruned connection", attrs...)
}
