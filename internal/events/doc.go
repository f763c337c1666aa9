// Package events provides the observability backbone for mission execution:
// immutable EventRecords, a bounded drop-oldest queue, and a single
// broadcaster that fans records out to every subscribed Connection.
//
// Design contract:
//
//   - Publish is non-blocking. At capacity the oldest queued record is
//     evicted; the producer is never delayed by consumers.
//   - Delivery is best-effort. A record evicted for capacity reaches nobody;
//     a connection whose send fails is pruned immediately and never retried.
//   - A connection that never fails a send receives every record published
//     while it was subscribed, in publish order, with no duplication.
//
// Mission execution must never stall because an observer is slow, absent,
// or crashed; observers cannot apply backpressure to business logic.
package events
