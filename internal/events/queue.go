package events

// recordQueue is a bounded FIFO of EventRecords with a drop-oldest overflow
// policy. It is not safe for concurrent use on its own; the bus serializes
// access under its mutex.
//
// Implemented as a ring over a fixed backing slice so that steady-state
// publishing allocates nothing.
type recordQueue struct {
	buf      []EventRecord
	head     int // index of the oldest record
	length   int
	capacity int
	dropped  uint64 // total records evicted for capacity
}

func newRecordQueue(capacity int) *recordQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &recordQueue{
		buf:      make([]EventRecord, capacity),
		capacity: capacity,
	}
}

// push appends a record, evicting the single oldest queued record first if
// the queue is full. It never fails and never blocks.
func (q *recordQueue) push(rec EventRecord) {
	if q.length == q.capacity {
		// Drop-oldest: advance head over the stalest record.
		q.head = (q.head + 1) % q.capacity
		q.length--
		q.dropped++
	}
	q.buf[(q.head+q.length)%q.capacity] = rec
	q.length++
}

// pop removes and returns the oldest record. ok is false when empty.
func (q *recordQueue) pop() (rec EventRecord, ok bool) {
	if q.length == 0 {
		return EventRecord{}, false
	}
	rec = q.buf[q.head]
	q.buf[q.head] = EventRecord{}
	q.head = (q.head + 1) % q.capacity
	q.length--
	return rec, true
}

// len returns the number of queued records.
func (q *recordQueue) len() int {
	return q.length
}

// snapshot returns the queued records oldest-first without consuming them.
func (q *recordQueue) snapshot() []EventRecord {
	out := make([]EventRecord, 0, q.length)
	for i := 0; i < q.length; i++ {
		out = append(out, q.buf[(q.head+i)%q.capacity])
	}
	return out
}
