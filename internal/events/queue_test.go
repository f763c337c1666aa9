package events

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeRecord(n int) EventRecord {
	return NewRecord(EventMissionProgress, "test", SeverityInfo, fmt.Sprintf("E%d", n), nil)
}

func TestRecordQueueFIFO(t *testing.T) {
	q := newRecordQueue(10)

	for i := 1; i <= 3; i++ {
		q.push(makeRecord(i))
	}
	require.Equal(t, 3, q.len())

	for i := 1; i <= 3; i++ {
		rec, ok := q.pop()
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("E%d", i), rec.Message)
	}

	_, ok := q.pop()
	assert.False(t, ok)
}

func TestRecordQueueDropOldest(t *testing.T) {
	q := newRecordQueue(3)

	// Publish E1..E5 with no draining: the queue must end with exactly
	// E3, E4, E5.
	for i := 1; i <= 5; i++ {
		q.push(makeRecord(i))
	}

	require.Equal(t, 3, q.len())
	assert.Equal(t, uint64(2), q.dropped)

	snap := q.snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "E3", snap[0].Message)
	assert.Equal(t, "E4", snap[1].Message)
	assert.Equal(t, "E5", snap[2].Message)
}

func TestRecordQueueNeverExceedsCapacity(t *testing.T) {
	q := newRecordQueue(7)

	for i := 0; i < 100; i++ {
		q.push(makeRecord(i))
		assert.LessOrEqual(t, q.len(), 7)
	}
}

func TestRecordQueueWrapAround(t *testing.T) {
	q := newRecordQueue(2)

	q.push(makeRecord(1))
	q.push(makeRecord(2))

	rec, ok := q.pop()
	require.True(t, ok)
	assert.Equal(t, "E1", rec.Message)

	q.push(makeRecord(3))
	q.push(makeRecord(4)) // evicts E2

	snap := q.snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "E3", snap[0].Message)
	assert.Equal(t, "E4", snap[1].Message)
}
