package hub

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trendlab/pulse/src/types"
)

func TestQueueDrainIsBoundedFIFO(t *testing.T) {
	q := newEventQueue()
	q.push(types.Event{Type: types.EventTrendUpdate, TopicID: "a"})
	q.push(types.Event{Type: types.EventTrendUpdate, TopicID: "b"})
	q.push(types.Event{Type: types.EventTrendUpdate, TopicID: "c"})
	assert.Equal(t, 3, q.len())

	batch := q.drain(2)
	assert.Len(t, batch, 2)
	assert.Equal(t, "a", batch[0].TopicID)
	assert.Equal(t, "b", batch[1].TopicID)
	assert.Equal(t, 1, q.len())

	batch = q.drain(2)
	assert.Len(t, batch, 1)
	assert.Equal(t, "c", batch[0].TopicID)

	assert.Nil(t, q.drain(2))
	assert.Zero(t, q.len())
}

func TestQueueDrainedBatchIsDetached(t *testing.T) {
	q := newEventQueue()
	q.push(types.Event{TopicID: "a"})
	q.push(types.Event{TopicID: "b"})

	batch := q.drain(1)
	q.push(types.Event{TopicID: "c"})

	// Mutating the drained slice must not affect what is still queued.
	batch[0].TopicID = "mutated"
	rest := q.drain(10)
	assert.Equal(t, "b", rest[0].TopicID)
	assert.Equal(t, "c", rest[1].TopicID)
}
