package hub

import (
	"sync"

	"github.com/trendlab/pulse/src/types"
)

// eventQueue is the pending-event buffer between ingress and the batch
// dispatcher. FIFO within a drain slice; drains are bounded so one tick
// cannot monopolize the dispatch loop.
type eventQueue struct {
	mu    sync.Mutex
	items []types.Event
}

func newEventQueue() *eventQueue {
	return &eventQueue{}
}

func (q *eventQueue) push(ev types.Event) {
	q.mu.Lock()
	q.items = append(q.items, ev)
	q.mu.Unlock()
}

// drain removes and returns up to max events from the front of the queue.
func (q *eventQueue) drain(max int) []types.Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil
	}
	n := len(q.items)
	if n > max {
		n = max
	}
	batch := make([]types.Event, n)
	copy(batch, q.items[:n])
	q.items = q.items[n:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return batch
}

func (q *eventQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
