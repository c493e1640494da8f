package hub

import (
	"context"
	"time"

	"github.com/trendlab/pulse/src/types"
)

// cacheStoreTimeout bounds the background cache write for one event.
const cacheStoreTimeout = 5 * time.Second

// Submit is the producer entry point. The event is queued for the next batch
// pass, forwarded to other instances, delivered immediately to everyone it
// matches right now, and written to the event cache in the background.
//
// The immediate pass and the queued pass overlap: a connection that
// subscribes between the two may receive the event from both. Consumers
// treat updates as at-least-once.
func (h *Hub) Submit(ev types.Event) error {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		return ErrHubClosed
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	h.queue.push(ev)
	h.publishToBridge(ev)
	h.dispatchOnce(ev, true)
	return nil
}

// SubmitLocal delivers an event that originated on another instance. It runs
// the same immediate-plus-queued passes as Submit but never re-publishes to
// the bridge and never re-caches, so events cannot loop between instances.
func (h *Hub) SubmitLocal(ev types.Event) error {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		return ErrHubClosed
	}

	h.queue.push(ev)
	h.dispatchOnce(ev, false)
	return nil
}

// dispatchOnce runs one delivery pass against the current subscription
// state. Individual delivery failures are counted and skipped; they never
// stop the pass or reach the caller.
func (h *Hub) dispatchOnce(ev types.Event, store bool) {
	for _, c := range h.matchTargets(ev) {
		h.deliver(c, ev)
	}
	if store {
		h.storeEvent(ev)
	}
}

func (h *Hub) deliver(c *Client, ev types.Event) {
	msg := types.ServerMessage{Type: types.MsgUpdate, Event: &ev}
	if c.trySend(msg) {
		h.metrics.recordMessage()
		return
	}
	h.metrics.recordError()
	h.logger.Warn().
		Str("conn_id", c.ID).
		Str("event_type", string(ev.Type)).
		Msg("delivery dropped, send buffer full or connection closed")
}

// dispatchPending drains up to one batch from the queue and re-matches each
// event against whoever is subscribed now. Whatever does not fit in the
// batch stays queued for the next tick.
func (h *Hub) dispatchPending() int {
	batch := h.queue.drain(h.cfg.DispatchBatchSize)
	for _, ev := range batch {
		h.dispatchOnce(ev, false)
	}
	return len(batch)
}

// storeEvent writes the event to the cache off the dispatch path. Cache
// failures are logged and swallowed; delivery never waits on storage.
func (h *Hub) storeEvent(ev types.Event) {
	h.mu.RLock()
	cache := h.cache
	h.mu.RUnlock()
	if cache == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), cacheStoreTimeout)
		defer cancel()
		if err := cache.StoreEvent(ctx, ev); err != nil {
			h.logger.Warn().Err(err).Str("event_type", string(ev.Type)).Msg("event cache write failed")
		}
	}()
}

// publishToBridge forwards an event to the bridge if one is attached.
func (h *Hub) publishToBridge(ev types.Event) {
	h.mu.RLock()
	b := h.bridge
	h.mu.RUnlock()

	if b == nil || !b.Available() {
		return
	}
	if err := b.Publish(ev); err != nil {
		h.logger.Error().Err(err).Msg("bridge publish failed")
	}
}
