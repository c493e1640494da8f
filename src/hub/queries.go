package hub

import (
	"github.com/trendlab/pulse/src/types"
)

// RegisterHandler binds a handler to an inbound message type.
func (h *Hub) RegisterHandler(msgType string, handler types.MessageHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[msgType] = handler
}

// ConnectionIDs returns the ids of all live connections.
func (h *Hub) ConnectionIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.conns))
	for id := range h.conns {
		ids = append(ids, id)
	}
	return ids
}

// Info returns a snapshot of one connection, or nil if it is unknown.
func (h *Hub) Info(id string) *types.ConnectionInfo {
	c, ok := h.lookup(id)
	if !ok {
		return nil
	}
	info := c.Info()
	return &info
}

// Topics returns every subscribed topic with its subscriber count.
func (h *Hub) Topics() map[string]int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	result := make(map[string]int)
	for _, c := range h.conns {
		for _, topic := range c.Info().Topics {
			result[topic]++
		}
	}
	return result
}

// ClientCount returns the number of live connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// SubscriptionCount returns the total number of topic subscriptions across
// all connections.
func (h *Hub) SubscriptionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, c := range h.conns {
		total += c.interestCount()
	}
	return total
}

// PendingEvents returns how many events are waiting for the next batch pass.
func (h *Hub) PendingEvents() int {
	return h.queue.len()
}

// Metrics returns the most recent sampled snapshot.
func (h *Hub) Metrics() types.MetricsSnapshot {
	return h.metrics.last()
}
