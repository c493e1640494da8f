package hub

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/trendlab/pulse/src/types"
)

// EventBridge fans submitted events out to other server instances.
// Defined here to avoid circular imports with the bridge package.
type EventBridge interface {
	Publish(ev types.Event) error
	Available() bool
}

// EventCache persists dispatched events so clients that connect later can
// catch up. Defined here to avoid circular imports with the cache package.
type EventCache interface {
	StoreEvent(ctx context.Context, ev types.Event) error
}

// Config tunes the hub's periodic work. Zero values fall back to the
// defaults below.
type Config struct {
	// DispatchInterval is how often the queued-event batch is drained.
	DispatchInterval time.Duration
	// DispatchBatchSize caps how many queued events one drain processes.
	DispatchBatchSize int
	// SendBuffer is the per-connection outbound channel capacity.
	SendBuffer int
	// SampleInterval is how often a metrics snapshot is taken.
	SampleInterval time.Duration
	// ResetInterval is how often the metrics counters start over.
	ResetInterval time.Duration
	// IdleTimeout is how long a connection may stay silent before the
	// janitor evicts it.
	IdleTimeout time.Duration
	// EvictionInterval is how often the janitor scans for idle connections.
	EvictionInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.DispatchInterval <= 0 {
		c.DispatchInterval = 100 * time.Millisecond
	}
	if c.DispatchBatchSize <= 0 {
		c.DispatchBatchSize = 100
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 256
	}
	if c.SampleInterval <= 0 {
		c.SampleInterval = time.Second
	}
	if c.ResetInterval <= 0 {
		c.ResetInterval = time.Minute
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 5 * time.Minute
	}
	if c.EvictionInterval <= 0 {
		c.EvictionInterval = time.Minute
	}
	return c
}

// Hub is the connection registry and broadcast engine. It owns every live
// client, routes inbound messages to registered handlers, and runs the
// periodic dispatch, metrics, and eviction loops.
type Hub struct {
	cfg Config

	mu       sync.RWMutex
	conns    map[string]*Client
	handlers map[string]types.MessageHandler
	bridge   EventBridge
	cache    EventCache
	closed   bool

	queue   *eventQueue
	metrics *aggregator

	logger    zerolog.Logger
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a hub with no bridge and no cache attached. Run must be
// started separately.
func New(cfg Config, logger zerolog.Logger) *Hub {
	return &Hub{
		cfg:      cfg.withDefaults(),
		conns:    make(map[string]*Client),
		handlers: make(map[string]types.MessageHandler),
		queue:    newEventQueue(),
		metrics:  newAggregator(),
		logger:   logger.With().Str("component", "hub").Logger(),
		done:     make(chan struct{}),
	}
}

// SetBridge attaches a cross-instance event bridge. When set, submitted
// events are also forwarded to other instances.
func (h *Hub) SetBridge(b EventBridge) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.bridge = b
}

// SetCache attaches the event cache used for catch-up reads.
func (h *Hub) SetCache(c EventCache) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cache = c
}

// Register admits a new connection under the given id. Ids must be unique;
// a second registration with a live id is rejected and the original
// connection is left untouched.
func (h *Hub) Register(id string, conn types.Conn) (*Client, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHubClosed
	}
	if _, exists := h.conns[id]; exists {
		h.mu.Unlock()
		h.logger.Warn().Str("conn_id", id).Msg("duplicate connection id rejected")
		return nil, ErrDuplicateConnection
	}
	c := NewClient(id, conn, h, h.cfg.SendBuffer)
	h.conns[id] = c
	total := len(h.conns)
	h.mu.Unlock()

	h.logger.Info().Str("conn_id", id).Int("total", total).Msg("connection registered")
	return c, nil
}

// Authenticate binds a user identity to a registered connection.
func (h *Hub) Authenticate(id, userID string) error {
	c, ok := h.lookup(id)
	if !ok {
		h.logger.Warn().Str("conn_id", id).Msg("authenticate for unknown connection")
		return ErrUnknownConnection
	}
	c.setUser(userID)
	h.logger.Info().Str("conn_id", id).Str("user_id", userID).Msg("connection authenticated")
	return nil
}

// Subscribe adds topics to a connection's interest set. The connection must
// have authenticated first.
func (h *Hub) Subscribe(id string, topics ...string) error {
	c, ok := h.lookup(id)
	if !ok {
		return ErrUnknownConnection
	}
	if c.UserID() == "" {
		return ErrNotAuthenticated
	}
	c.addInterests(topics)
	h.logger.Debug().Str("conn_id", id).Strs("topics", topics).Msg("topics subscribed")
	return nil
}

// Unsubscribe removes topics from a connection's interest set. Topics the
// connection never held are ignored.
func (h *Hub) Unsubscribe(id string, topics ...string) error {
	c, ok := h.lookup(id)
	if !ok {
		return ErrUnknownConnection
	}
	c.removeInterests(topics)
	h.logger.Debug().Str("conn_id", id).Strs("topics", topics).Msg("topics unsubscribed")
	return nil
}

// Touch refreshes a connection's activity clock. Unknown ids are a no-op so
// late traffic from closed connections stays harmless.
func (h *Hub) Touch(id string) {
	if c, ok := h.lookup(id); ok {
		c.touch()
	}
}

// Deregister removes a connection and closes its transport. Calling it for
// an id that is already gone is a no-op.
func (h *Hub) Deregister(id string) {
	h.mu.Lock()
	c, ok := h.conns[id]
	if ok {
		delete(h.conns, id)
	}
	total := len(h.conns)
	h.mu.Unlock()

	if !ok {
		return
	}
	c.Close()
	h.logger.Info().Str("conn_id", id).Int("total", total).Msg("connection deregistered")
}

func (h *Hub) lookup(id string) (*Client, bool) {
	h.mu.RLock()
	c, ok := h.conns[id]
	h.mu.RUnlock()
	return c, ok
}

// Run drives the periodic work: batch dispatch, metrics sampling and reset,
// and idle-connection eviction. Call in a goroutine. It returns when ctx is
// cancelled or the hub shuts down.
func (h *Hub) Run(ctx context.Context) {
	dispatch := time.NewTicker(h.cfg.DispatchInterval)
	defer dispatch.Stop()
	sample := time.NewTicker(h.cfg.SampleInterval)
	defer sample.Stop()
	reset := time.NewTicker(h.cfg.ResetInterval)
	defer reset.Stop()
	evict := time.NewTicker(h.cfg.EvictionInterval)
	defer evict.Stop()

	h.logger.Info().
		Dur("dispatch_interval", h.cfg.DispatchInterval).
		Dur("idle_timeout", h.cfg.IdleTimeout).
		Msg("hub loop started")

	for {
		select {
		case <-dispatch.C:
			h.dispatchPending()
		case <-sample.C:
			h.sampleMetrics()
		case <-reset.C:
			h.metrics.reset()
		case <-evict.C:
			h.evictIdle()
		case <-ctx.Done():
			return
		case <-h.done:
			return
		}
	}
}

func (h *Hub) sampleMetrics() types.MetricsSnapshot {
	return h.metrics.sample(h.ClientCount(), h.SubscriptionCount())
}

// evictIdle drops every connection whose last activity is older than the
// idle timeout and reports how many were removed.
func (h *Hub) evictIdle() int {
	cutoff := time.Now().Add(-h.cfg.IdleTimeout)

	h.mu.RLock()
	var stale []string
	for id, c := range h.conns {
		if c.lastSeen().Before(cutoff) {
			stale = append(stale, id)
		}
	}
	h.mu.RUnlock()

	for _, id := range stale {
		h.logger.Info().Str("conn_id", id).Msg("evicting idle connection")
		h.Deregister(id)
	}
	return len(stale)
}

// Shutdown stops event intake, drains the queue for a final delivery pass,
// notifies every connection, and closes them all. Safe to call more than
// once; only the first call does the work.
func (h *Hub) Shutdown() {
	h.closeOnce.Do(func() {
		h.mu.Lock()
		h.closed = true
		h.mu.Unlock()

		for h.queue.len() > 0 {
			h.dispatchPending()
		}

		notice := types.ServerMessage{
			Type:    types.MsgServerShutdown,
			Message: "server is shutting down",
		}
		h.mu.RLock()
		clients := make([]*Client, 0, len(h.conns))
		for _, c := range h.conns {
			clients = append(clients, c)
		}
		h.mu.RUnlock()

		for _, c := range clients {
			c.trySend(notice)
		}
		for _, c := range clients {
			h.Deregister(c.ID)
		}

		close(h.done)
		h.logger.Info().Int("connections", len(clients)).Msg("hub shut down")
	})
}

// handleInbound refreshes the sender's activity clock and routes the message
// to its registered handler. Handler errors are logged, never propagated, so
// one bad message cannot take down a read pump.
func (h *Hub) handleInbound(connID string, msg types.ClientMessage) {
	h.Touch(connID)

	h.mu.RLock()
	handler, ok := h.handlers[msg.Type]
	h.mu.RUnlock()

	if !ok {
		h.logger.Debug().Str("conn_id", connID).Str("type", msg.Type).Msg("no handler for message type")
		return
	}
	if err := handler(connID, msg); err != nil {
		h.logger.Error().Err(err).Str("conn_id", connID).Str("type", msg.Type).Msg("message handler failed")
	}
}

// SendToClient queues a message for one connection. It reports false when
// the connection is unknown or its buffer is full.
func (h *Hub) SendToClient(id string, msg types.ServerMessage) bool {
	c, ok := h.lookup(id)
	if !ok {
		return false
	}
	return c.trySend(msg)
}

// RecordLatency feeds one round-trip measurement into the metrics window.
func (h *Hub) RecordLatency(d time.Duration) {
	h.metrics.recordLatency(d)
}
