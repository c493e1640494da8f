package hub

import (
	"sync"
	"time"

	"github.com/trendlab/pulse/src/types"
)

// Client wraps one WebSocket connection and its registry state: the
// authenticated user, the interest set, and the last-activity timestamp.
// Registry membership is guarded by the hub's lock; the fields here are
// guarded by the client's own lock so the dispatcher can read interest sets
// without holding the registry lock.
type Client struct {
	ID          string
	conn        types.Conn
	hub         *Hub
	Send        chan types.ServerMessage
	connectedAt time.Time

	mu           sync.RWMutex
	userID       string
	interests    map[string]struct{}
	lastActivity time.Time

	done   chan struct{}
	closed bool
}

// NewClient creates a client wrapper around an accepted connection.
func NewClient(id string, conn types.Conn, h *Hub, sendBuffer int) *Client {
	now := time.Now()
	return &Client{
		ID:           id,
		conn:         conn,
		hub:          h,
		Send:         make(chan types.ServerMessage, sendBuffer),
		connectedAt:  now,
		interests:    make(map[string]struct{}),
		lastActivity: now,
		done:         make(chan struct{}),
	}
}

// UserID returns the authenticated user id, empty until authentication.
func (c *Client) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

func (c *Client) setUser(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = userID
	c.lastActivity = time.Now()
}

func (c *Client) addInterests(topics []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range topics {
		c.interests[t] = struct{}{}
	}
	c.lastActivity = time.Now()
}

func (c *Client) removeInterests(topics []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range topics {
		delete(c.interests, t)
	}
	c.lastActivity = time.Now()
}

func (c *Client) interestCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.interests)
}

func (c *Client) touch() {
	c.mu.Lock()
	c.lastActivity = time.Now()
	c.mu.Unlock()
}

func (c *Client) lastSeen() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastActivity
}

// matches reports whether this connection should receive the event,
// evaluated against its current user id and interest set.
func (c *Client) matches(ev types.Event) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return relevant(ev, c.userID, c.interests)
}

// Info returns metadata about this connection.
func (c *Client) Info() types.ConnectionInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	topics := make([]string, 0, len(c.interests))
	for t := range c.interests {
		topics = append(topics, t)
	}
	return types.ConnectionInfo{
		ID:           c.ID,
		UserID:       c.userID,
		ConnectedAt:  c.connectedAt,
		LastActivity: c.lastActivity,
		Topics:       topics,
	}
}

// trySend queues a frame without blocking. A full buffer means the consumer
// is too slow; the frame is dropped and the caller counts the failure.
func (c *Client) trySend(msg types.ServerMessage) bool {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return false
	}
	defer c.mu.RUnlock()

	select {
	case c.Send <- msg:
		return true
	default:
		return false
	}
}

// ReadPump reads inbound frames and routes them to the hub until the
// connection drops.
func (c *Client) ReadPump() {
	defer c.hub.Deregister(c.ID)

	for {
		var msg types.ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		c.hub.handleInbound(c.ID, msg)
	}
}

// WritePump writes queued frames to the connection. Call in a goroutine.
func (c *Client) WritePump() {
	defer c.conn.Close()

	for {
		select {
		case msg, ok := <-c.Send:
			if !ok {
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// Close tears the client down: stops the pumps, closes the send queue, and
// closes the transport. Safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.done)
	close(c.Send)
	c.mu.Unlock()

	_ = c.conn.Close()
}
