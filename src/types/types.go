package types

import (
	"encoding/json"
	"time"
)

// Inbound message types (client to server).
const (
	MsgAuthenticate = "authenticate"
	MsgSubscribe    = "subscribe"
	MsgUnsubscribe  = "unsubscribe"
	MsgPing         = "ping"
)

// Outbound message types (server to client).
const (
	MsgAuthenticated  = "authenticated"
	MsgSubscribed     = "subscribed"
	MsgUnsubscribed   = "unsubscribed"
	MsgPong           = "pong"
	MsgUpdate         = "update"
	MsgInitialData    = "initial_data"
	MsgServerShutdown = "server_shutdown"
)

// ClientMessage is an inbound WebSocket frame.
type ClientMessage struct {
	Type      string   `json:"type"`
	UserID    string   `json:"user_id,omitempty"`
	Token     string   `json:"token,omitempty"`
	Topics    []string `json:"topics,omitempty"`
	Timestamp int64    `json:"timestamp,omitempty"` // unix milliseconds, echoed in pong
}

// ServerMessage is an outbound WebSocket frame. Only the fields relevant to
// the message type are set.
type ServerMessage struct {
	Type      string          `json:"type"`
	Success   *bool           `json:"success,omitempty"`
	Topics    []string        `json:"topics,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
	LatencyMS int64           `json:"latency_ms,omitempty"`
	Event     *Event          `json:"event,omitempty"`
	DataType  string          `json:"data_type,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Message   string          `json:"message,omitempty"`
}

// MessageHandler handles an inbound message of one type.
type MessageHandler func(connID string, msg ClientMessage) error

// ConnectionInfo holds metadata about a registered connection.
type ConnectionInfo struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id,omitempty"`
	ConnectedAt  time.Time `json:"connected_at"`
	LastActivity time.Time `json:"last_activity"`
	Topics       []string  `json:"topics"`
}

// Conn abstracts a WebSocket connection for testability.
type Conn interface {
	WriteJSON(v any) error
	ReadJSON(v any) error
	Close() error
}
