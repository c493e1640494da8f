package types

import (
	"encoding/json"
	"time"
)

// EventType identifies the kind of fact an Event carries. The set is closed:
// producers submitting an unknown type are rejected at the ingress boundary.
type EventType string

const (
	EventArchetypeUpdate  EventType = "archetype_update"
	EventTrendUpdate      EventType = "trend_update"
	EventUserActivity     EventType = "user_activity"
	EventModerationAction EventType = "moderation_action"
	EventSystemMetric     EventType = "system_metric"
)

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	switch t {
	case EventArchetypeUpdate, EventTrendUpdate, EventUserActivity,
		EventModerationAction, EventSystemMetric:
		return true
	}
	return false
}

// Fixed topic vocabulary. Connections may also subscribe to arbitrary
// archetype ids; these names are the protocol-level wildcards and categories.
const (
	TopicTrends        = "trends"
	TopicAllArchetypes = "all_archetypes"
	TopicAllUpdates    = "all_updates"
	TopicUserActivity  = "user_activity"
	TopicModeration    = "moderation"
	TopicAdminUpdates  = "admin_updates"
	TopicSystemMetrics = "system_metrics"
)

// Event is an immutable fact to broadcast. The payload is opaque to the
// dispatch engine; it is matched, delivered and cached without inspection.
type Event struct {
	Type      EventType       `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	UserID    string          `json:"user_id,omitempty"`
	TopicID   string          `json:"topic_id,omitempty"`
}

// MetricsSnapshot is the point-in-time view recomputed every sampling period.
// Counters behind it reset on a longer period, so the rates reflect a rolling
// recent window rather than all-time averages.
type MetricsSnapshot struct {
	Connections       int       `json:"connections"`
	Subscriptions     int       `json:"subscriptions"`
	EventsDispatched  int64     `json:"events_dispatched"`
	Errors            int64     `json:"errors"`
	MessagesPerSecond float64   `json:"messages_per_second"`
	ErrorRate         float64   `json:"error_rate"`
	AvgLatencyMS      float64   `json:"avg_latency_ms"`
	SampledAt         time.Time `json:"sampled_at"`
}
