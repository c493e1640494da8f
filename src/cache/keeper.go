package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/trendlab/pulse/src/types"
)

// Snapshot names producers maintain for the initial payload sent to newly
// authenticated connections.
const (
	SnapshotTrending       = "trending"
	SnapshotRecentActivity = "recent_activity"
)

// EventKeeper stores dispatched events and serves catch-up reads on top of
// a Cache. Key layout:
//
//	event:<type>:<unix-ms>  one entry per dispatched event
//	event:<type>:latest     most recent event of the type
//	snapshot:<name>         producer-maintained catch-up payloads
type EventKeeper struct {
	kv  Cache
	ttl time.Duration
}

// NewEventKeeper wraps kv with the event key layout. Entries expire after
// ttl; a non-positive ttl falls back to one hour.
func NewEventKeeper(kv Cache, ttl time.Duration) *EventKeeper {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &EventKeeper{kv: kv, ttl: ttl}
}

// StoreEvent persists one dispatched event under its timestamped key and
// refreshes the latest pointer for its type.
func (k *EventKeeper) StoreEvent(ctx context.Context, ev types.Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	key := fmt.Sprintf("event:%s:%d", ev.Type, ev.Timestamp.UnixMilli())
	if err := k.kv.Set(ctx, key, raw, k.ttl); err != nil {
		return fmt.Errorf("store event: %w", err)
	}
	if err := k.kv.Set(ctx, "event:"+string(ev.Type)+":latest", raw, k.ttl); err != nil {
		return fmt.Errorf("store latest pointer: %w", err)
	}
	return nil
}

// LatestEvent returns the most recent stored event of the given type, or
// ErrCacheMiss when none has been stored within the TTL.
func (k *EventKeeper) LatestEvent(ctx context.Context, t types.EventType) (*types.Event, error) {
	raw, err := k.kv.Get(ctx, "event:"+string(t)+":latest")
	if err != nil {
		return nil, err
	}
	var ev types.Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return &ev, nil
}

// Snapshot returns a producer-maintained snapshot payload, or ErrCacheMiss
// when none has been written yet.
func (k *EventKeeper) Snapshot(ctx context.Context, name string) (json.RawMessage, error) {
	raw, err := k.kv.Get(ctx, "snapshot:"+name)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(raw), nil
}
