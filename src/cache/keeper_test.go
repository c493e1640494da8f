package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendlab/pulse/src/types"
)

func newTestKeeper(t *testing.T) (*EventKeeper, *Memory) {
	t.Helper()
	kv := NewMemory(64, time.Minute)
	return NewEventKeeper(kv, time.Minute), kv
}

func TestStoreEventWritesTimestampedKey(t *testing.T) {
	keeper, kv := newTestKeeper(t)
	ctx := context.Background()

	ts := time.Now().Truncate(time.Millisecond)
	ev := types.Event{
		Type:      types.EventArchetypeUpdate,
		Payload:   json.RawMessage(`{"name":"explorer"}`),
		Timestamp: ts,
		TopicID:   "arch-3",
	}
	require.NoError(t, keeper.StoreEvent(ctx, ev))

	key := fmt.Sprintf("event:archetype_update:%d", ts.UnixMilli())
	raw, err := kv.Get(ctx, key)
	require.NoError(t, err)

	var stored types.Event
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.Equal(t, ev.Type, stored.Type)
	assert.Equal(t, "arch-3", stored.TopicID)
	assert.JSONEq(t, `{"name":"explorer"}`, string(stored.Payload))
}

func TestLatestEventTracksMostRecent(t *testing.T) {
	keeper, _ := newTestKeeper(t)
	ctx := context.Background()

	first := types.Event{Type: types.EventTrendUpdate, Timestamp: time.Now().Add(-time.Second), TopicID: "old"}
	second := types.Event{Type: types.EventTrendUpdate, Timestamp: time.Now(), TopicID: "new"}
	require.NoError(t, keeper.StoreEvent(ctx, first))
	require.NoError(t, keeper.StoreEvent(ctx, second))

	got, err := keeper.LatestEvent(ctx, types.EventTrendUpdate)
	require.NoError(t, err)
	assert.Equal(t, "new", got.TopicID)
}

func TestLatestEventMissWhenEmpty(t *testing.T) {
	keeper, _ := newTestKeeper(t)

	_, err := keeper.LatestEvent(context.Background(), types.EventTrendUpdate)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestSnapshotReads(t *testing.T) {
	keeper, kv := newTestKeeper(t)
	ctx := context.Background()

	_, err := keeper.Snapshot(ctx, SnapshotTrending)
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, kv.Set(ctx, "snapshot:"+SnapshotTrending, []byte(`{"top":[]}`), 0))

	raw, err := keeper.Snapshot(ctx, SnapshotTrending)
	require.NoError(t, err)
	assert.JSONEq(t, `{"top":[]}`, string(raw))
}
