package bridge

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendlab/pulse/src/types"
)

// mockTarget records events forwarded from the bridge.
type mockTarget struct {
	received []types.Event
}

func (m *mockTarget) SubmitLocal(ev types.Event) error {
	m.received = append(m.received, ev)
	return nil
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestEnvelopeRoundTrip(t *testing.T) {
	ev := types.Event{
		Type:      types.EventTrendUpdate,
		Payload:   json.RawMessage(`{"tag":"velocity","score":42}`),
		Timestamp: time.Now().Truncate(time.Millisecond),
		TopicID:   "arch-9",
	}

	env := envelope{
		InstanceID: "node-1",
		Event:      ev,
	}

	data, err := json.Marshal(env)
	require.NoError(t, err)

	var out envelope
	require.NoError(t, json.Unmarshal(data, &out))

	assert.Equal(t, "node-1", out.InstanceID)
	assert.Equal(t, types.EventTrendUpdate, out.Event.Type)
	assert.Equal(t, "arch-9", out.Event.TopicID)
	assert.JSONEq(t, `{"tag":"velocity","score":42}`, string(out.Event.Payload))
	assert.True(t, ev.Timestamp.Equal(out.Event.Timestamp))
}

func TestRedisConfigDefaults(t *testing.T) {
	cfg := RedisConfig{}.withDefaults()
	assert.Equal(t, "localhost:6379", cfg.Addr)
	assert.Empty(t, cfg.Password)
	assert.Equal(t, 0, cfg.DB)
	assert.Equal(t, "pulse:", cfg.Prefix)
}

func TestRedisConfigKeepsExplicitValues(t *testing.T) {
	cfg := RedisConfig{
		Addr:     "redis.example.com:6380",
		Password: "secret",
		DB:       3,
		Prefix:   "test:",
	}.withDefaults()

	assert.Equal(t, "redis.example.com:6380", cfg.Addr)
	assert.Equal(t, "secret", cfg.Password)
	assert.Equal(t, 3, cfg.DB)
	assert.Equal(t, "test:", cfg.Prefix)
}

func TestBridgeAvailableFalseBeforeStart(t *testing.T) {
	rb := NewRedisBridge(RedisConfig{}, &mockTarget{}, testLogger())
	assert.False(t, rb.Available())
}

func TestBridgeInstanceIDUnique(t *testing.T) {
	target := &mockTarget{}
	b1 := NewRedisBridge(RedisConfig{}, target, testLogger())
	b2 := NewRedisBridge(RedisConfig{}, target, testLogger())
	assert.NotEqual(t, b1.instanceID, b2.instanceID)
}

func TestHandleRelayedSkipsOwnEvents(t *testing.T) {
	target := &mockTarget{}
	rb := NewRedisBridge(RedisConfig{}, target, testLogger())

	own, err := json.Marshal(envelope{
		InstanceID: rb.instanceID,
		Event:      types.Event{Type: types.EventTrendUpdate},
	})
	require.NoError(t, err)

	rb.handleRelayed(&redis.Message{Payload: string(own)})
	assert.Empty(t, target.received)
}

func TestHandleRelayedForwardsForeignEvents(t *testing.T) {
	target := &mockTarget{}
	rb := NewRedisBridge(RedisConfig{}, target, testLogger())

	foreign, err := json.Marshal(envelope{
		InstanceID: "other-node",
		Event:      types.Event{Type: types.EventModerationAction, UserID: "u-7"},
	})
	require.NoError(t, err)

	rb.handleRelayed(&redis.Message{Payload: string(foreign)})
	require.Len(t, target.received, 1)
	assert.Equal(t, types.EventModerationAction, target.received[0].Type)
	assert.Equal(t, "u-7", target.received[0].UserID)
}

func TestHandleRelayedIgnoresMalformedPayload(t *testing.T) {
	target := &mockTarget{}
	rb := NewRedisBridge(RedisConfig{}, target, testLogger())

	rb.handleRelayed(&redis.Message{Payload: "{not json"})
	assert.Empty(t, target.received)
}
