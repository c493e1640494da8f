package hub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAggregatorSample(t *testing.T) {
	a := newAggregator()
	for i := 0; i < 10; i++ {
		a.recordMessage()
	}
	a.recordError()
	a.recordLatency(20 * time.Millisecond)
	a.recordLatency(40 * time.Millisecond)

	time.Sleep(time.Millisecond)
	snap := a.sample(3, 7)
	assert.Equal(t, 3, snap.Connections)
	assert.Equal(t, 7, snap.Subscriptions)
	assert.Equal(t, int64(10), snap.EventsDispatched)
	assert.Equal(t, int64(1), snap.Errors)
	assert.Greater(t, snap.MessagesPerSecond, 0.0)
	assert.InDelta(t, float64(1)/float64(11), snap.ErrorRate, 0.0001)
	assert.InDelta(t, 30.0, snap.AvgLatencyMS, 0.0001)
	assert.False(t, snap.SampledAt.IsZero())
}

func TestAggregatorQuietWindowReportsZeroRate(t *testing.T) {
	a := newAggregator()
	a.recordMessage()
	time.Sleep(time.Millisecond)
	first := a.sample(1, 0)
	assert.Greater(t, first.MessagesPerSecond, 0.0)

	// No traffic since the last sample: the rate drops to zero even though
	// the cumulative counter is unchanged.
	second := a.sample(1, 0)
	assert.Zero(t, second.MessagesPerSecond)
	assert.Equal(t, int64(1), second.EventsDispatched)
}

func TestAggregatorErrorRateBounded(t *testing.T) {
	a := newAggregator()
	for i := 0; i < 5; i++ {
		a.recordError()
	}
	snap := a.sample(0, 0)
	assert.InDelta(t, 1.0, snap.ErrorRate, 0.0001)
	assert.LessOrEqual(t, snap.ErrorRate, 1.0)
}

func TestAggregatorReset(t *testing.T) {
	a := newAggregator()
	for i := 0; i < 4; i++ {
		a.recordMessage()
	}
	a.recordError()
	a.recordLatency(time.Millisecond)
	a.sample(0, 0)

	a.reset()
	snap := a.sample(0, 0)
	assert.Zero(t, snap.EventsDispatched)
	assert.Zero(t, snap.Errors)
	assert.Zero(t, snap.ErrorRate)
	assert.Zero(t, snap.AvgLatencyMS)
	// The delta baseline resets with the counters, so the rate cannot go
	// negative after a reset.
	assert.GreaterOrEqual(t, snap.MessagesPerSecond, 0.0)
}

func TestAggregatorIgnoresNegativeLatency(t *testing.T) {
	a := newAggregator()
	a.recordLatency(-time.Second)
	snap := a.sample(0, 0)
	assert.Zero(t, snap.AvgLatencyMS)
}

func TestLastReturnsMostRecentSnapshot(t *testing.T) {
	a := newAggregator()
	assert.Zero(t, a.last().Connections)

	a.sample(5, 2)
	got := a.last()
	assert.Equal(t, 5, got.Connections)
	assert.Equal(t, 2, got.Subscriptions)
}
