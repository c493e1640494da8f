package hub

import (
	"sync"
	"time"

	"github.com/trendlab/pulse/src/types"
)

// aggregator owns the delivery counters behind the metrics snapshot. The
// sample timer recomputes the snapshot without touching the counters; the
// reset timer zeroes them so sampled rates reflect a rolling recent window,
// not all-time averages.
type aggregator struct {
	mu           sync.Mutex
	messages     int64
	errors       int64
	latencySum   time.Duration
	latencyCount int64

	lastSampleMessages int64
	lastSampleAt       time.Time
	snapshot           types.MetricsSnapshot
}

func newAggregator() *aggregator {
	now := time.Now()
	return &aggregator{
		lastSampleAt: now,
		snapshot:     types.MetricsSnapshot{SampledAt: now},
	}
}

func (a *aggregator) recordMessage() {
	a.mu.Lock()
	a.messages++
	a.mu.Unlock()
}

func (a *aggregator) recordError() {
	a.mu.Lock()
	a.errors++
	a.mu.Unlock()
}

func (a *aggregator) recordLatency(d time.Duration) {
	if d < 0 {
		return
	}
	a.mu.Lock()
	a.latencySum += d
	a.latencyCount++
	a.mu.Unlock()
}

// sample recomputes the snapshot from the running counters. Messages per
// second is the delta since the previous sample, so a quiet window reports 0
// rather than a stale value.
func (a *aggregator) sample(connections, subscriptions int) types.MetricsSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(a.lastSampleAt).Seconds()

	var mps float64
	if delta := a.messages - a.lastSampleMessages; delta > 0 && elapsed > 0 {
		mps = float64(delta) / elapsed
	}

	var errorRate float64
	if attempts := a.messages + a.errors; attempts > 0 {
		errorRate = float64(a.errors) / float64(attempts)
	}

	var avgLatency float64
	if a.latencyCount > 0 {
		avgLatency = float64(a.latencySum) / float64(a.latencyCount) / float64(time.Millisecond)
	}

	a.lastSampleMessages = a.messages
	a.lastSampleAt = now
	a.snapshot = types.MetricsSnapshot{
		Connections:       connections,
		Subscriptions:     subscriptions,
		EventsDispatched:  a.messages,
		Errors:            a.errors,
		MessagesPerSecond: mps,
		ErrorRate:         errorRate,
		AvgLatencyMS:      avgLatency,
		SampledAt:         now,
	}
	return a.snapshot
}

// reset zeroes the counters. The sample baseline is zeroed with them so the
// next delta never goes negative.
func (a *aggregator) reset() {
	a.mu.Lock()
	a.messages = 0
	a.errors = 0
	a.latencySum = 0
	a.latencyCount = 0
	a.lastSampleMessages = 0
	a.mu.Unlock()
}

// last returns the most recently sampled snapshot.
func (a *aggregator) last() types.MetricsSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshot
}
