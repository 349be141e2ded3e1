// Package metrics provides fetch and cache metrics collection and publishing.
package metrics

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmcrae/fetchgate/internal/types"
)

const defaultLatencyBufferSize = 10000

// Tracker accumulates operation counters and a rolling latency window.
// All methods are safe for concurrent use.
type Tracker struct {
	hotHits          atomic.Int64
	hotMisses        atomic.Int64
	persistentHits   atomic.Int64
	persistentMisses atomic.Int64

	setCount          atomic.Int64
	totalBytesWritten atomic.Int64

	staleServed      atomic.Int64
	upstreamCalls    atomic.Int64
	upstreamFailures atomic.Int64
	retries          atomic.Int64
	noData           atomic.Int64

	breakerTransitions atomic.Int64
	breakerOpen        atomic.Bool

	latencyMu     sync.RWMutex
	latencyBuffer []time.Duration
	latencyIndex  int
	latencyCount  int
}

// NewTracker creates a tracker with the default latency window.
func NewTracker() *Tracker {
	return &Tracker{
		latencyBuffer: make([]time.Duration, defaultLatencyBufferSize),
	}
}

// RecordHit records a cache hit on the named tier.
func (t *Tracker) RecordHit(tier string, operation string, latency time.Duration) {
	switch tier {
	case "hot":
		t.hotHits.Add(1)
	case "persistent":
		t.persistentHits.Add(1)
	}
	t.recordLatency(latency)
}

// RecordMiss records a cache miss on the named tier.
func (t *Tracker) RecordMiss(tier string, operation string, latency time.Duration) {
	switch tier {
	case "hot":
		t.hotMisses.Add(1)
	case "persistent":
		t.persistentMisses.Add(1)
	}
	t.recordLatency(latency)
}

// RecordSet records a cache write.
func (t *Tracker) RecordSet(tier string, operation string, size int, latency time.Duration) {
	t.setCount.Add(1)
	t.totalBytesWritten.Add(int64(size))
	t.recordLatency(latency)
}

// RecordStaleServed records a degraded-mode read served from stale data.
func (t *Tracker) RecordStaleServed(operation string, age time.Duration) {
	t.staleServed.Add(1)
}

// RecordUpstreamCall records one upstream attempt and its outcome.
func (t *Tracker) RecordUpstreamCall(operation string, latency time.Duration, err error) {
	t.upstreamCalls.Add(1)
	if err != nil {
		t.upstreamFailures.Add(1)
	}
	t.recordLatency(latency)
}

// RecordRetry records a scheduled retry.
func (t *Tracker) RecordRetry(operation string, class string) {
	t.retries.Add(1)
}

// RecordNoData records an empty upstream result.
func (t *Tracker) RecordNoData(operation string) {
	t.noData.Add(1)
}

// RecordBreakerStateChange records a circuit breaker transition.
func (t *Tracker) RecordBreakerStateChange(open bool) {
	t.breakerTransitions.Add(1)
	t.breakerOpen.Store(open)
}

// recordLatency adds a measurement to the circular buffer. O(1), no allocation.
func (t *Tracker) recordLatency(latency time.Duration) {
	t.latencyMu.Lock()
	t.latencyBuffer[t.latencyIndex] = latency
	t.latencyIndex = (t.latencyIndex + 1) % len(t.latencyBuffer)
	if t.latencyCount < len(t.latencyBuffer) {
		t.latencyCount++
	}
	t.latencyMu.Unlock()
}

// Snapshot returns the current counters plus latency percentiles over the
// rolling window.
func (t *Tracker) Snapshot() Snapshot {
	t.latencyMu.RLock()
	count := t.latencyCount
	latencyCopy := make([]time.Duration, count)
	if count > 0 {
		if count < len(t.latencyBuffer) {
			copy(latencyCopy, t.latencyBuffer[:count])
		} else {
			// Buffer is full; oldest data starts at latencyIndex.
			firstPart := len(t.latencyBuffer) - t.latencyIndex
			copy(latencyCopy[:firstPart], t.latencyBuffer[t.latencyIndex:])
			copy(latencyCopy[firstPart:], t.latencyBuffer[:t.latencyIndex])
		}
	}
	t.latencyMu.RUnlock()

	snapshot := Snapshot{
		Timestamp:          time.Now(),
		HotHits:            t.hotHits.Load(),
		HotMisses:          t.hotMisses.Load(),
		PersistentHits:     t.persistentHits.Load(),
		PersistentMisses:   t.persistentMisses.Load(),
		SetCount:           t.setCount.Load(),
		BytesWritten:       t.totalBytesWritten.Load(),
		StaleServed:        t.staleServed.Load(),
		UpstreamCalls:      t.upstreamCalls.Load(),
		UpstreamFailures:   t.upstreamFailures.Load(),
		Retries:            t.retries.Load(),
		NoData:             t.noData.Load(),
		BreakerTransitions: t.breakerTransitions.Load(),
		BreakerOpen:        t.breakerOpen.Load(),
	}

	if len(latencyCopy) > 0 {
		snapshot.AvgLatencyMs = float64(avgDuration(latencyCopy).Milliseconds())
		snapshot.P50LatencyMs = float64(percentile(latencyCopy, 50).Milliseconds())
		snapshot.P95LatencyMs = float64(percentile(latencyCopy, 95).Milliseconds())
		snapshot.P99LatencyMs = float64(percentile(latencyCopy, 99).Milliseconds())
	}

	return snapshot
}

// Reset clears all counters and the latency window.
func (t *Tracker) Reset() {
	t.hotHits.Store(0)
	t.hotMisses.Store(0)
	t.persistentHits.Store(0)
	t.persistentMisses.Store(0)
	t.setCount.Store(0)
	t.totalBytesWritten.Store(0)
	t.staleServed.Store(0)
	t.upstreamCalls.Store(0)
	t.upstreamFailures.Store(0)
	t.retries.Store(0)
	t.noData.Store(0)
	t.breakerTransitions.Store(0)
	t.breakerOpen.Store(false)

	t.latencyMu.Lock()
	t.latencyIndex = 0
	t.latencyCount = 0
	t.latencyMu.Unlock()
}

// Snapshot is a point-in-time view of all counters.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`

	HotHits          int64 `json:"hotHits"`
	HotMisses        int64 `json:"hotMisses"`
	PersistentHits   int64 `json:"persistentHits"`
	PersistentMisses int64 `json:"persistentMisses"`

	SetCount     int64 `json:"setCount"`
	BytesWritten int64 `json:"bytesWritten"`

	StaleServed      int64 `json:"staleServed"`
	UpstreamCalls    int64 `json:"upstreamCalls"`
	UpstreamFailures int64 `json:"upstreamFailures"`
	Retries          int64 `json:"retries"`
	NoData           int64 `json:"noData"`

	BreakerTransitions int64 `json:"breakerTransitions"`
	BreakerOpen        bool  `json:"breakerOpen"`

	AvgLatencyMs float64 `json:"avgLatencyMs"`
	P50LatencyMs float64 `json:"p50LatencyMs"`
	P95LatencyMs float64 `json:"p95LatencyMs"`
	P99LatencyMs float64 `json:"p99LatencyMs"`
}

// HitRatio returns the fraction of cache reads served from either tier.
func (s Snapshot) HitRatio() float64 {
	hits := s.HotHits + s.PersistentHits
	total := hits + s.HotMisses + s.PersistentMisses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

func avgDuration(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range durations {
		total += d
	}
	return total / time.Duration(len(durations))
}

func percentile(durations []time.Duration, p int) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	slices.Sort(sorted)

	idx := (len(sorted) - 1) * p / 100
	return sorted[idx]
}

var _ types.MetricsRecorder = (*Tracker)(nil)
