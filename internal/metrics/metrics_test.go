package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestTrackerCounters(t *testing.T) {
	tr := NewTracker()

	tr.RecordHit("hot", "op", time.Millisecond)
	tr.RecordHit("persistent", "op", time.Millisecond)
	tr.RecordMiss("hot", "op", time.Millisecond)
	tr.RecordSet("hot", "op", 128, time.Millisecond)
	tr.RecordStaleServed("op", time.Hour)
	tr.RecordUpstreamCall("op", 10*time.Millisecond, nil)
	tr.RecordUpstreamCall("op", 10*time.Millisecond, errors.New("boom"))
	tr.RecordRetry("op", "transient")
	tr.RecordNoData("op")
	tr.RecordBreakerStateChange(true)

	s := tr.Snapshot()

	if s.HotHits != 1 || s.PersistentHits != 1 {
		t.Errorf("hits = %d/%d, want 1/1", s.HotHits, s.PersistentHits)
	}
	if s.HotMisses != 1 {
		t.Errorf("HotMisses = %d, want 1", s.HotMisses)
	}
	if s.SetCount != 1 || s.BytesWritten != 128 {
		t.Errorf("sets = %d bytes = %d, want 1/128", s.SetCount, s.BytesWritten)
	}
	if s.StaleServed != 1 {
		t.Errorf("StaleServed = %d, want 1", s.StaleServed)
	}
	if s.UpstreamCalls != 2 || s.UpstreamFailures != 1 {
		t.Errorf("upstream = %d calls %d failures, want 2/1", s.UpstreamCalls, s.UpstreamFailures)
	}
	if s.Retries != 1 || s.NoData != 1 {
		t.Errorf("retries = %d noData = %d, want 1/1", s.Retries, s.NoData)
	}
	if !s.BreakerOpen || s.BreakerTransitions != 1 {
		t.Errorf("breaker open = %v transitions = %d, want true/1", s.BreakerOpen, s.BreakerTransitions)
	}
}

func TestTrackerHitRatio(t *testing.T) {
	tr := NewTracker()

	if got := tr.Snapshot().HitRatio(); got != 0 {
		t.Errorf("empty HitRatio() = %v, want 0", got)
	}

	for i := 0; i < 3; i++ {
		tr.RecordHit("hot", "op", 0)
	}
	tr.RecordMiss("hot", "op", 0)

	if got := tr.Snapshot().HitRatio(); got != 0.75 {
		t.Errorf("HitRatio() = %v, want 0.75", got)
	}
}

func TestTrackerLatencyPercentiles(t *testing.T) {
	tr := NewTracker()

	for i := 1; i <= 100; i++ {
		tr.RecordHit("hot", "op", time.Duration(i)*time.Millisecond)
	}

	s := tr.Snapshot()
	if s.P50LatencyMs < 40 || s.P50LatencyMs > 60 {
		t.Errorf("P50LatencyMs = %v, want ~50", s.P50LatencyMs)
	}
	if s.P99LatencyMs < 95 {
		t.Errorf("P99LatencyMs = %v, want >= 95", s.P99LatencyMs)
	}
	if s.AvgLatencyMs <= 0 {
		t.Errorf("AvgLatencyMs = %v, want > 0", s.AvgLatencyMs)
	}
}

func TestTrackerReset(t *testing.T) {
	tr := NewTracker()

	tr.RecordHit("hot", "op", time.Millisecond)
	tr.RecordBreakerStateChange(true)
	tr.Reset()

	s := tr.Snapshot()
	if s.HotHits != 0 || s.BreakerTransitions != 0 || s.BreakerOpen {
		t.Errorf("snapshot after reset = %+v, want zeroed", s)
	}
}

func TestTrackerConcurrency(t *testing.T) {
	tr := NewTracker()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				tr.RecordHit("hot", "op", time.Millisecond)
				tr.RecordUpstreamCall("op", time.Millisecond, nil)
				_ = tr.Snapshot()
			}
		}()
	}
	wg.Wait()

	if got := tr.Snapshot().HotHits; got != 8000 {
		t.Errorf("HotHits = %d, want 8000", got)
	}
}

func TestTag(t *testing.T) {
	if got := Tag("tier", "hot"); got != "tier:hot" {
		t.Errorf("Tag() = %q, want tier:hot", got)
	}
	if got := OperationTag("quotes"); got != "operation:quotes" {
		t.Errorf("OperationTag() = %q", got)
	}
}
