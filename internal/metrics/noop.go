package metrics

import (
	"time"

	"github.com/jmcrae/fetchgate/internal/types"
)

// NoOpTracker is a no-operation metrics tracker for testing or when disabled.
type NoOpTracker struct{}

// NewNoOpTracker creates a new no-op tracker.
func NewNoOpTracker() *NoOpTracker {
	return &NoOpTracker{}
}

// RecordHit does nothing.
func (t *NoOpTracker) RecordHit(tier string, operation string, latency time.Duration) {}

// RecordMiss does nothing.
func (t *NoOpTracker) RecordMiss(tier string, operation string, latency time.Duration) {}

// RecordSet does nothing.
func (t *NoOpTracker) RecordSet(tier string, operation string, size int, latency time.Duration) {}

// RecordStaleServed does nothing.
func (t *NoOpTracker) RecordStaleServed(operation string, age time.Duration) {}

// RecordUpstreamCall does nothing.
func (t *NoOpTracker) RecordUpstreamCall(operation string, latency time.Duration, err error) {}

// RecordRetry does nothing.
func (t *NoOpTracker) RecordRetry(operation string, class string) {}

// RecordNoData does nothing.
func (t *NoOpTracker) RecordNoData(operation string) {}

// RecordBreakerStateChange does nothing.
func (t *NoOpTracker) RecordBreakerStateChange(open bool) {}

// Snapshot returns empty metrics.
func (t *NoOpTracker) Snapshot() Snapshot { return Snapshot{} }

// Reset does nothing.
func (t *NoOpTracker) Reset() {}

// NoOpPublisher is a no-operation publisher for testing or when disabled.
type NoOpPublisher struct{}

// NewNoOpPublisher creates a new no-op publisher.
func NewNoOpPublisher() *NoOpPublisher {
	return &NoOpPublisher{}
}

// Gauge does nothing.
func (p *NoOpPublisher) Gauge(name string, value float64, tags ...string) {}

// Incr does nothing.
func (p *NoOpPublisher) Incr(name string, tags ...string) {}

// Count does nothing.
func (p *NoOpPublisher) Count(name string, value int64, tags ...string) {}

// Histogram does nothing.
func (p *NoOpPublisher) Histogram(name string, value float64, tags ...string) {}

// Timing does nothing.
func (p *NoOpPublisher) Timing(name string, duration time.Duration, tags ...string) {}

// PublishSnapshot does nothing.
func (p *NoOpPublisher) PublishSnapshot(s *Snapshot) {}

// Close does nothing.
func (p *NoOpPublisher) Close() error { return nil }

var _ types.MetricsRecorder = (*NoOpTracker)(nil)
var _ Publisher = (*NoOpPublisher)(nil)
