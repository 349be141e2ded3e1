package datadog

import (
	"time"

	"github.com/jmcrae/fetchgate/internal/metrics"
)

// NoOpPublisher stands in when DataDog publishing is disabled.
type NoOpPublisher struct{}

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
func (p *NoOpPublisher) PublishSnapshot(s *metrics.Snapshot) {}

// Close does nothing.
func (p *NoOpPublisher) Close() error { return nil }

var _ metrics.Publisher = (*NoOpPublisher)(nil)
