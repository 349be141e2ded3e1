// Package datadog provides a DataDog StatsD metrics publisher.
package datadog

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"

	"github.com/jmcrae/fetchgate/internal/config"
	"github.com/jmcrae/fetchgate/internal/metrics"
)

// Publisher implements metrics.Publisher using the DataDog StatsD client.
type Publisher struct {
	baseTags []string
	client   *statsd.Client
	logger   *slog.Logger
}

// NewPublisher creates a DataDog publisher from config. If DataDog is not
// enabled, returns a NoOpPublisher instead.
func NewPublisher(cfg *config.DataDogConfig, logger *slog.Logger) (metrics.Publisher, error) {
	if !cfg.Enabled {
		return &NoOpPublisher{}, nil
	}

	if logger == nil {
		logger = slog.Default()
	}

	addr := fmt.Sprintf("%s:%d", cfg.AgentHost, cfg.Port)

	client, err := statsd.New(addr,
		statsd.WithNamespace(cfg.Prefix+"."),
		statsd.WithTags(cfg.Tags),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create statsd client: %w", err)
	}

	logger.Info("DataDog publisher initialized",
		"address", addr,
		"prefix", cfg.Prefix,
		"tags", cfg.Tags,
	)

	return &Publisher{
		client:   client,
		baseTags: cfg.Tags,
		logger:   logger.With("component", "datadog"),
	}, nil
}

// Gauge records a gauge metric (value at a point in time).
func (p *Publisher) Gauge(name string, value float64, tags ...string) {
	if err := p.client.Gauge(name, value, p.mergeTags(tags), 1); err != nil {
		p.logger.Debug("Failed to send gauge metric", "name", name, "error", err)
	}
}

// Incr increments a counter by 1.
func (p *Publisher) Incr(name string, tags ...string) {
	if err := p.client.Incr(name, p.mergeTags(tags), 1); err != nil {
		p.logger.Debug("Failed to send incr metric", "name", name, "error", err)
	}
}

// Count increments a counter by a specified amount.
func (p *Publisher) Count(name string, value int64, tags ...string) {
	if err := p.client.Count(name, value, p.mergeTags(tags), 1); err != nil {
		p.logger.Debug("Failed to send count metric", "name", name, "error", err)
	}
}

// Histogram records a distribution of values.
func (p *Publisher) Histogram(name string, value float64, tags ...string) {
	if err := p.client.Histogram(name, value, p.mergeTags(tags), 1); err != nil {
		p.logger.Debug("Failed to send histogram metric", "name", name, "error", err)
	}
}

// Timing records a timing metric.
func (p *Publisher) Timing(name string, duration time.Duration, tags ...string) {
	if err := p.client.Timing(name, duration, p.mergeTags(tags), 1); err != nil {
		p.logger.Debug("Failed to send timing metric", "name", name, "error", err)
	}
}

// PublishSnapshot publishes a tracker snapshot as gauges.
func (p *Publisher) PublishSnapshot(s *metrics.Snapshot) {
	if s == nil {
		return
	}

	p.Gauge("cache.hits", float64(s.HotHits+s.PersistentHits))
	p.Gauge("cache.misses", float64(s.HotMisses+s.PersistentMisses))
	p.Gauge("cache.hit_ratio", clamp(s.HitRatio(), 0, 1))
	p.Gauge("cache.bytes_written", float64(s.BytesWritten))
	p.Gauge("cache.stale_served", float64(s.StaleServed))

	p.Gauge("upstream.calls", float64(s.UpstreamCalls))
	p.Gauge("upstream.failures", float64(s.UpstreamFailures))
	p.Gauge("upstream.retries", float64(s.Retries))
	p.Gauge("upstream.no_data", float64(s.NoData))

	open := 0.0
	if s.BreakerOpen {
		open = 1.0
	}
	p.Gauge("breaker.open", open)
	p.Gauge("breaker.transitions", float64(s.BreakerTransitions))

	p.Gauge("latency.avg_ms", maxFloat(0, s.AvgLatencyMs))
	p.Gauge("latency.p95_ms", maxFloat(0, s.P95LatencyMs))
	p.Gauge("latency.p99_ms", maxFloat(0, s.P99LatencyMs))
}

// Close releases resources held by the publisher.
func (p *Publisher) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

func (p *Publisher) mergeTags(tags []string) []string {
	if len(tags) == 0 {
		return p.baseTags
	}
	if len(p.baseTags) == 0 {
		return tags
	}
	return append(p.baseTags, tags...)
}

func clamp(val, minVal, maxVal float64) float64 {
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

var _ metrics.Publisher = (*Publisher)(nil)
