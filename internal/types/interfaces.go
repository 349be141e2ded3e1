package types

import (
	"context"
	"time"
)

type TierInfo interface {
	Name() string
	IsAvailable() bool
}

type TierReader interface {
	Get(ctx context.Context, key string) (*Envelope, error)
}

type TierWriter interface {
	Set(ctx context.Context, key string, env *Envelope) error
	Delete(ctx context.Context, key string) error
}

type TierCloser interface {
	Close() error
}

// HotTier is the short-lived in-process cache. Entries past their TTL are
// retained (for stale fallback) until the tier's retention window evicts them.
type HotTier interface {
	TierInfo
	TierReader
	TierWriter
	TierCloser
	Stats() HotTierStats
}

// PersistentTier is the longer-retention durable cache used for degraded-mode
// reads. Its unavailability must never fail a hot-tier operation.
type PersistentTier interface {
	TierInfo
	TierReader
	TierWriter
	TierCloser
	// Sweep deletes entries stored before the bound and returns the count.
	Sweep(ctx context.Context, olderThan time.Duration) (int, error)
	Stats(ctx context.Context) (PersistentTierStats, error)
}

type Serializer interface {
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, dest interface{}) error
}

type MetricsRecorder interface {
	RecordHit(tier string, operation string, latency time.Duration)
	RecordMiss(tier string, operation string, latency time.Duration)
	RecordSet(tier string, operation string, size int, latency time.Duration)
	RecordStaleServed(operation string, age time.Duration)
	RecordUpstreamCall(operation string, latency time.Duration, err error)
	RecordRetry(operation string, class string)
	RecordNoData(operation string)
	RecordBreakerStateChange(open bool)
}

type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Clock supplies the current time; injectable so freshness, staleness, and
// breaker cooldowns are testable without sleeping.
type Clock func() time.Time
