// Package types provides shared types for the fetchgate library.
// This package breaks import cycles between pkg/fetchgate and the internal packages.
package types

import (
	"encoding/json"
	"time"
)

// Envelope is the unit both cache tiers store: an opaque serialized payload
// plus the metadata needed to judge freshness and staleness. Envelopes are
// immutable once written; a newer fetch replaces the entry wholesale.
type Envelope struct {
	Payload     json.RawMessage `json:"payload"`
	StoredAt    time.Time       `json:"storedAt"`
	TTL         time.Duration   `json:"ttl"`
	Operation   string          `json:"operation"`
	Fingerprint string          `json:"fingerprint"`
	// NoData marks a negative-cache entry: the upstream had nothing for this
	// key and we remember that briefly to absorb repeated misses.
	NoData bool `json:"noData,omitempty"`
}

// Age returns how long ago the envelope was stored.
func (e *Envelope) Age(now time.Time) time.Duration {
	return now.Sub(e.StoredAt)
}

// Fresh reports whether the envelope is still within its TTL.
func (e *Envelope) Fresh(now time.Time) bool {
	if e.TTL <= 0 {
		return false
	}
	return e.Age(now) < e.TTL
}

// WithinStale reports whether the envelope is young enough to serve as a
// degraded-mode fallback.
func (e *Envelope) WithinStale(now time.Time, maxStale time.Duration) bool {
	if maxStale <= 0 {
		return false
	}
	return e.Age(now) < maxStale
}

// FetchOptions contains per-call options for fetch operations.
type FetchOptions struct {
	// TTL overrides the operation's configured freshness window.
	TTL time.Duration
	// MaxStale overrides the staleness bound used for fallback reads.
	MaxStale time.Duration
	// HotOnly skips the persistent tier for both reads and writes.
	HotOnly bool
	// NoCoalesce bypasses request coalescing; each caller gets its own flight.
	NoCoalesce bool
}

// DefaultFetchOptions returns FetchOptions with zero overrides; the manager
// fills in operation defaults from configuration.
func DefaultFetchOptions() *FetchOptions {
	return &FetchOptions{}
}

// HotTierStats contains counters for the hot (in-process) tier.
type HotTierStats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Sets      int64 `json:"sets"`
	Deletes   int64 `json:"deletes"`
	Evictions int64 `json:"evictions"`
	Entries   int   `json:"entries"`
}

// PersistentTierStats describes the persistent tier's contents.
type PersistentTierStats struct {
	Available    bool           `json:"available"`
	TotalEntries int            `json:"totalEntries"`
	FreshEntries int            `json:"freshEntries"`
	StaleEntries int            `json:"staleEntries"`
	PerOperation map[string]int `json:"perOperation"`
	TotalBytes   int64          `json:"totalBytes"`
}

// Stats is the combined observability view exposed to callers.
type Stats struct {
	Timestamp  time.Time           `json:"timestamp"`
	Hot        HotTierStats        `json:"hot"`
	Persistent PersistentTierStats `json:"persistent"`
}
