package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/jmcrae/fetchgate/internal/config"
	"github.com/jmcrae/fetchgate/internal/types"
)

// Tiered composes the hot and persistent tiers behind one read/write policy:
// fresh reads prefer the hot tier and fall through to recent persistent
// entries; stale reads accept anything inside the staleness bound; writes go
// hot always and persistent only when the entry is worth durability.
// Persistent-tier failures degrade silently; only the hot tier can fail an
// operation.
type Tiered struct {
	hot        types.HotTier
	persistent types.PersistentTier
	logger     *slog.Logger
	metrics    types.MetricsRecorder

	freshWindow   time.Duration
	minPersistTTL time.Duration

	now types.Clock
}

// NewTiered composes the two tiers under one policy.
func NewTiered(hot types.HotTier, persistent types.PersistentTier, cfg config.PersistentConfig,
	metrics types.MetricsRecorder, logger *slog.Logger) *Tiered {
	if logger == nil {
		logger = slog.Default()
	}
	if persistent == nil {
		persistent = NewDisabledPersistent()
	}

	return &Tiered{
		hot:           hot,
		persistent:    persistent,
		logger:        logger.With("component", "tiered-cache"),
		metrics:       metrics,
		freshWindow:   cfg.FreshWindow,
		minPersistTTL: cfg.MinPersistTTL,
		now:           time.Now,
	}
}

// SetClock overrides the time source. Used by tests.
func (t *Tiered) SetClock(now types.Clock) {
	t.now = now
}

// Get returns a fresh envelope or ErrCacheMiss. A hot entry within its TTL
// wins; on a hot miss a persistent entry that is both within its TTL and
// inside the fresh window is served and backfilled into the hot tier.
// Expired entries are left in place for GetStale.
func (t *Tiered) Get(ctx context.Context, key string, hotOnly bool) (*types.Envelope, error) {
	now := t.now()

	start := time.Now()
	env, err := t.hot.Get(ctx, key)
	if err == nil && env.Fresh(now) {
		t.record(func(m types.MetricsRecorder) { m.RecordHit(t.hot.Name(), env.Operation, time.Since(start)) })
		return env, nil
	}
	if err != nil && !types.IsCacheMiss(err) {
		return nil, err
	}

	if hotOnly || !t.persistent.IsAvailable() {
		t.record(func(m types.MetricsRecorder) { m.RecordMiss(t.hot.Name(), "", time.Since(start)) })
		return nil, types.ErrCacheMiss
	}

	pstart := time.Now()
	env, err = t.persistent.Get(ctx, key)
	if err != nil {
		if !types.IsCacheMiss(err) && !types.IsStoreUnavailable(err) {
			t.logger.Warn("Persistent read failed, treating as miss", "key", key, "error", err)
		}
		t.record(func(m types.MetricsRecorder) { m.RecordMiss(t.persistent.Name(), "", time.Since(pstart)) })
		return nil, types.ErrCacheMiss
	}

	if !env.Fresh(now) || env.Age(now) >= t.freshWindow {
		return nil, types.ErrCacheMiss
	}

	t.record(func(m types.MetricsRecorder) { m.RecordHit(t.persistent.Name(), env.Operation, time.Since(pstart)) })

	// Backfill so the next read is a hot hit.
	if err := t.hot.Set(ctx, key, env); err != nil {
		t.logger.Warn("Hot backfill failed", "key", key, "error", err)
	}

	return env, nil
}

// GetStale returns the freshest envelope inside the staleness bound, from
// either tier. Entries older than the bound are deleted on sight so they
// never resurface.
func (t *Tiered) GetStale(ctx context.Context, key string, maxStale time.Duration) (*types.Envelope, error) {
	now := t.now()

	env, err := t.hot.Get(ctx, key)
	if err == nil {
		if env.WithinStale(now, maxStale) {
			return env, nil
		}
		if derr := t.hot.Delete(ctx, key); derr != nil {
			t.logger.Warn("Failed to delete over-age entry", "key", key, "error", derr)
		}
	}

	if !t.persistent.IsAvailable() {
		return nil, types.ErrCacheMiss
	}

	env, err = t.persistent.Get(ctx, key)
	if err != nil {
		return nil, types.ErrCacheMiss
	}

	if !env.WithinStale(now, maxStale) {
		if derr := t.persistent.Delete(ctx, key); derr != nil {
			t.logger.Warn("Failed to delete over-age entry", "key", key, "error", derr)
		}
		return nil, types.ErrCacheMiss
	}

	return env, nil
}

// Set writes the envelope to the hot tier and, when it is worth durability,
// to the persistent tier. Short-lived entries churn too fast to persist;
// only TTLs past the persistence threshold are written through. Persistent
// write failures are logged and swallowed.
func (t *Tiered) Set(ctx context.Context, key string, env *types.Envelope, hotOnly bool) error {
	start := time.Now()
	if err := t.hot.Set(ctx, key, env); err != nil {
		return err
	}
	t.record(func(m types.MetricsRecorder) {
		m.RecordSet(t.hot.Name(), env.Operation, len(env.Payload), time.Since(start))
	})

	if hotOnly || env.NoData || env.TTL <= t.minPersistTTL || !t.persistent.IsAvailable() {
		return nil
	}

	pstart := time.Now()
	if err := t.persistent.Set(ctx, key, env); err != nil {
		t.logger.Warn("Persistent write failed, entry is hot-only", "key", key, "error", err)
		return nil
	}
	t.record(func(m types.MetricsRecorder) {
		m.RecordSet(t.persistent.Name(), env.Operation, len(env.Payload), time.Since(pstart))
	})

	return nil
}

// Invalidate removes the key from both tiers.
func (t *Tiered) Invalidate(ctx context.Context, key string) error {
	if err := t.hot.Delete(ctx, key); err != nil {
		return err
	}

	if t.persistent.IsAvailable() {
		if err := t.persistent.Delete(ctx, key); err != nil {
			t.logger.Warn("Persistent delete failed", "key", key, "error", err)
		}
	}

	return nil
}

// ClearExpired sweeps persistent entries older than the bound. The hot tier
// handles its own eviction via retention.
func (t *Tiered) ClearExpired(ctx context.Context, olderThan time.Duration) (int, error) {
	if !t.persistent.IsAvailable() {
		return 0, nil
	}

	deleted, err := t.persistent.Sweep(ctx, olderThan)
	if err != nil {
		t.logger.Warn("Sweep failed", "error", err)
		return deleted, err
	}

	if deleted > 0 {
		t.logger.Info("Swept over-age entries", "deleted", deleted, "olderThan", olderThan)
	}
	return deleted, nil
}

// Stats combines both tiers' views.
func (t *Tiered) Stats(ctx context.Context) types.Stats {
	stats := types.Stats{
		Timestamp: t.now(),
		Hot:       t.hot.Stats(),
	}

	pstats, err := t.persistent.Stats(ctx)
	if err != nil {
		t.logger.Warn("Persistent stats failed", "error", err)
	}
	stats.Persistent = pstats

	return stats
}

// Close closes both tiers.
func (t *Tiered) Close() error {
	herr := t.hot.Close()
	perr := t.persistent.Close()
	if herr != nil {
		return herr
	}
	return perr
}

func (t *Tiered) record(fn func(types.MetricsRecorder)) {
	if t.metrics != nil {
		fn(t.metrics)
	}
}
