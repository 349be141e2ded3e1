package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/allegro/bigcache/v3"

	"github.com/jmcrae/fetchgate/internal/config"
	"github.com/jmcrae/fetchgate/internal/types"
)

// Hot is the in-process tier backed by bigcache. Its life window is the
// retention horizon, not the freshness window: entries past their TTL stay
// resident so they can still satisfy stale fallback reads, and only fall out
// once retention evicts them.
type Hot struct {
	cache      *bigcache.BigCache
	serializer types.Serializer
	logger     *slog.Logger

	hits      atomic.Int64
	misses    atomic.Int64
	sets      atomic.Int64
	deletes   atomic.Int64
	evictions atomic.Int64
}

// NewHot creates the hot tier from configuration.
func NewHot(cfg config.HotConfig, serializer types.Serializer, logger *slog.Logger) (*Hot, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if serializer == nil {
		serializer = NewJSONSerializer()
	}

	h := &Hot{
		serializer: serializer,
		logger:     logger.With("component", "hot-tier"),
	}

	bcConfig := bigcache.Config{
		Shards:             cfg.Shards,
		LifeWindow:         cfg.Retention,
		CleanWindow:        cfg.CleanupInterval,
		MaxEntriesInWindow: 1000 * 10 * 60,
		MaxEntrySize:       cfg.MaxEntrySize,
		HardMaxCacheSize:   cfg.MaxSizeMB,
		Verbose:            false,
		Logger:             &bigcacheLogger{logger: h.logger},
		OnRemoveWithReason: func(key string, entry []byte, reason bigcache.RemoveReason) {
			if reason == bigcache.Expired || reason == bigcache.NoSpace {
				h.evictions.Add(1)
			}
		},
	}

	bc, err := bigcache.New(context.Background(), bcConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create hot tier: %w", err)
	}
	h.cache = bc

	return h, nil
}

// Name implements types.TierInfo.
func (h *Hot) Name() string { return "hot" }

// IsAvailable implements types.TierInfo. The hot tier is always available.
func (h *Hot) IsAvailable() bool { return true }

// Get retrieves an envelope. Expired entries are returned as long as
// retention has not evicted them; freshness is the caller's judgement.
func (h *Hot) Get(ctx context.Context, key string) (*types.Envelope, error) {
	data, err := h.cache.Get(key)
	if err != nil {
		if errors.Is(err, bigcache.ErrEntryNotFound) {
			h.misses.Add(1)
			return nil, types.ErrCacheMiss
		}
		return nil, types.NewStoreError("get", key, h.Name(), err)
	}

	var env types.Envelope
	if err := h.serializer.Unmarshal(data, &env); err != nil {
		// A corrupt entry is unrecoverable; drop it and report a miss.
		_ = h.cache.Delete(key)
		h.misses.Add(1)
		h.logger.Warn("Dropped undecodable hot entry", "key", key, "error", err)
		return nil, types.ErrCacheMiss
	}

	h.hits.Add(1)
	return &env, nil
}

// Set stores an envelope.
func (h *Hot) Set(ctx context.Context, key string, env *types.Envelope) error {
	data, err := h.serializer.Marshal(env)
	if err != nil {
		return types.NewStoreError("set", key, h.Name(), err)
	}

	if err := h.cache.Set(key, data); err != nil {
		return types.NewStoreError("set", key, h.Name(), err)
	}

	h.sets.Add(1)
	return nil
}

// Delete removes an envelope. Deleting a missing key is not an error.
func (h *Hot) Delete(ctx context.Context, key string) error {
	if err := h.cache.Delete(key); err != nil {
		if errors.Is(err, bigcache.ErrEntryNotFound) {
			return nil
		}
		return types.NewStoreError("delete", key, h.Name(), err)
	}

	h.deletes.Add(1)
	return nil
}

// Stats returns tier counters.
func (h *Hot) Stats() types.HotTierStats {
	return types.HotTierStats{
		Hits:      h.hits.Load(),
		Misses:    h.misses.Load(),
		Sets:      h.sets.Load(),
		Deletes:   h.deletes.Load(),
		Evictions: h.evictions.Load(),
		Entries:   h.cache.Len(),
	}
}

// Close releases the tier's resources.
func (h *Hot) Close() error {
	return h.cache.Close()
}

// bigcacheLogger routes bigcache's internal logging through slog.
type bigcacheLogger struct {
	logger *slog.Logger
}

func (l *bigcacheLogger) Printf(format string, v ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, v...))
}

var _ types.HotTier = (*Hot)(nil)
