package cache

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jmcrae/fetchgate/internal/config"
	"github.com/jmcrae/fetchgate/internal/types"
)

// disconnectErrorThreshold is how many consecutive store errors mark the
// tier unavailable until a health check succeeds.
const disconnectErrorThreshold = 5

// Persistent is the durable tier backed by Redis. It degrades rather than
// fails: once connectivity is lost the tier reports unavailable and callers
// fall through to the hot tier and the upstream, while a background health
// check probes for recovery.
type Persistent struct {
	client     *redis.Client
	serializer types.Serializer
	logger     *slog.Logger
	prefix     string
	maxStale   time.Duration

	connected         atomic.Bool
	consecutiveErrors atomic.Int32

	now func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewPersistent creates the persistent tier and probes connectivity once.
// A failed probe is not fatal; the tier starts unavailable and recovers via
// the health check loop.
func NewPersistent(cfg config.PersistentConfig, serializer types.Serializer, logger *slog.Logger) *Persistent {
	if logger == nil {
		logger = slog.Default()
	}
	if serializer == nil {
		serializer = NewJSONSerializer()
	}

	opts := &redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password.Value(),
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolTimeout:  cfg.PoolTimeout,
	}
	if cfg.EnableTLS {
		opts.TLSConfig = &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: cfg.TLSSkipVerify, //nolint:gosec // Operator opt-in for self-signed dev stores
		}
	}

	p := &Persistent{
		client:     redis.NewClient(opts),
		serializer: serializer,
		logger:     logger.With("component", "persistent-tier"),
		prefix:     cfg.KeyPrefix,
		maxStale:   cfg.MaxStale,
		now:        time.Now,
		stopCh:     make(chan struct{}),
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := p.client.Ping(ctx).Err(); err != nil {
		p.logger.Warn("Persistent store unreachable at startup, continuing degraded", "error", err)
	} else {
		p.connected.Store(true)
	}

	if cfg.HealthCheckInterval > 0 {
		p.wg.Add(1)
		go p.healthLoop(cfg.HealthCheckInterval)
	}

	return p
}

// Name implements types.TierInfo.
func (p *Persistent) Name() string { return "persistent" }

// IsAvailable reports whether the store is currently reachable.
func (p *Persistent) IsAvailable() bool { return p.connected.Load() }

// Get retrieves an envelope.
func (p *Persistent) Get(ctx context.Context, key string) (*types.Envelope, error) {
	if !p.connected.Load() {
		return nil, types.ErrStoreUnavailable
	}

	data, err := p.client.Get(ctx, p.storeKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			p.clearError()
			return nil, types.ErrCacheMiss
		}
		p.handleError(err)
		return nil, types.NewStoreError("get", key, p.Name(), err)
	}
	p.clearError()

	var env types.Envelope
	if err := p.serializer.Unmarshal(data, &env); err != nil {
		_ = p.client.Del(ctx, p.storeKey(key)).Err()
		p.logger.Warn("Dropped undecodable persistent entry", "key", key, "error", err)
		return nil, types.ErrCacheMiss
	}

	return &env, nil
}

// Set stores an envelope. The store-level expiry is the staleness horizon,
// not the freshness TTL: entries must outlive their TTL to serve fallback
// reads.
func (p *Persistent) Set(ctx context.Context, key string, env *types.Envelope) error {
	if !p.connected.Load() {
		return types.ErrStoreUnavailable
	}

	data, err := p.serializer.Marshal(env)
	if err != nil {
		return types.NewStoreError("set", key, p.Name(), err)
	}

	if err := p.client.Set(ctx, p.storeKey(key), data, p.maxStale).Err(); err != nil {
		p.handleError(err)
		return types.NewStoreError("set", key, p.Name(), err)
	}
	p.clearError()

	return nil
}

// Delete removes an envelope. Deleting a missing key is not an error.
func (p *Persistent) Delete(ctx context.Context, key string) error {
	if !p.connected.Load() {
		return types.ErrStoreUnavailable
	}

	if err := p.client.Del(ctx, p.storeKey(key)).Err(); err != nil {
		p.handleError(err)
		return types.NewStoreError("delete", key, p.Name(), err)
	}
	p.clearError()

	return nil
}

// Sweep deletes entries stored longer ago than olderThan and returns how
// many were removed.
func (p *Persistent) Sweep(ctx context.Context, olderThan time.Duration) (int, error) {
	if !p.connected.Load() {
		return 0, types.ErrStoreUnavailable
	}

	now := p.now()
	deleted := 0

	err := p.scan(ctx, func(storeKey string, env *types.Envelope) error {
		if env.Age(now) <= olderThan {
			return nil
		}
		if err := p.client.Del(ctx, storeKey).Err(); err != nil {
			return err
		}
		deleted++
		return nil
	})
	if err != nil {
		p.handleError(err)
		return deleted, types.NewStoreError("sweep", "", p.Name(), err)
	}
	p.clearError()

	return deleted, nil
}

// Stats walks the tier and summarizes its contents. This scans every entry
// under the prefix; call it from a stats endpoint, not a hot path.
func (p *Persistent) Stats(ctx context.Context) (types.PersistentTierStats, error) {
	stats := types.PersistentTierStats{
		Available:    p.connected.Load(),
		PerOperation: map[string]int{},
	}
	if !stats.Available {
		return stats, nil
	}

	now := p.now()

	err := p.scan(ctx, func(storeKey string, env *types.Envelope) error {
		stats.TotalEntries++
		stats.TotalBytes += int64(len(env.Payload))
		stats.PerOperation[env.Operation]++
		if env.Fresh(now) {
			stats.FreshEntries++
		} else {
			stats.StaleEntries++
		}
		return nil
	})
	if err != nil {
		p.handleError(err)
		return stats, types.NewStoreError("stats", "", p.Name(), err)
	}
	p.clearError()

	return stats, nil
}

// scan iterates every decodable envelope under the key prefix.
func (p *Persistent) scan(ctx context.Context, fn func(storeKey string, env *types.Envelope) error) error {
	iter := p.client.Scan(ctx, 0, p.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		storeKey := iter.Val()

		data, err := p.client.Get(ctx, storeKey).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return err
		}

		var env types.Envelope
		if err := p.serializer.Unmarshal(data, &env); err != nil {
			continue
		}

		if err := fn(storeKey, &env); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Ping probes the store directly.
func (p *Persistent) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Close stops the health loop and closes the client.
func (p *Persistent) Close() error {
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.wg.Wait()
	return p.client.Close()
}

func (p *Persistent) storeKey(key string) string {
	if strings.HasPrefix(key, p.prefix) {
		return key
	}
	return p.prefix + key
}

func (p *Persistent) handleError(err error) {
	count := p.consecutiveErrors.Add(1)
	if count >= disconnectErrorThreshold && p.connected.CompareAndSwap(true, false) {
		p.logger.Warn("Persistent store marked unavailable",
			"consecutiveErrors", count,
			"error", err,
		)
	}
}

func (p *Persistent) clearError() {
	p.consecutiveErrors.Store(0)
}

func (p *Persistent) healthLoop(interval time.Duration) {
	defer p.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			err := p.client.Ping(ctx).Err()
			cancel()

			if err != nil {
				p.handleError(err)
				continue
			}
			if p.connected.CompareAndSwap(false, true) {
				p.logger.Info("Persistent store recovered")
			}
			p.clearError()
		}
	}
}

var _ types.PersistentTier = (*Persistent)(nil)
