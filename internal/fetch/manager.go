// Package fetch coordinates the full read path: cache tiers, request
// coalescing, and the resilience pipeline in front of the upstream.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jmcrae/fetchgate/internal/cache"
	"github.com/jmcrae/fetchgate/internal/config"
	"github.com/jmcrae/fetchgate/internal/metrics"
	"github.com/jmcrae/fetchgate/internal/metrics/datadog"
	"github.com/jmcrae/fetchgate/internal/ratelimit"
	"github.com/jmcrae/fetchgate/internal/resilience"
	"github.com/jmcrae/fetchgate/internal/types"
	"github.com/jmcrae/fetchgate/internal/upstream"
)

// DefaultShutdownTimeout is the default timeout for shutting down the manager.
const DefaultShutdownTimeout = 30 * time.Second

// Manager is the orchestrator: every read goes cache-first, misses coalesce
// into one upstream flight per key, and failed flights fall back to stale
// data before surfacing an error.
type Manager struct {
	cache      *cache.Tiered
	upstream   upstream.Client
	executor   *resilience.Executor
	breaker    *resilience.Breaker
	limiter    resilience.Pacer
	serializer types.Serializer
	config     *config.Config
	metrics    types.MetricsRecorder
	logger     *slog.Logger

	keyValidator *types.KeyValidator
	sfGroup      singleflight.Group
	now          types.Clock

	publisher   metrics.Publisher
	bgPublisher *metrics.BackgroundPublisher

	shutdownCancel context.CancelFunc
	shutdownCtx    context.Context
	bgWg           sync.WaitGroup
	bgMu           sync.Mutex
	closed         atomic.Bool
}

// NewManager creates a manager from configuration and an upstream client.
//
//nolint:gocyclo // Configuration initialization requires multiple conditional checks
func NewManager(cfg *config.Config, client upstream.Client, opts *types.ManagerOptions) (*Manager, error) {
	if client == nil {
		return nil, errors.New("fetchgate: upstream client is required")
	}

	// Option overrides apply to a private copy, never the caller's config.
	cfgCopy := *cfg
	cfg = &cfgCopy

	logger := slog.Default()
	if opts != nil && opts.Logger != nil {
		logger = slog.New(slogAdapter{logger: opts.Logger})
	}
	logger = logger.With("component", "fetch-manager")

	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())

	m := &Manager{
		upstream:       client,
		config:         cfg,
		logger:         logger,
		serializer:     cache.NewJSONSerializer(),
		now:            time.Now,
		shutdownCtx:    shutdownCtx,
		shutdownCancel: shutdownCancel,
	}

	if opts != nil {
		if opts.Serializer != nil {
			m.serializer = opts.Serializer
		}
		if opts.Metrics != nil {
			m.metrics = opts.Metrics
		}
		if opts.Clock != nil {
			m.now = opts.Clock
		}
		if opts.StoreAddress != "" {
			cfg.Persistent.Address = opts.StoreAddress
		}
		if !opts.StorePassword.IsEmpty() {
			cfg.Persistent.Password = opts.StorePassword
		}
		if opts.StoreDB != 0 {
			cfg.Persistent.DB = opts.StoreDB
		}
		if opts.DisablePersistence {
			cfg.Persistent.Enabled = false
		}
		if opts.DisableResilience {
			cfg.Breaker.Enabled = false
			cfg.Admission.Enabled = false
			cfg.Retry.MaxAttempts = 1
		}
	}

	if m.metrics == nil && cfg.Metrics.Enabled {
		m.metrics = metrics.NewTracker()
	}

	if cfg.Metrics.DataDog.Enabled && cfg.Metrics.PublishInterval > 0 {
		if tracker, ok := m.metrics.(*metrics.Tracker); ok {
			publisher, err := datadog.NewPublisher(&cfg.Metrics.DataDog, logger)
			if err != nil {
				shutdownCancel()
				return nil, err
			}
			m.publisher = publisher
			m.bgPublisher = metrics.NewBackgroundPublisher(
				publisher, cfg.Metrics.PublishInterval, tracker.Snapshot, logger)
			m.bgPublisher.Start(shutdownCtx)
		}
	}

	if cfg.KeyValidation.Enabled {
		m.keyValidator = types.NewKeyValidator(cfg.KeyValidation.ToTypesConfig())
	}

	hot, err := cache.NewHot(cfg.Hot, m.serializer, logger)
	if err != nil {
		shutdownCancel()
		return nil, err
	}

	var persistent types.PersistentTier
	if cfg.Persistent.Enabled {
		persistent = cache.NewPersistent(cfg.Persistent, m.serializer, logger)
	} else {
		persistent = cache.NewDisabledPersistent()
	}

	m.cache = cache.NewTiered(hot, persistent, cfg.Persistent, m.metrics, logger)
	m.cache.SetClock(m.now)

	var gate resilience.Gate
	if cfg.Breaker.Enabled {
		breaker := resilience.NewBreaker(cfg.Breaker)
		breaker.SetClock(m.now)
		breaker.SetOnStateChange(func(open bool) {
			if open {
				logger.Warn("Circuit breaker opened, suspending upstream calls",
					"cooldown", cfg.Breaker.Cooldown)
			} else {
				logger.Info("Circuit breaker closed, upstream calls resumed")
			}
			if m.metrics != nil {
				m.metrics.RecordBreakerStateChange(open)
			}
		})
		m.breaker = breaker
		gate = breaker
	} else {
		gate = resilience.NewDisabledBreaker()
	}

	var limiter resilience.Pacer
	if opts != nil && opts.DisableResilience {
		limiter = ratelimit.NewDisabled()
	} else {
		limiter = ratelimit.New(cfg.RateLimit)
	}
	m.limiter = limiter

	var admission resilience.Admitter
	if cfg.Admission.Enabled {
		admission = resilience.NewAdmission(cfg.Admission)
	} else {
		admission = resilience.NewDisabledAdmission()
	}

	m.executor = resilience.NewExecutor(cfg.Retry, gate, admission, limiter, m.metrics, logger)

	if cfg.Persistent.Enabled && cfg.Persistent.SweepInterval > 0 {
		m.bgWg.Add(1)
		go m.sweepLoop(cfg.Persistent.SweepInterval)
	}

	return m, nil
}

// Fetch resolves an operation into dest: a fresh cache hit returns
// immediately; on a miss, concurrent callers for the same operation and
// params share one upstream flight; and when the upstream is unreachable,
// stale data inside the staleness bound is served instead of the error.
func (m *Manager) Fetch(ctx context.Context, operation string, params map[string]any, dest any, opts ...types.Option) error {
	if m.closed.Load() {
		return types.ErrClosed
	}

	if err := m.validateOperation(operation); err != nil {
		return err
	}

	options := m.applyDefaults(operation, opts...)
	key := cache.Fingerprint(operation, params)

	env, err := m.cache.Get(ctx, key, options.HotOnly)
	if err == nil {
		return m.deliver(env, dest)
	}
	if !types.IsCacheMiss(err) {
		return err
	}

	if options.NoCoalesce {
		// An uncoalesced flight belongs to this caller alone, so its context
		// governs the whole pipeline.
		env, err = m.fetchPipeline(ctx, key, operation, params, options)
		if err != nil {
			return err
		}
		return m.deliver(env, dest)
	}

	ch := m.sfGroup.DoChan(key, func() (any, error) {
		return m.fetchPipeline(m.shutdownCtx, key, operation, params, options)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return res.Err
		}
		return m.deliver(res.Val.(*types.Envelope), dest)

	case <-ctx.Done():
		// The flight keeps running for the callers still waiting; this
		// caller settles for stale data if any exists. The caller's context
		// is already done, so the lookup runs on its own.
		if stale, serr := m.staleFallback(key, options.MaxStale); serr == nil && !stale.NoData {
			m.logger.Debug("Caller gave up on flight, served stale",
				"operation", operation, "age", stale.Age(m.now()))
			return m.deliver(stale, dest)
		}
		return ctx.Err()
	}
}

// fetchPipeline is the single flight body: re-check the cache, call the
// upstream through the resilience pipeline, cache the result, and fall back
// to stale data when the pipeline fails. Coalesced flights run on the
// manager's lifecycle context so one caller's deadline never cancels a
// shared flight; uncoalesced flights run on the caller's.
func (m *Manager) fetchPipeline(parent context.Context, key, operation string, params map[string]any, options *types.FetchOptions) (*types.Envelope, error) {
	fctx, cancel := context.WithTimeout(parent, m.config.Defaults.FetchTimeout)
	defer cancel()

	// A racing flight may have populated the cache between the caller's miss
	// and this flight starting.
	if env, err := m.cache.Get(fctx, key, options.HotOnly); err == nil {
		return env, nil
	}

	payload, err := m.executor.Do(fctx, operation, func(ctx context.Context) (json.RawMessage, error) {
		return m.upstream.Invoke(ctx, operation, params)
	})
	if err != nil {
		if stale, serr := m.staleFallback(key, options.MaxStale); serr == nil && !stale.NoData {
			age := stale.Age(m.now())
			m.logger.Warn("Upstream unavailable, serving stale data",
				"operation", operation,
				"age", age,
				"error", err,
			)
			if m.metrics != nil {
				m.metrics.RecordStaleServed(operation, age)
			}
			return stale, nil
		}
		return nil, err
	}

	if isEmptyPayload(payload) {
		if m.metrics != nil {
			m.metrics.RecordNoData(operation)
		}
		env := &types.Envelope{
			StoredAt:    m.now(),
			TTL:         m.config.Defaults.NoDataTTL,
			Operation:   operation,
			Fingerprint: key,
			NoData:      true,
		}
		if env.TTL > 0 {
			if serr := m.cache.Set(fctx, key, env, options.HotOnly); serr != nil {
				m.logger.Debug("Failed to negative-cache empty result", "key", key, "error", serr)
			}
		}
		return env, nil
	}

	env := &types.Envelope{
		Payload:     payload,
		StoredAt:    m.now(),
		TTL:         options.TTL,
		Operation:   operation,
		Fingerprint: key,
	}

	if serr := m.cache.Set(fctx, key, env, options.HotOnly); serr != nil {
		m.logger.Warn("Failed to cache upstream result", "key", key, "error", serr)
	}

	return env, nil
}

// staleFallbackTimeout bounds the cache lookup made on behalf of a caller
// whose own context has already expired.
const staleFallbackTimeout = 5 * time.Second

// staleFallback reads stale data on the manager's lifecycle context. The
// contexts in play when a fallback is needed are expired or nearly so, and an
// expired context would make the persistent tier unreachable.
func (m *Manager) staleFallback(key string, maxStale time.Duration) (*types.Envelope, error) {
	ctx, cancel := context.WithTimeout(m.shutdownCtx, staleFallbackTimeout)
	defer cancel()
	return m.cache.GetStale(ctx, key, maxStale)
}

// deliver unmarshals the envelope payload into dest. Negative-cache entries
// surface as ErrNoData.
func (m *Manager) deliver(env *types.Envelope, dest any) error {
	if env.NoData {
		return types.ErrNoData
	}
	if dest == nil {
		return nil
	}
	return m.serializer.Unmarshal(env.Payload, dest)
}

// Invalidate removes the cached entry for an operation and params from both
// tiers.
func (m *Manager) Invalidate(ctx context.Context, operation string, params map[string]any) error {
	if m.closed.Load() {
		return types.ErrClosed
	}

	if err := m.validateOperation(operation); err != nil {
		return err
	}

	return m.cache.Invalidate(ctx, cache.Fingerprint(operation, params))
}

// ClearExpired deletes persistent entries older than the staleness bound and
// returns how many were removed.
func (m *Manager) ClearExpired(ctx context.Context) (int, error) {
	if m.closed.Load() {
		return 0, types.ErrClosed
	}

	return m.cache.ClearExpired(ctx, m.config.Persistent.MaxStale)
}

// Stats returns the combined cache view.
func (m *Manager) Stats(ctx context.Context) types.Stats {
	return m.cache.Stats(ctx)
}

// BreakerStats returns a snapshot of the circuit breaker, or the zero value
// when the breaker is disabled.
func (m *Manager) BreakerStats() resilience.BreakerStats {
	if m.breaker == nil {
		return resilience.BreakerStats{}
	}
	return m.breaker.Stats()
}

// Close releases all resources using the default shutdown timeout.
func (m *Manager) Close() error {
	return m.CloseWithTimeout(DefaultShutdownTimeout)
}

// CloseWithTimeout releases all resources, waiting up to timeout for
// background work to finish before closing the tiers regardless.
func (m *Manager) CloseWithTimeout(timeout time.Duration) error {
	m.bgMu.Lock()
	if m.closed.Swap(true) {
		m.bgMu.Unlock()
		return nil
	}
	m.shutdownCancel()
	m.bgMu.Unlock()

	m.logger.Info("Closing fetch manager, waiting for background work", "timeout", timeout)

	done := make(chan struct{})
	go func() {
		m.bgWg.Wait()
		close(done)
	}()

	var errs []error

	select {
	case <-done:
	case <-time.After(timeout):
		m.logger.Warn("Shutdown timeout exceeded, proceeding with close", "timeout", timeout)
		errs = append(errs, errors.New("fetchgate: shutdown timed out"))
	}

	if m.bgPublisher != nil {
		m.bgPublisher.Stop()
	}
	if m.publisher != nil {
		if err := m.publisher.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if err := m.cache.Close(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// sweepLoop periodically deletes over-age persistent entries.
func (m *Manager) sweepLoop(interval time.Duration) {
	defer m.bgWg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.shutdownCtx.Done():
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(m.shutdownCtx, time.Minute)
			if _, err := m.cache.ClearExpired(ctx, m.config.Persistent.MaxStale); err != nil {
				m.logger.Warn("Background sweep failed", "error", err)
			}
			cancel()
		}
	}
}

func (m *Manager) validateOperation(operation string) error {
	if m.keyValidator == nil {
		return nil
	}
	return m.keyValidator.Validate(operation)
}

func (m *Manager) applyDefaults(operation string, opts ...types.Option) *types.FetchOptions {
	options := types.ApplyOptions(opts...)

	if options.TTL == 0 {
		options.TTL = m.config.Defaults.TTLFor(operation)
	}
	if options.MaxStale == 0 {
		options.MaxStale = m.config.Defaults.MaxStale
	}

	return options
}

// isEmptyPayload reports whether the upstream returned nothing worth caching
// as data: an empty body, JSON null, or an empty array.
func isEmptyPayload(payload []byte) bool {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return true
	}
	return bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("[]"))
}
