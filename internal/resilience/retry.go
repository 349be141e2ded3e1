package resilience

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmcrae/fetchgate/internal/config"
	"github.com/jmcrae/fetchgate/internal/types"
)

// Pacer is the rate limiter surface the executor waits on before each attempt.
type Pacer interface {
	Wait(ctx context.Context) error
}

// InvokeFunc is one upstream attempt.
type InvokeFunc func(ctx context.Context) (json.RawMessage, error)

// Executor runs an upstream call through the full pipeline: breaker gate,
// admission, pacing, and classified retry with per-class backoff.
type Executor struct {
	maxAttempts      int
	rateLimitBase    time.Duration
	transientStep    time.Duration
	permanentBackoff time.Duration
	maxBackoff       time.Duration

	breaker   Gate
	admission Admitter
	limiter   Pacer
	metrics   types.MetricsRecorder
	logger    *slog.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// NewExecutor creates an executor from configuration and its collaborators.
func NewExecutor(cfg config.RetryConfig, breaker Gate, admission Admitter, limiter Pacer,
	metrics types.MetricsRecorder, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}

	e := &Executor{
		maxAttempts:      cfg.MaxAttempts,
		rateLimitBase:    cfg.RateLimitBackoffBase,
		transientStep:    cfg.TransientBackoffStep,
		permanentBackoff: cfg.PermanentBackoff,
		maxBackoff:       cfg.MaxBackoff,
		breaker:          breaker,
		admission:        admission,
		limiter:          limiter,
		metrics:          metrics,
		logger:           logger.With("component", "executor"),
		sleep:            sleepCtx,
	}

	if e.maxAttempts <= 0 {
		e.maxAttempts = 3
	}

	return e
}

// SetSleep overrides the backoff sleeper. Used by tests.
func (e *Executor) SetSleep(sleep func(ctx context.Context, d time.Duration) error) {
	e.sleep = sleep
}

// Do runs fn until it succeeds, the attempts are exhausted, the breaker
// opens, or the context expires. An open breaker aborts before any attempt
// is made; no retry budget is spent while the upstream is cooling off.
func (e *Executor) Do(ctx context.Context, operation string, fn InvokeFunc) (json.RawMessage, error) {
	if e.breaker.IsOpen() {
		return nil, types.ErrCircuitOpen
	}

	if err := e.admission.Acquire(ctx); err != nil {
		return nil, err
	}
	defer e.admission.Release()

	var lastErr error

	for attempt := 0; attempt < e.maxAttempts; attempt++ {
		if attempt > 0 && e.breaker.IsOpen() {
			return nil, fmt.Errorf("%w: %w", types.ErrCircuitOpen, lastErr)
		}

		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		start := time.Now()
		result, err := fn(ctx)
		if e.metrics != nil {
			e.metrics.RecordUpstreamCall(operation, time.Since(start), err)
		}
		if err == nil {
			e.breaker.RecordSuccess()
			return result, nil
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		lastErr = err
		class := types.Classify(err)
		e.breaker.RecordFailure(class)

		// Opening the breaker ends the loop; the stale fallback path is a
		// better answer than hammering a rate-limited upstream.
		if class == types.FailureRateLimited && e.breaker.IsOpen() {
			e.logger.Warn("Circuit opened during retry loop",
				"operation", operation,
				"attempt", attempt+1,
			)
			return nil, fmt.Errorf("%w: %w", types.ErrCircuitOpen, lastErr)
		}

		if attempt == e.maxAttempts-1 {
			break
		}

		backoff := e.backoffFor(class, attempt)
		e.logger.Debug("Retrying upstream call",
			"operation", operation,
			"attempt", attempt+1,
			"class", class.String(),
			"backoff", backoff,
			"error", err,
		)
		if e.metrics != nil {
			e.metrics.RecordRetry(operation, class.String())
		}

		if err := e.sleep(ctx, backoff); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w after %d attempts: %w", types.ErrExhausted, e.maxAttempts, lastErr)
}

// backoffFor computes the delay before the next attempt. Rate-limited
// failures back off exponentially, connection failures linearly, and
// everything else takes a short fixed pause.
func (e *Executor) backoffFor(class types.FailureClass, attempt int) time.Duration {
	var backoff time.Duration

	switch class {
	case types.FailureRateLimited:
		backoff = e.rateLimitBase << uint(attempt)
	case types.FailureTransient:
		backoff = e.transientStep * time.Duration(attempt+1)
	default:
		backoff = e.permanentBackoff
	}

	if e.maxBackoff > 0 && backoff > e.maxBackoff {
		backoff = e.maxBackoff
	}
	return backoff
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
