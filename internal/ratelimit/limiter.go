// Package ratelimit paces outbound upstream calls against a sliding time
// window combined with a minimum inter-call spacing. Upstreams of this kind
// typically enforce both a short-burst limit and a long-run quota; the
// window alone under-protects against burst, so the two mechanisms are
// paired.
package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmcrae/fetchgate/internal/config"
)

// Limiter admits at most maxRequests calls per window and never two calls
// closer than minDelay apart. Wait is a cooperative suspension point: callers
// block until a slot is free or their context expires.
type Limiter struct {
	maxRequests  int
	window       time.Duration
	minDelay     time.Duration
	safetyBuffer time.Duration

	mu       sync.Mutex
	calls    []time.Time
	lastCall time.Time

	waits      atomic.Int64
	admissions atomic.Int64

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a limiter from configuration.
func New(cfg config.RateLimitConfig) *Limiter {
	l := &Limiter{
		maxRequests:  cfg.MaxRequests,
		window:       cfg.Window,
		minDelay:     cfg.MinDelay,
		safetyBuffer: cfg.SafetyBuffer,
		now:          time.Now,
		sleep:        sleepCtx,
	}

	if l.maxRequests <= 0 {
		l.maxRequests = 5
	}
	if l.window <= 0 {
		l.window = time.Minute
	}

	return l
}

// Wait blocks until the caller may issue an upstream call, then records the
// call timestamp. Returns the context error if the caller gives up first.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		wait, admitted := l.tryAdmit()
		if admitted {
			return nil
		}

		l.waits.Add(1)
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// tryAdmit either records the call and admits it, or returns how long the
// caller must wait before re-checking.
func (l *Limiter) tryAdmit() (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)

	var wait time.Duration

	if len(l.calls) >= l.maxRequests {
		// Wait for the oldest call to exit the window, plus a buffer so the
		// re-check lands strictly after it has left.
		wait = l.calls[0].Add(l.window).Sub(now) + l.safetyBuffer
	}

	if !l.lastCall.IsZero() {
		if spacing := l.minDelay - now.Sub(l.lastCall); spacing > wait {
			wait = spacing
		}
	}

	if wait > 0 {
		return wait, false
	}

	l.calls = append(l.calls, now)
	l.lastCall = now
	l.admissions.Add(1)
	return 0, true
}

// prune drops timestamps that have exited the window. Must hold l.mu.
func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(l.calls) && !l.calls[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.calls = append(l.calls[:0], l.calls[i:]...)
	}
}

// Occupancy returns how many calls are currently inside the window.
func (l *Limiter) Occupancy() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune(l.now())
	return len(l.calls)
}

// Stats returns total admissions and waits since construction.
func (l *Limiter) Stats() (admissions, waits int64) {
	return l.admissions.Load(), l.waits.Load()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Disabled is a no-op pacer that admits every call immediately.
type Disabled struct{}

// NewDisabled creates a disabled limiter.
func NewDisabled() *Disabled { return &Disabled{} }

// Wait returns immediately as this limiter is disabled.
func (d *Disabled) Wait(ctx context.Context) error { return nil }

// Occupancy returns 0 as this limiter is disabled.
func (d *Disabled) Occupancy() int { return 0 }

// Stats returns zero values as this limiter is disabled.
func (d *Disabled) Stats() (admissions, waits int64) { return 0, 0 }
