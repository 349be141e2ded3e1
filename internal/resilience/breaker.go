// Package resilience provides the fault tolerance pipeline for upstream
// calls: circuit breaking, classified retry with backoff, and a global
// admission gate.
package resilience

import (
	"sync"
	"time"

	"github.com/jmcrae/fetchgate/internal/config"
	"github.com/jmcrae/fetchgate/internal/types"
)

// Gate is the breaker surface the retry executor consults.
type Gate interface {
	IsOpen() bool
	RecordSuccess()
	RecordFailure(class types.FailureClass)
}

// Breaker suspends all upstream calls once the upstream signals it is
// overloaded: consecutive rate-limited failures past a threshold open the
// breaker, and it self-closes after a cooldown. Unlike a generic breaker,
// only rate-limited failures count; transient and permanent failures are a
// retry concern, not a backpressure one.
type Breaker struct {
	threshold int
	cooldown  time.Duration

	mu                     sync.Mutex
	open                   bool
	openedAt               time.Time
	consecutiveRateLimited int

	now           func() time.Time
	onStateChange func(open bool)
}

// NewBreaker creates a breaker from configuration.
func NewBreaker(cfg config.BreakerConfig) *Breaker {
	b := &Breaker{
		threshold: cfg.RateLimitThreshold,
		cooldown:  cfg.Cooldown,
		now:       time.Now,
	}

	if b.threshold <= 0 {
		b.threshold = 2
	}
	if b.cooldown <= 0 {
		b.cooldown = 5 * time.Minute
	}

	return b
}

// SetClock overrides the time source. Used by tests.
func (b *Breaker) SetClock(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}

// SetOnStateChange sets a callback invoked after open/close transitions.
// The callback runs outside the breaker's lock and may read breaker state.
func (b *Breaker) SetOnStateChange(fn func(open bool)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onStateChange = fn
}

// IsOpen reports whether calls are currently suspended. Once the cooldown
// has elapsed the breaker self-closes on this check.
func (b *Breaker) IsOpen() bool {
	var notify func(bool)

	b.mu.Lock()
	if b.open && b.now().Sub(b.openedAt) >= b.cooldown {
		b.open = false
		b.consecutiveRateLimited = 0
		notify = b.onStateChange
	}
	open := b.open
	b.mu.Unlock()

	if notify != nil {
		notify(false)
	}
	return open
}

// RecordFailure counts a classified failure. Only rate-limited failures move
// the breaker; reaching the threshold opens it immediately.
func (b *Breaker) RecordFailure(class types.FailureClass) {
	if class != types.FailureRateLimited {
		return
	}

	var notify func(bool)

	b.mu.Lock()
	b.consecutiveRateLimited++
	if !b.open && b.consecutiveRateLimited >= b.threshold {
		b.open = true
		b.openedAt = b.now()
		notify = b.onStateChange
	}
	b.mu.Unlock()

	if notify != nil {
		notify(true)
	}
}

// RecordSuccess resets the failure streak and force-closes the breaker.
func (b *Breaker) RecordSuccess() {
	var notify func(bool)

	b.mu.Lock()
	b.consecutiveRateLimited = 0
	if b.open {
		b.open = false
		notify = b.onStateChange
	}
	b.mu.Unlock()

	if notify != nil {
		notify(false)
	}
}

// RemainingCooldown returns how long until an open breaker self-closes.
func (b *Breaker) RemainingCooldown() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return 0
	}
	remaining := b.cooldown - b.now().Sub(b.openedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Stats returns a snapshot of breaker state.
func (b *Breaker) Stats() BreakerStats {
	b.mu.Lock()
	defer b.mu.Unlock()

	return BreakerStats{
		Open:                   b.open,
		OpenedAt:               b.openedAt,
		ConsecutiveRateLimited: b.consecutiveRateLimited,
		Threshold:              b.threshold,
		Cooldown:               b.cooldown,
	}
}

// BreakerStats contains a point-in-time view of the breaker.
type BreakerStats struct {
	OpenedAt               time.Time
	Cooldown               time.Duration
	ConsecutiveRateLimited int
	Threshold              int
	Open                   bool
}

// DisabledBreaker is a no-op breaker that never opens.
type DisabledBreaker struct{}

// NewDisabledBreaker creates a disabled breaker.
func NewDisabledBreaker() *DisabledBreaker { return &DisabledBreaker{} }

// IsOpen returns false as this breaker is disabled.
func (b *DisabledBreaker) IsOpen() bool { return false }

// RecordSuccess does nothing as this breaker is disabled.
func (b *DisabledBreaker) RecordSuccess() {}

// RecordFailure does nothing as this breaker is disabled.
func (b *DisabledBreaker) RecordFailure(class types.FailureClass) {}

var _ Gate = (*Breaker)(nil)
var _ Gate = (*DisabledBreaker)(nil)
