package fetchgate

import (
	"time"

	"github.com/jmcrae/fetchgate/internal/types"
)

type (
	Option         = types.Option
	ManagerOptions = types.ManagerOptions
)

// WithTTL overrides the operation's configured freshness window for this call.
func WithTTL(ttl time.Duration) Option {
	return func(o *FetchOptions) {
		o.TTL = ttl
	}
}

// WithMaxStale overrides the staleness bound used for fallback reads.
func WithMaxStale(maxStale time.Duration) Option {
	return func(o *FetchOptions) {
		o.MaxStale = maxStale
	}
}

// WithHotOnly skips the persistent tier for both reads and writes.
func WithHotOnly() Option {
	return func(o *FetchOptions) {
		o.HotOnly = true
	}
}

// WithNoCoalesce bypasses request coalescing; this caller gets its own flight.
func WithNoCoalesce() Option {
	return func(o *FetchOptions) {
		o.NoCoalesce = true
	}
}

// ManagerOption configures manager construction.
type ManagerOption func(*ManagerOptions)

// WithLogger routes all internal logging through the given logger.
func WithLogger(logger Logger) ManagerOption {
	return func(o *ManagerOptions) {
		o.Logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(metrics MetricsRecorder) ManagerOption {
	return func(o *ManagerOptions) {
		o.Metrics = metrics
	}
}

// WithSerializer sets the value serializer.
func WithSerializer(serializer Serializer) ManagerOption {
	return func(o *ManagerOptions) {
		o.Serializer = serializer
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(clock Clock) ManagerOption {
	return func(o *ManagerOptions) {
		o.Clock = clock
	}
}

// WithStoreAddress overrides the persistent store address.
func WithStoreAddress(addr string) ManagerOption {
	return func(o *ManagerOptions) {
		o.StoreAddress = addr
	}
}

// WithStorePassword overrides the persistent store password.
func WithStorePassword(password string) ManagerOption {
	return func(o *ManagerOptions) {
		o.StorePassword = types.NewSecretString(password)
	}
}

// WithStoreDB overrides the persistent store database index.
func WithStoreDB(db int) ManagerOption {
	return func(o *ManagerOptions) {
		o.StoreDB = db
	}
}

// WithoutPersistence disables the persistent tier.
func WithoutPersistence() ManagerOption {
	return func(o *ManagerOptions) {
		o.DisablePersistence = true
	}
}

// WithoutResilience disables the breaker, retries, and rate limiting.
// Intended for tests against a fake upstream.
func WithoutResilience() ManagerOption {
	return func(o *ManagerOptions) {
		o.DisableResilience = true
	}
}
