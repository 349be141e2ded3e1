package fetchgate

import (
	"context"
	"encoding/json"

	"github.com/jmcrae/fetchgate/internal/resilience"
	"github.com/jmcrae/fetchgate/internal/types"
)

// Fetcher is the public surface: cache-first reads with coalesced upstream
// flights and stale fallback when the upstream is unreachable.
type Fetcher interface {
	// Fetch resolves an operation into dest. Fresh cache hits return
	// immediately; misses go upstream through the resilience pipeline, and
	// concurrent callers for the same operation and params share one flight.
	Fetch(ctx context.Context, operation string, params map[string]any, dest any, opts ...Option) error

	// Invalidate removes the cached entry for an operation and params.
	Invalidate(ctx context.Context, operation string, params map[string]any) error

	// ClearExpired deletes persistent entries past the staleness bound and
	// returns how many were removed.
	ClearExpired(ctx context.Context) (int, error)

	// Stats returns the combined cache view.
	Stats(ctx context.Context) Stats

	// BreakerStats returns a snapshot of the circuit breaker.
	BreakerStats() resilience.BreakerStats

	// Close releases all resources.
	Close() error
}

// UpstreamClient is the seam callers implement (or wrap) to reach their
// remote data source.
type UpstreamClient interface {
	Invoke(ctx context.Context, operation string, params map[string]any) (json.RawMessage, error)
}

// Stats is the combined cache view.
type Stats = types.Stats

// BreakerStats is a point-in-time view of the circuit breaker.
type BreakerStats = resilience.BreakerStats
