package cache

import (
	"context"
	"time"

	"github.com/jmcrae/fetchgate/internal/types"
)

// DisabledPersistent stands in when no persistent store is configured.
// Reads miss, writes are accepted and dropped, so the tiered cache never
// needs to special-case a nil tier.
type DisabledPersistent struct{}

// NewDisabledPersistent creates a disabled persistent tier.
func NewDisabledPersistent() *DisabledPersistent { return &DisabledPersistent{} }

// Name implements types.TierInfo.
func (d *DisabledPersistent) Name() string { return "persistent" }

// IsAvailable returns false as this tier is disabled.
func (d *DisabledPersistent) IsAvailable() bool { return false }

// Get reports a miss as this tier is disabled.
func (d *DisabledPersistent) Get(ctx context.Context, key string) (*types.Envelope, error) {
	return nil, types.ErrCacheMiss
}

// Set drops the write as this tier is disabled.
func (d *DisabledPersistent) Set(ctx context.Context, key string, env *types.Envelope) error {
	return nil
}

// Delete does nothing as this tier is disabled.
func (d *DisabledPersistent) Delete(ctx context.Context, key string) error { return nil }

// Sweep does nothing as this tier is disabled.
func (d *DisabledPersistent) Sweep(ctx context.Context, olderThan time.Duration) (int, error) {
	return 0, nil
}

// Stats reports an unavailable tier.
func (d *DisabledPersistent) Stats(ctx context.Context) (types.PersistentTierStats, error) {
	return types.PersistentTierStats{PerOperation: map[string]int{}}, nil
}

// Close does nothing as this tier is disabled.
func (d *DisabledPersistent) Close() error { return nil }

var _ types.PersistentTier = (*DisabledPersistent)(nil)
