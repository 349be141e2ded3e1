package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmcrae/fetchgate/internal/config"
	"github.com/jmcrae/fetchgate/internal/types"
)

// fakePersistent is an in-memory stand-in for the durable tier.
type fakePersistent struct {
	entries   map[string]*types.Envelope
	available bool
	setErr    error
	getErr    error
	deletes   int
	sets      int
}

func newFakePersistent() *fakePersistent {
	return &fakePersistent{entries: map[string]*types.Envelope{}, available: true}
}

func (f *fakePersistent) Name() string      { return "persistent" }
func (f *fakePersistent) IsAvailable() bool { return f.available }

func (f *fakePersistent) Get(ctx context.Context, key string) (*types.Envelope, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	env, ok := f.entries[key]
	if !ok {
		return nil, types.ErrCacheMiss
	}
	return env, nil
}

func (f *fakePersistent) Set(ctx context.Context, key string, env *types.Envelope) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.sets++
	f.entries[key] = env
	return nil
}

func (f *fakePersistent) Delete(ctx context.Context, key string) error {
	f.deletes++
	delete(f.entries, key)
	return nil
}

func (f *fakePersistent) Sweep(ctx context.Context, olderThan time.Duration) (int, error) {
	deleted := 0
	for key, env := range f.entries {
		if env.Age(time.Now()) > olderThan {
			delete(f.entries, key)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakePersistent) Stats(ctx context.Context) (types.PersistentTierStats, error) {
	return types.PersistentTierStats{
		Available:    f.available,
		TotalEntries: len(f.entries),
		PerOperation: map[string]int{},
	}, nil
}

func (f *fakePersistent) Close() error { return nil }

func testTiered(t *testing.T, persistent types.PersistentTier) (*Tiered, *time.Time) {
	t.Helper()

	hot, err := NewHot(testHotConfig(), nil, nil)
	if err != nil {
		t.Fatalf("NewHot() error = %v", err)
	}
	t.Cleanup(func() { _ = hot.Close() })

	cfg := config.PersistentConfig{
		FreshWindow:   time.Hour,
		MaxStale:      7 * 24 * time.Hour,
		MinPersistTTL: 60 * time.Second,
	}

	tc := NewTiered(hot, persistent, cfg, nil, nil)

	now := time.Now()
	tc.SetClock(func() time.Time { return now })

	return tc, &now
}

func TestTieredGetFreshFromHot(t *testing.T) {
	fake := newFakePersistent()
	tc, now := testTiered(t, fake)
	ctx := context.Background()

	env := &types.Envelope{
		Payload:   []byte(`{"v":1}`),
		StoredAt:  *now,
		TTL:       5 * time.Minute,
		Operation: "op",
	}
	if err := tc.Set(ctx, "k", env, false); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := tc.Get(ctx, "k", false)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got.Payload) != `{"v":1}` {
		t.Errorf("payload = %s", got.Payload)
	}
}

func TestTieredExpiredHotEntryIsMissButStaleReadable(t *testing.T) {
	fake := newFakePersistent()
	tc, now := testTiered(t, fake)
	ctx := context.Background()

	env := &types.Envelope{
		Payload:   []byte(`{"v":1}`),
		StoredAt:  *now,
		TTL:       5 * time.Minute,
		Operation: "op",
	}
	if err := tc.Set(ctx, "k", env, true); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	*now = now.Add(10 * time.Minute)

	if _, err := tc.Get(ctx, "k", false); !types.IsCacheMiss(err) {
		t.Errorf("Get() of expired entry error = %v, want ErrCacheMiss", err)
	}

	stale, err := tc.GetStale(ctx, "k", 24*time.Hour)
	if err != nil {
		t.Fatalf("GetStale() error = %v", err)
	}
	if string(stale.Payload) != `{"v":1}` {
		t.Errorf("stale payload = %s", stale.Payload)
	}
}

func TestTieredPersistentFreshReadBackfillsHot(t *testing.T) {
	fake := newFakePersistent()
	tc, now := testTiered(t, fake)
	ctx := context.Background()

	// Entry only in the persistent tier, recent and within TTL.
	fake.entries["k"] = &types.Envelope{
		Payload:   []byte(`{"v":2}`),
		StoredAt:  now.Add(-time.Minute),
		TTL:       10 * time.Minute,
		Operation: "op",
	}

	got, err := tc.Get(ctx, "k", false)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got.Payload) != `{"v":2}` {
		t.Errorf("payload = %s", got.Payload)
	}

	// Next read must come from the hot tier even if the store vanishes.
	fake.available = false
	if _, err := tc.Get(ctx, "k", false); err != nil {
		t.Errorf("Get() after backfill error = %v", err)
	}
}

func TestTieredPersistentEntryOutsideFreshWindowIsMiss(t *testing.T) {
	fake := newFakePersistent()
	tc, now := testTiered(t, fake)
	ctx := context.Background()

	// Within TTL on paper but stored longer ago than the fresh window allows.
	fake.entries["k"] = &types.Envelope{
		Payload:   []byte(`{"v":3}`),
		StoredAt:  now.Add(-2 * time.Hour),
		TTL:       24 * time.Hour,
		Operation: "op",
	}

	if _, err := tc.Get(ctx, "k", false); !types.IsCacheMiss(err) {
		t.Errorf("Get() error = %v, want ErrCacheMiss", err)
	}
}

func TestTieredGetStaleDeletesOverAgeEntries(t *testing.T) {
	fake := newFakePersistent()
	tc, now := testTiered(t, fake)
	ctx := context.Background()

	fake.entries["k"] = &types.Envelope{
		Payload:   []byte(`{"v":4}`),
		StoredAt:  now.Add(-10 * 24 * time.Hour),
		TTL:       time.Minute,
		Operation: "op",
	}

	if _, err := tc.GetStale(ctx, "k", 7*24*time.Hour); !types.IsCacheMiss(err) {
		t.Errorf("GetStale() error = %v, want ErrCacheMiss", err)
	}
	if fake.deletes != 1 {
		t.Errorf("deletes = %d, want 1 (over-age entry must be removed)", fake.deletes)
	}
	if _, ok := fake.entries["k"]; ok {
		t.Error("over-age entry still present in persistent tier")
	}
}

func TestTieredGetStaleDropsOverAgeHotEntry(t *testing.T) {
	fake := newFakePersistent()
	tc, now := testTiered(t, fake)
	ctx := context.Background()

	env := &types.Envelope{
		Payload:   []byte(`{"v":7}`),
		StoredAt:  now.Add(-10 * 24 * time.Hour),
		TTL:       time.Minute,
		Operation: "op",
	}
	if err := tc.Set(ctx, "k", env, true); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if _, err := tc.GetStale(ctx, "k", 7*24*time.Hour); !types.IsCacheMiss(err) {
		t.Errorf("GetStale() error = %v, want ErrCacheMiss", err)
	}
	if deletes := tc.Stats(ctx).Hot.Deletes; deletes != 1 {
		t.Errorf("hot deletes = %d, want 1 (over-age entry must be removed)", deletes)
	}
}

func TestTieredPersistPredicate(t *testing.T) {
	//nolint:govet // Test table - alignment not critical
	tests := []struct {
		name     string
		ttl      time.Duration
		hotOnly  bool
		noData   bool
		wantSets int
	}{
		{name: "long ttl persists", ttl: 5 * time.Minute, wantSets: 1},
		{name: "short ttl stays hot", ttl: 30 * time.Second, wantSets: 0},
		{name: "ttl at threshold stays hot", ttl: 60 * time.Second, wantSets: 0},
		{name: "hot only skips store", ttl: 5 * time.Minute, hotOnly: true, wantSets: 0},
		{name: "negative cache stays hot", ttl: 5 * time.Minute, noData: true, wantSets: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakePersistent()
			tc, now := testTiered(t, fake)

			env := &types.Envelope{
				Payload:   []byte(`{}`),
				StoredAt:  *now,
				TTL:       tt.ttl,
				Operation: "op",
				NoData:    tt.noData,
			}
			if err := tc.Set(context.Background(), "k", env, tt.hotOnly); err != nil {
				t.Fatalf("Set() error = %v", err)
			}

			if fake.sets != tt.wantSets {
				t.Errorf("persistent sets = %d, want %d", fake.sets, tt.wantSets)
			}
		})
	}
}

func TestTieredSwallowsPersistentWriteFailure(t *testing.T) {
	fake := newFakePersistent()
	fake.setErr = errors.New("store down")
	tc, now := testTiered(t, fake)
	ctx := context.Background()

	env := &types.Envelope{
		Payload:   []byte(`{"v":5}`),
		StoredAt:  *now,
		TTL:       5 * time.Minute,
		Operation: "op",
	}

	if err := tc.Set(ctx, "k", env, false); err != nil {
		t.Fatalf("Set() error = %v, persistent failure must not surface", err)
	}

	// The hot write stands.
	if _, err := tc.Get(ctx, "k", false); err != nil {
		t.Errorf("Get() error = %v", err)
	}
}

func TestTieredInvalidateRemovesBothTiers(t *testing.T) {
	fake := newFakePersistent()
	tc, now := testTiered(t, fake)
	ctx := context.Background()

	env := &types.Envelope{
		Payload:   []byte(`{"v":6}`),
		StoredAt:  *now,
		TTL:       5 * time.Minute,
		Operation: "op",
	}
	if err := tc.Set(ctx, "k", env, false); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if err := tc.Invalidate(ctx, "k"); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}

	if _, err := tc.Get(ctx, "k", false); !types.IsCacheMiss(err) {
		t.Errorf("Get() after invalidate error = %v, want ErrCacheMiss", err)
	}
	if _, ok := fake.entries["k"]; ok {
		t.Error("entry still present in persistent tier after invalidate")
	}
}
