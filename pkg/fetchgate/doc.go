// Package fetchgate provides a resilient fetch-and-cache layer for
// quota-constrained, unreliable upstreams.
//
// fetchgate sits between application code and a remote data source whose
// capacity is scarce: it answers from cache whenever it can, paces and
// coalesces the calls it must make, and degrades to stale data rather than
// failing when the upstream is down or rate limiting.
//
// # Features
//
//   - Two-tier cache: hot in-process tier (bigcache) plus an optional
//     persistent tier (Redis) for stale fallback across restarts
//   - Admission control: sliding-window rate limiting with minimum call
//     spacing, and a circuit breaker that opens on consecutive rate-limit
//     rejections
//   - Classified retries: rate-limited, transient, and permanent failures
//     each back off on their own schedule
//   - Request coalescing: concurrent fetches of the same operation and
//     params share a single upstream flight
//   - Stale fallback: when the upstream cannot be reached, data past its
//     TTL but inside the staleness bound is served instead of an error
//
// # Quick Start
//
// Implement or wrap an upstream and create a fetcher:
//
//	client := fetchgate.UpstreamFunc(func(ctx context.Context, operation string, params map[string]any) (json.RawMessage, error) {
//	    // call the remote source; classify failures with fetchgate.NewUpstreamError
//	    return callRemote(ctx, operation, params)
//	})
//
//	fetcher, err := fetchgate.New(client)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer fetcher.Close()
//
// Fetch data; the cache, pacing, and fallback are transparent:
//
//	var quotes []Quote
//	err = fetcher.Fetch(ctx, "quotes/latest", map[string]any{"symbol": "ACME"}, &quotes)
//
// For HTTP JSON APIs there is a ready-made upstream:
//
//	fetcher, err := fetchgate.NewHTTP("https://api.example.com")
//
// # Errors
//
// Fetch returns data or a sentinel error: ErrNoData when the upstream has
// nothing for the key, ErrCircuitOpen or ErrExhausted when the upstream is
// unreachable and no stale fallback exists. Use the Is* helpers to branch.
//
// # Configuration
//
// Config() returns the default configuration for modification before
// construction; NewFromFile loads JSON configuration with FETCHGATE_*
// environment overrides.
package fetchgate
