package fetchgate_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/jmcrae/fetchgate/pkg/fetchgate"
)

type benchQuote struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	Volume int     `json:"volume"`
}

func benchUpstream(payload []byte) fetchgate.UpstreamFunc {
	return func(ctx context.Context, operation string, params map[string]any) (json.RawMessage, error) {
		return payload, nil
	}
}

func newBenchFetcher(b *testing.B, payload []byte) fetchgate.Fetcher {
	b.Helper()

	f, err := fetchgate.NewFromConfig(fetchgate.TestConfig(), benchUpstream(payload))
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = f.Close() })

	return f
}

func BenchmarkFetch_HotHit(b *testing.B) {
	f := newBenchFetcher(b, []byte(`{"symbol":"ACME","price":1.5,"volume":100}`))
	ctx := context.Background()

	// Warm the cache so every iteration is a hot-tier read.
	var warm benchQuote
	if err := f.Fetch(ctx, "quotes/latest", map[string]any{"symbol": "ACME"}, &warm); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var result benchQuote
		_ = f.Fetch(ctx, "quotes/latest", map[string]any{"symbol": "ACME"}, &result)
	}
}

func BenchmarkFetch_HotHitParallel(b *testing.B) {
	f := newBenchFetcher(b, []byte(`{"symbol":"ACME","price":1.5,"volume":100}`))
	ctx := context.Background()

	var warm benchQuote
	if err := f.Fetch(ctx, "quotes/latest", map[string]any{"symbol": "ACME"}, &warm); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			var result benchQuote
			_ = f.Fetch(ctx, "quotes/latest", map[string]any{"symbol": "ACME"}, &result)
		}
	})
}

func BenchmarkFetch_DistinctKeys(b *testing.B) {
	f := newBenchFetcher(b, []byte(`{"symbol":"ACME","price":1.5,"volume":100}`))
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var result benchQuote
		_ = f.Fetch(ctx, "quotes/latest", map[string]any{"symbol": fmt.Sprintf("SYM%d", i%1000)}, &result)
	}
}

func BenchmarkInvalidate(b *testing.B) {
	f := newBenchFetcher(b, []byte(`{"symbol":"ACME","price":1.5,"volume":100}`))
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = f.Invalidate(ctx, "quotes/latest", map[string]any{"symbol": "ACME"})
	}
}

// Benchmark hot-hit reads across payload sizes.
func BenchmarkFetch_SmallPayload(b *testing.B) {
	benchmarkFetchBySize(b, 10)
}

func BenchmarkFetch_MediumPayload(b *testing.B) {
	benchmarkFetchBySize(b, 1024)
}

func BenchmarkFetch_LargePayload(b *testing.B) {
	benchmarkFetchBySize(b, 10240)
}

func benchmarkFetchBySize(b *testing.B, size int) {
	data := make([]byte, size)
	for i := range data {
		data[i] = 'a' + byte(i%26)
	}
	payload, err := json.Marshal(map[string]string{"blob": string(data)})
	if err != nil {
		b.Fatal(err)
	}

	f := newBenchFetcher(b, payload)
	ctx := context.Background()

	var warm map[string]string
	if err := f.Fetch(ctx, "blobs/read", nil, &warm); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		var result map[string]string
		_ = f.Fetch(ctx, "blobs/read", nil, &result)
	}
}
