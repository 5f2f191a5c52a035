package memo_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/meridianfi/meridian-go/memo"
)

// ---------------------------------------------------------------------------
// Single-goroutine benchmarks: measure per-call latency.
// ---------------------------------------------------------------------------

// How fast is a cache hit (RLock + map lookup)?
func BenchmarkHit(b *testing.B) {
	ctx := context.Background()
	g := memo.NewGroup[string]()
	fn := func(context.Context) (string, error) { return "v", nil }
	g.Do(ctx, "k", fn)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		g.Do(ctx, "k", fn)
	}
}

// How fast is a cache miss (singleflight + write)?
func BenchmarkMiss(b *testing.B) {
	keys := make([]string, b.N)
	for i := range keys {
		keys[i] = fmt.Sprintf("%d", i)
	}

	ctx := context.Background()
	g := memo.NewGroup[string]()
	fn := func(context.Context) (string, error) { return "v", nil }

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		g.Do(ctx, keys[i], fn)
	}
}

// Errors are not cached. Measure the retry path.
func BenchmarkErrorNotCached(b *testing.B) {
	ctx := context.Background()
	g := memo.NewGroup[string]()
	fail := errors.New("fail")
	fn := func(context.Context) (string, error) { return "", fail }

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		g.Do(ctx, "k", fn)
	}
}

// Key derivation cost for a typical argument list.
func BenchmarkKeyOf(b *testing.B) {
	type req struct {
		Pool    string
		Account string
		Limit   int
	}
	r := req{Pool: "usdc", Account: "0x1", Limit: 50}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		memo.KeyOf("pools", r)
	}
}

// ---------------------------------------------------------------------------
// Concurrent benchmarks: measure throughput under contention.
// ---------------------------------------------------------------------------

// 1000 goroutines all requesting the same key.
// Only one call executes; the rest wait and share the result.
func BenchmarkConcurrentSameKey(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		ctx := context.Background()
		g := memo.NewGroup[string]()
		var wg sync.WaitGroup
		wg.Add(1000)
		for j := 0; j < 1000; j++ {
			go func() {
				defer wg.Done()
				g.Do(ctx, "k", func(context.Context) (string, error) { return "v", nil })
			}()
		}
		wg.Wait()
	}
}

// 1000 goroutines hammering a pre-warmed cache.
func BenchmarkConcurrentHits(b *testing.B) {
	ctx := context.Background()
	g := memo.NewGroup[string]()
	fn := func(context.Context) (string, error) { return "v", nil }
	g.Do(ctx, "k", fn)

	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			g.Do(ctx, "k", fn)
		}
	})
}
