package memo_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/meridianfi/meridian-go/memo"
)

func TestDoCachesResult(t *testing.T) {
	ctx := context.Background()
	g := memo.NewGroup[string]()
	var calls atomic.Int32

	fn := func(context.Context) (string, error) {
		calls.Add(1)
		return "cached", nil
	}

	v1, err := g.Do(ctx, "k", fn)
	if err != nil {
		t.Fatal(err)
	}
	v2, err := g.Do(ctx, "k", fn)
	if err != nil {
		t.Fatal(err)
	}

	if v1 != "cached" || v2 != "cached" {
		t.Fatalf("got %q, %q; want %q", v1, v2, "cached")
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("fn called %d times, want 1", n)
	}
}

func TestDoConcurrentCoalescing(t *testing.T) {
	ctx := context.Background()
	g := memo.NewGroup[string]()
	var calls atomic.Int32

	const n = 20
	var wg sync.WaitGroup
	wg.Add(n)

	results := make([]string, n)
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = g.Do(ctx, "k", func(context.Context) (string, error) {
				calls.Add(1)
				time.Sleep(50 * time.Millisecond)
				return "deduped", nil
			})
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("goroutine %d: unexpected error: %v", i, errs[i])
		}
		if results[i] != "deduped" {
			t.Fatalf("goroutine %d: got %q, want %q", i, results[i], "deduped")
		}
	}
	if c := calls.Load(); c != 1 {
		t.Fatalf("fn called %d times, want 1", c)
	}
}

func TestDoErrorNotCached(t *testing.T) {
	ctx := context.Background()
	g := memo.NewGroup[string]()
	var calls atomic.Int32
	errBoom := errors.New("boom")

	// First call: error.
	_, err := g.Do(ctx, "k", func(context.Context) (string, error) {
		calls.Add(1)
		return "", errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("got err=%v, want %v", err, errBoom)
	}

	// Second call: success, fn must be invoked again.
	val, err := g.Do(ctx, "k", func(context.Context) (string, error) {
		calls.Add(1)
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "ok" {
		t.Fatalf("got %q, want %q", val, "ok")
	}
	if n := calls.Load(); n != 2 {
		t.Fatalf("fn called %d times, want 2", n)
	}
}

func TestDoFailedRefreshKeepsPriorEntry(t *testing.T) {
	ctx := context.Background()
	g := memo.NewGroup[string]()
	errBoom := errors.New("boom")

	if _, err := g.Do(ctx, "k", func(context.Context) (string, error) {
		return "v1", nil
	}); err != nil {
		t.Fatal(err)
	}

	// Forced refresh fails; the prior entry must survive.
	_, err := g.Do(ctx, "k", func(context.Context) (string, error) {
		return "", errBoom
	}, memo.Bypass())
	if !errors.Is(err, errBoom) {
		t.Fatalf("got err=%v, want %v", err, errBoom)
	}

	val, err := g.Do(ctx, "k", func(context.Context) (string, error) {
		t.Fatal("fn should not run, prior entry is servable")
		return "", nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if val != "v1" {
		t.Fatalf("got %q, want %q", val, "v1")
	}
}

func TestDoTTLExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(0, 0)
	clock := func() time.Time { return now }
	g := memo.NewGroup[string](memo.WithTTL(50*time.Millisecond), memo.WithClock(clock))
	var calls atomic.Int32

	fn := func(context.Context) (string, error) {
		calls.Add(1)
		return fmt.Sprintf("v%d", calls.Load()), nil
	}

	if v, _ := g.Do(ctx, "k", fn); v != "v1" {
		t.Fatalf("got %q, want v1", v)
	}

	// Within the window: served from cache.
	now = now.Add(10 * time.Millisecond)
	if v, _ := g.Do(ctx, "k", fn); v != "v1" {
		t.Fatalf("got %q, want v1", v)
	}

	// Past the window: fresh call.
	now = now.Add(90 * time.Millisecond)
	if v, _ := g.Do(ctx, "k", fn); v != "v2" {
		t.Fatalf("got %q, want v2", v)
	}
	if n := calls.Load(); n != 2 {
		t.Fatalf("fn called %d times, want 2", n)
	}
}

func TestDoNoTTLMeansImmortal(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(0, 0)
	g := memo.NewGroup[string](memo.WithClock(func() time.Time { return now }))
	var calls atomic.Int32

	fn := func(context.Context) (string, error) {
		calls.Add(1)
		return "immortal", nil
	}

	if _, err := g.Do(ctx, "k", fn); err != nil {
		t.Fatal(err)
	}
	now = now.Add(1e9 * time.Second)
	v, err := g.Do(ctx, "k", fn)
	if err != nil {
		t.Fatal(err)
	}
	if v != "immortal" {
		t.Fatalf("got %q, want %q", v, "immortal")
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("fn called %d times, want 1", n)
	}
}

func TestDoCallTTLOverridesGroupTTL(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(0, 0)
	g := memo.NewGroup[string](memo.WithTTL(time.Hour), memo.WithClock(func() time.Time { return now }))
	var calls atomic.Int32

	fn := func(context.Context) (string, error) {
		calls.Add(1)
		return "v", nil
	}

	if _, err := g.Do(ctx, "k", fn); err != nil {
		t.Fatal(err)
	}
	now = now.Add(time.Minute)

	// Group TTL would still serve this; the per-call window is tighter.
	if _, err := g.Do(ctx, "k", fn, memo.WithCallTTL(time.Second)); err != nil {
		t.Fatal(err)
	}
	if n := calls.Load(); n != 2 {
		t.Fatalf("fn called %d times, want 2", n)
	}
}

func TestDoBypassForcesRefreshAndStores(t *testing.T) {
	ctx := context.Background()
	g := memo.NewGroup[string]()
	var calls atomic.Int32

	fn := func(context.Context) (string, error) {
		calls.Add(1)
		return fmt.Sprintf("v%d", calls.Load()), nil
	}

	if v, _ := g.Do(ctx, "k", fn); v != "v1" {
		t.Fatal("first call should populate v1")
	}
	if v, _ := g.Do(ctx, "k", fn, memo.Bypass()); v != "v2" {
		t.Fatal("bypass should invoke fn again")
	}
	// The bypassed result became the cached value.
	v, _ := g.Do(ctx, "k", fn)
	if v != "v2" {
		t.Fatalf("got %q, want v2 from cache", v)
	}
	if n := calls.Load(); n != 2 {
		t.Fatalf("fn called %d times, want 2", n)
	}
}

func TestDoPanicPropagates(t *testing.T) {
	ctx := context.Background()
	g := memo.NewGroup[string]()

	// First call panics.
	func() {
		defer func() {
			r := recover()
			if r == nil {
				t.Fatal("expected panic, got none")
			}
			// singleflight wraps panics; check the string representation.
			if s := fmt.Sprint(r); !strings.Contains(s, "kaboom") {
				t.Fatalf("got panic %v, want it to contain %q", r, "kaboom")
			}
		}()
		g.Do(ctx, "k", func(context.Context) (string, error) {
			panic("kaboom")
		})
	}()

	// Cache should not be poisoned. A subsequent call with the same key succeeds.
	val, err := g.Do(ctx, "k", func(context.Context) (string, error) {
		return "recovered", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "recovered" {
		t.Fatalf("got %q, want %q", val, "recovered")
	}
}

func TestDoNilValueCached(t *testing.T) {
	ctx := context.Background()

	type S struct{ Name string }
	g := memo.NewGroup[*S]()
	var calls atomic.Int32

	fn := func(context.Context) (*S, error) {
		calls.Add(1)
		return nil, nil
	}

	v1, err := g.Do(ctx, "k", fn)
	if err != nil {
		t.Fatal(err)
	}
	v2, err := g.Do(ctx, "k", fn)
	if err != nil {
		t.Fatal(err)
	}

	if v1 != nil || v2 != nil {
		t.Fatalf("got %v, %v; want nil, nil", v1, v2)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("fn called %d times, want 1", n)
	}
}

func TestDoDifferentKeys(t *testing.T) {
	ctx := context.Background()
	g := memo.NewGroup[string]()
	var callsA, callsB atomic.Int32

	va, err := g.Do(ctx, memo.KeyOf(42), func(context.Context) (string, error) {
		callsA.Add(1)
		return "alpha", nil
	})
	if err != nil {
		t.Fatal(err)
	}

	vb, err := g.Do(ctx, memo.KeyOf(43), func(context.Context) (string, error) {
		callsB.Add(1)
		return "beta", nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if va != "alpha" || vb != "beta" {
		t.Fatalf("got %q, %q; want alpha, beta", va, vb)
	}
	if callsA.Load() != 1 || callsB.Load() != 1 {
		t.Fatal("each key's fn should be called exactly once")
	}
}

func TestForget(t *testing.T) {
	ctx := context.Background()
	g := memo.NewGroup[string]()
	var calls atomic.Int32

	fn := func(context.Context) (string, error) {
		calls.Add(1)
		return "v", nil
	}

	if _, err := g.Do(ctx, "k", fn); err != nil {
		t.Fatal(err)
	}
	g.Forget("k")
	if _, err := g.Do(ctx, "k", fn); err != nil {
		t.Fatal(err)
	}
	if n := calls.Load(); n != 2 {
		t.Fatalf("fn called %d times, want 2", n)
	}
	if got := g.Len(); got != 1 {
		t.Fatalf("Len() = %d, want 1", got)
	}
}

func TestMaxEntriesEvictsLRU(t *testing.T) {
	ctx := context.Background()
	var evicted []string
	g := memo.NewGroup[int](
		memo.WithMaxEntries(2),
		memo.WithObserver(observerFunc(func(ev memo.EventData) {
			if ev.Event == memo.EventEvict {
				evicted = append(evicted, ev.Key)
			}
		})),
	)

	load := func(n int) func(context.Context) (int, error) {
		return func(context.Context) (int, error) { return n, nil }
	}

	g.Do(ctx, "a", load(1))
	g.Do(ctx, "b", load(2))
	g.Do(ctx, "a", load(1)) // touch "a" so "b" is now least recent
	g.Do(ctx, "c", load(3))

	if g.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", g.Len())
	}
	if len(evicted) != 1 || evicted[0] != "b" {
		t.Fatalf("evicted %v, want [b]", evicted)
	}

	// Reloading "b" must call fn and push out the then-least-recent "c",
	// while the freshly touched "a" stays cached throughout.
	g.Do(ctx, "a", load(1))
	var reloads atomic.Int32
	g.Do(ctx, "b", func(context.Context) (int, error) {
		reloads.Add(1)
		return 2, nil
	})
	if n := reloads.Load(); n != 1 {
		t.Fatalf("fn called %d times reloading evicted key, want 1", n)
	}
	g.Do(ctx, "a", func(context.Context) (int, error) {
		reloads.Add(1)
		return 1, nil
	})
	if n := reloads.Load(); n != 1 {
		t.Fatalf("fn called %d times in total, want 1: 'a' must still be cached", n)
	}
	if len(evicted) != 2 || evicted[1] != "c" {
		t.Fatalf("evicted %v, want [b c]", evicted)
	}
}

func TestObserverEvents(t *testing.T) {
	ctx := context.Background()
	var events []memo.Event
	g := memo.NewGroup[string](
		memo.WithName("test.group"),
		memo.WithObserver(observerFunc(func(ev memo.EventData) {
			if ev.Group != "test.group" {
				t.Errorf("event group = %q, want test.group", ev.Group)
			}
			events = append(events, ev.Event)
		})),
	)

	fn := func(context.Context) (string, error) { return "v", nil }
	g.Do(ctx, "k", fn)
	g.Do(ctx, "k", fn)

	want := []memo.Event{memo.EventMiss, memo.EventHit}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d", len(events), len(want))
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("event[%d] = %v, want %v", i, events[i], want[i])
		}
	}
}

func TestCheckInsideFlightCountsAsHit(t *testing.T) {
	ctx := context.Background()
	base := time.Now()

	// The scripted clock makes the entry look stale to the pre-flight check
	// and fresh to the check inside the flight, standing in for a concurrent
	// store landing between the two. Serving the stored value without
	// invoking fn must report a hit, not a miss.
	offsets := []time.Duration{0, 2 * time.Second, 500 * time.Millisecond}
	var step int

	var events []memo.Event
	g := memo.NewGroup[int](
		memo.WithTTL(time.Second),
		memo.WithClock(func() time.Time {
			d := offsets[step]
			if step < len(offsets)-1 {
				step++
			}
			return base.Add(d)
		}),
		memo.WithObserver(observerFunc(func(ev memo.EventData) {
			events = append(events, ev.Event)
		})),
	)

	if _, err := g.Do(ctx, "k", func(context.Context) (int, error) { return 1, nil }); err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int32
	v, err := g.Do(ctx, "k", func(context.Context) (int, error) {
		calls.Add(1)
		return 2, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if v != 1 {
		t.Fatalf("Do() = %d, want the stored 1", v)
	}
	if n := calls.Load(); n != 0 {
		t.Fatalf("fn called %d times, want 0", n)
	}

	want := []memo.Event{memo.EventMiss, memo.EventHit}
	if len(events) != len(want) || events[0] != want[0] || events[1] != want[1] {
		t.Fatalf("events = %v, want %v", events, want)
	}
}

type observerFunc func(memo.EventData)

func (f observerFunc) On(ev memo.EventData) { f(ev) }

// ---------------------------------------------------------------------------
// Wrap helpers: the composed wrapper is the SDK-facing surface.
// ---------------------------------------------------------------------------

func TestWrap1EndToEnd(t *testing.T) {
	ctx := context.Background()
	var n atomic.Int32

	double := memo.Wrap1(func(_ context.Context, x int) (int, error) {
		n.Add(1)
		return x * 2, nil
	})

	for i := 0; i < 3; i++ {
		v, err := double(ctx, 5)
		if err != nil {
			t.Fatal(err)
		}
		if v != 10 {
			t.Fatalf("got %d, want 10", v)
		}
	}
	if got := n.Load(); got != 1 {
		t.Fatalf("fn called %d times, want 1", got)
	}

	v, err := double(ctx, 5, memo.Bypass())
	if err != nil {
		t.Fatal(err)
	}
	if v != 10 {
		t.Fatalf("got %d, want 10", v)
	}
	if got := n.Load(); got != 2 {
		t.Fatalf("fn called %d times, want 2", got)
	}
}

func TestWrapOptionOnlyDifferencesShareKey(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32

	wrapped := memo.Wrap1(func(_ context.Context, x int) (int, error) {
		calls.Add(1)
		return x * 2, nil
	})

	if _, err := wrapped(ctx, 42); err != nil {
		t.Fatal(err)
	}
	// Cache-control options never change call identity.
	if _, err := wrapped(ctx, 42, memo.WithCallTTL(time.Hour)); err != nil {
		t.Fatal(err)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("fn called %d times, want 1", n)
	}

	// A different argument is a different request.
	if _, err := wrapped(ctx, 43, memo.WithCallTTL(time.Hour)); err != nil {
		t.Fatal(err)
	}
	if n := calls.Load(); n != 2 {
		t.Fatalf("fn called %d times, want 2", n)
	}
}

func TestWrapIndependentKeySpaces(t *testing.T) {
	ctx := context.Background()
	var aCalls, bCalls atomic.Int32

	fa := memo.Wrap1(func(_ context.Context, x int) (string, error) {
		aCalls.Add(1)
		return "a", nil
	})
	fb := memo.Wrap1(func(_ context.Context, x int) (string, error) {
		bCalls.Add(1)
		return "b", nil
	})

	va, _ := fa(ctx, 1)
	vb, _ := fb(ctx, 1)
	if va != "a" || vb != "b" {
		t.Fatalf("got %q, %q; wrapped functions must not share entries", va, vb)
	}
	if aCalls.Load() != 1 || bCalls.Load() != 1 {
		t.Fatal("each wrapper should call its own fn once")
	}
}

func TestWrap3DistinctArguments(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32

	quote := memo.Wrap3(func(_ context.Context, from, to, amount string) (string, error) {
		calls.Add(1)
		return from + "->" + to + ":" + amount, nil
	})

	v1, _ := quote(ctx, "USDC", "MERA", "100")
	v2, _ := quote(ctx, "USDC", "MERA", "100")
	v3, _ := quote(ctx, "USDC", "MERA", "200")

	if v1 != v2 {
		t.Fatal("identical calls must share the cached value")
	}
	if v3 == v1 {
		t.Fatal("distinct amounts must not share a cached value")
	}
	if n := calls.Load(); n != 2 {
		t.Fatalf("fn called %d times, want 2", n)
	}
}

// ---------------------------------------------------------------------------
// Key derivation.
// ---------------------------------------------------------------------------

func TestKeyOfEquivalence(t *testing.T) {
	if memo.KeyOf(42) != memo.KeyOf(42) {
		t.Fatal("equal arguments must derive equal keys")
	}
	if memo.KeyOf(42) != memo.KeyOf(42, nil) {
		t.Fatal("trailing nil must be dropped from the key")
	}
	if memo.KeyOf(42) == memo.KeyOf(43) {
		t.Fatal("distinct arguments must derive distinct keys")
	}
	if memo.KeyOf("1", "2") == memo.KeyOf("12") {
		t.Fatal("part boundaries must be preserved")
	}
}

func TestKeyOfStructuralEquality(t *testing.T) {
	type req struct {
		Pool    string
		Account string
	}
	a := memo.KeyOf(req{Pool: "usdc", Account: "0x1"})
	b := memo.KeyOf(req{Pool: "usdc", Account: "0x1"})
	c := memo.KeyOf(req{Pool: "usdc", Account: "0x2"})
	if a != b {
		t.Fatal("structurally equal structs must key identically")
	}
	if a == c {
		t.Fatal("structurally different structs must key differently")
	}

	// Map iteration order must not leak into the key.
	m1 := map[string]int{"a": 1, "b": 2, "c": 3}
	m2 := map[string]int{"c": 3, "b": 2, "a": 1}
	for i := 0; i < 32; i++ {
		if memo.KeyOf(m1) != memo.KeyOf(m2) {
			t.Fatal("map key order must not affect the derived key")
		}
	}
}
