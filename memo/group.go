package memo

import (
	"container/list"
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Group memoizes the results of a function keyed by canonical argument
// strings. It composes two behaviors: concurrent calls for the same key
// share a single in-flight invocation, and successful results are served
// from memory while fresh.
//
// A Group is created once, at wrap time, and lives for the process;
// the zero value is not usable, use NewGroup.
type Group[T any] struct {
	flight singleflight.Group

	mu      sync.RWMutex
	entries map[string]entry[T]
	order   *list.List // LRU order, front is most recent; nil when unbounded
	elems   map[string]*list.Element

	name       string
	ttl        time.Duration
	maxEntries int
	observer   Observer
	now        func() time.Time
}

type entry[T any] struct {
	value    T
	storedAt time.Time
}

// NewGroup creates an empty Group.
func NewGroup[T any](opts ...Option) *Group[T] {
	cfg := config{now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	g := &Group[T]{
		entries:    make(map[string]entry[T]),
		name:       cfg.name,
		ttl:        cfg.ttl,
		maxEntries: cfg.maxEntries,
		observer:   cfg.observer,
		now:        cfg.now,
	}
	if g.maxEntries > 0 {
		g.order = list.New()
		g.elems = make(map[string]*list.Element)
	}
	return g
}

// Do returns the value for key, invoking fn at most once per key across all
// concurrent callers. A fresh cached entry is returned without invoking fn
// at all. On a miss, fn runs on the first caller's context; coalesced
// callers wait for its natural settlement even if their own context is done.
// Errors propagate verbatim to every coalesced caller and are never cached:
// a prior entry survives a failed refresh and stays servable while fresh.
func (g *Group[T]) Do(ctx context.Context, key string, fn func(context.Context) (T, error), opts ...CallOption) (T, error) {
	cc := callConfig{ttl: g.ttl}
	for _, opt := range opts {
		opt(&cc)
	}

	// Fast path: a fresh entry never awaits fn.
	if !cc.bypass {
		if v, ok := g.lookup(key, cc.ttl); ok {
			g.emit(EventHit, key)
			return v, nil
		}
	}

	var stored bool
	val, err, shared := g.flight.Do(key, func() (any, error) {
		// Double-check: a concurrent caller may have stored while we
		// waited on the flight slot.
		if !cc.bypass {
			if v, ok := g.lookup(key, cc.ttl); ok {
				stored = true
				return v, nil
			}
		}

		result, err := fn(ctx)
		if err != nil {
			return result, err
		}

		g.store(key, result)
		return result, nil
	})

	if err != nil {
		var zero T
		return zero, err
	}
	switch {
	case shared:
		g.emit(EventDedup, key)
	case stored:
		// The check inside the flight found a fresh entry; fn never ran.
		g.emit(EventHit, key)
	default:
		g.emit(EventMiss, key)
	}
	return val.(T), nil
}

// Forget drops the cached entry for key and detaches future callers from
// any in-flight call, so the next Do issues a fresh invocation.
func (g *Group[T]) Forget(key string) {
	g.flight.Forget(key)
	g.mu.Lock()
	delete(g.entries, key)
	if g.maxEntries > 0 {
		if el, ok := g.elems[key]; ok {
			g.order.Remove(el)
			delete(g.elems, key)
		}
	}
	g.mu.Unlock()
}

// Len reports the number of cached entries, fresh or not.
func (g *Group[T]) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.entries)
}

func (g *Group[T]) lookup(key string, ttl time.Duration) (T, bool) {
	var zero T
	g.mu.RLock()
	e, ok := g.entries[key]
	g.mu.RUnlock()
	if !ok {
		return zero, false
	}
	// A zero TTL means the entry never expires by age; stale entries are
	// superseded on the next successful call, not deleted here, since a
	// caller with a longer per-call TTL may still be able to use them.
	if ttl > 0 && g.now().Sub(e.storedAt) >= ttl {
		return zero, false
	}
	if g.maxEntries > 0 {
		g.mu.Lock()
		if el, ok := g.elems[key]; ok {
			g.order.MoveToFront(el)
		}
		g.mu.Unlock()
	}
	return e.value, true
}

func (g *Group[T]) store(key string, value T) {
	var evicted []string
	g.mu.Lock()
	g.entries[key] = entry[T]{value: value, storedAt: g.now()}
	if g.maxEntries > 0 {
		if el, ok := g.elems[key]; ok {
			g.order.MoveToFront(el)
		} else {
			g.elems[key] = g.order.PushFront(key)
		}
		for g.order.Len() > g.maxEntries {
			back := g.order.Back()
			old := back.Value.(string)
			g.order.Remove(back)
			delete(g.elems, old)
			delete(g.entries, old)
			evicted = append(evicted, old)
		}
	}
	g.mu.Unlock()
	for _, k := range evicted {
		g.emit(EventEvict, k)
	}
}

func (g *Group[T]) emit(event Event, key string) {
	if g.observer == nil {
		return
	}
	g.observer.On(EventData{
		Event: event,
		Group: g.name,
		Key:   key,
	})
}
