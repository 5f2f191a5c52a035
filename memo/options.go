package memo

import "time"

type config struct {
	name       string
	ttl        time.Duration
	maxEntries int
	observer   Observer
	now        func() time.Time
}

// Option configures a Group at construction time.
type Option func(*config)

// WithName labels the group in observer events and metrics.
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

// WithTTL sets the default freshness window for cached entries. Zero (the
// default) means entries never expire by age and are only replaced by a
// newer successful call.
func WithTTL(ttl time.Duration) Option {
	return func(c *config) {
		c.ttl = ttl
	}
}

// WithMaxEntries bounds the cache to n entries, evicting the least recently
// used key when the bound is exceeded. Zero (the default) leaves the cache
// unbounded.
func WithMaxEntries(n int) Option {
	return func(c *config) {
		c.maxEntries = n
	}
}

// WithObserver attaches an Observer that receives hit, miss, dedup and
// eviction events for the lifetime of the group.
func WithObserver(o Observer) Option {
	return func(c *config) {
		c.observer = o
	}
}

// WithClock overrides the time source used for entry timestamps.
// Primarily for tests.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.now = now
		}
	}
}

type callConfig struct {
	ttl    time.Duration
	bypass bool
}

// CallOption adjusts cache behavior for a single call. CallOptions are
// never part of the cache key.
type CallOption func(*callConfig)

// WithCallTTL overrides the group's freshness window for this call only.
// Zero means the entry never expires by age.
func WithCallTTL(ttl time.Duration) CallOption {
	return func(c *callConfig) {
		c.ttl = ttl
	}
}

// Bypass skips any stored value and always performs a fresh call. The fresh
// result still replaces the cached entry for subsequent callers.
func Bypass() CallOption {
	return func(c *callConfig) {
		c.bypass = true
	}
}
