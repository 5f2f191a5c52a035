// Package metrics exports Prometheus metrics for the SDK's memoization
// layer. Attach a Collector to cached clients to observe hit rates per
// wrapped function.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/meridianfi/meridian-go/memo"
)

// Collector implements memo.Observer, counting cache events labeled by
// group name.
type Collector struct {
	Hits      *prometheus.CounterVec
	Misses    *prometheus.CounterVec
	Dedups    *prometheus.CounterVec
	Evictions *prometheus.CounterVec
}

// NewCollector registers counters on the default registry under the given
// namespace.
func NewCollector(namespace string) *Collector {
	return NewCollectorWith(namespace, prometheus.DefaultRegisterer)
}

// NewCollectorWith registers counters on a specific registerer. Primarily
// for tests and applications with private registries.
func NewCollectorWith(namespace string, reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		Hits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Calls served from a fresh cache entry",
		}, []string{"group"}),
		Misses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Calls that invoked the underlying function",
		}, []string{"group"}),
		Dedups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_dedups_total",
			Help:      "Calls that attached to an in-flight invocation",
		}, []string{"group"}),
		Evictions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_evictions_total",
			Help:      "Entries removed by the per-group entry bound",
		}, []string{"group"}),
	}
}

// On records a cache event.
func (c *Collector) On(ev memo.EventData) {
	switch ev.Event {
	case memo.EventHit:
		c.Hits.WithLabelValues(ev.Group).Inc()
	case memo.EventMiss:
		c.Misses.WithLabelValues(ev.Group).Inc()
	case memo.EventDedup:
		c.Dedups.WithLabelValues(ev.Group).Inc()
	case memo.EventEvict:
		c.Evictions.WithLabelValues(ev.Group).Inc()
	}
}

// Noop is an Observer that ignores all events. It lets callers wire an
// observer unconditionally without nil checks.
type Noop struct{}

// On does nothing.
func (Noop) On(memo.EventData) {}
