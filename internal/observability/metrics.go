// Package observability wires Prometheus metrics for the cache and the
// signed-URL batch generator.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the application's Prometheus collectors. A nil *Metrics
// is valid everywhere and records nothing, which keeps tests quiet.
type Metrics struct {
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
	cacheErrors        prometheus.Counter
	cacheInvalidations *prometheus.CounterVec
	urlBatchDuration   prometheus.Histogram
	urlBatchFallbacks  prometheus.Counter
}

// New creates and registers the application metrics.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clusterize",
			Name:      "cache_hits_total",
			Help:      "Cache store reads that returned a value.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clusterize",
			Name:      "cache_misses_total",
			Help:      "Cache store reads that found no value.",
		}),
		cacheErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clusterize",
			Name:      "cache_errors_total",
			Help:      "Cache store operations that failed and degraded to a no-op.",
		}),
		cacheInvalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clusterize",
			Name:      "cache_invalidations_total",
			Help:      "Cache invalidations by entity kind.",
		}, []string{"entity"}),
		urlBatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clusterize",
			Name:      "signed_url_batch_duration_seconds",
			Help:      "Wall-clock duration of signed-URL batch generation.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		urlBatchFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clusterize",
			Name:      "signed_url_batch_fallbacks_total",
			Help:      "Signed-URL batches that fell back to sequential generation.",
		}),
	}
	reg.MustRegister(
		m.cacheHits, m.cacheMisses, m.cacheErrors, m.cacheInvalidations,
		m.urlBatchDuration, m.urlBatchFallbacks,
	)
	return m
}

// CacheHit records a cache read that returned a value.
func (m *Metrics) CacheHit() {
	if m != nil {
		m.cacheHits.Inc()
	}
}

// CacheMiss records a cache read that found nothing.
func (m *Metrics) CacheMiss() {
	if m != nil {
		m.cacheMisses.Inc()
	}
}

// CacheError records a degraded cache operation.
func (m *Metrics) CacheError() {
	if m != nil {
		m.cacheErrors.Inc()
	}
}

// CacheInvalidation records an invalidation for the given entity kind.
func (m *Metrics) CacheInvalidation(entity string) {
	if m != nil {
		m.cacheInvalidations.WithLabelValues(entity).Inc()
	}
}

// URLBatchObserved records the duration of one signed-URL batch.
func (m *Metrics) URLBatchObserved(d time.Duration) {
	if m != nil {
		m.urlBatchDuration.Observe(d.Seconds())
	}
}

// URLBatchFallback records a batch that degraded to sequential mode.
func (m *Metrics) URLBatchFallback() {
	if m != nil {
		m.urlBatchFallbacks.Inc()
	}
}
