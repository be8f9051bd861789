package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Lookups by resulting state (hit, hit_stale_refreshable, miss, expired, disabled)
	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "table_cache_requests_total",
			Help: "Total number of cache lookups by resulting state",
		},
		[]string{"state"},
	)

	CacheMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "table_cache_mutations_total",
			Help: "Total number of cache mutations by operation",
		},
		[]string{"operation"}, // set, invalidate, clear, evict, configure
	)

	PersistenceWrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "table_cache_persistence_writes_total",
			Help: "Total number of successful store snapshots written to storage",
		},
	)

	PersistenceErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "table_cache_persistence_errors_total",
			Help: "Total number of persistence failures by kind",
		},
		[]string{"kind"}, // encode, decode, read, write
	)

	BackgroundRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "table_cache_background_refreshes_total",
			Help: "Total number of background refreshes by outcome",
		},
		[]string{"outcome"}, // success, failure
	)

	UpstreamFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "table_cache_upstream_fetch_duration_seconds",
			Help:    "Duration of upstream table page fetches",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"entity"},
	)

	CacheKeys = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "table_cache_keys",
			Help: "Number of live (non-expired) keys in the cache",
		},
	)

	CacheBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "table_cache_size_bytes",
			Help: "Serialized size of live cache values in bytes",
		},
	)
)

// RecordCacheRequest records a lookup outcome
func RecordCacheRequest(state string) {
	CacheRequests.WithLabelValues(state).Inc()
}

// RecordMutation records a store mutation
func RecordMutation(operation string) {
	CacheMutations.WithLabelValues(operation).Inc()
}

// RecordPersistenceWrite records a successful snapshot write
func RecordPersistenceWrite() {
	PersistenceWrites.Inc()
}

// RecordPersistenceError records a persistence failure of the given kind
func RecordPersistenceError(kind string) {
	PersistenceErrors.WithLabelValues(kind).Inc()
}

// RecordBackgroundRefresh records the outcome of a background refresh
func RecordBackgroundRefresh(success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	BackgroundRefreshes.WithLabelValues(outcome).Inc()
}

// UpdateCacheSize sets the live key count and byte size gauges
func UpdateCacheSize(keys int, bytes int64) {
	CacheKeys.Set(float64(keys))
	CacheBytes.Set(float64(bytes))
}

// TimeUpstreamFetch returns a timer function for measuring an upstream fetch
func TimeUpstreamFetch(entity string) func() {
	timer := prometheus.NewTimer(UpstreamFetchDuration.WithLabelValues(entity))
	return func() {
		timer.ObserveDuration()
	}
}
