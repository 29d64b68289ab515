package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "neowatch"

// Metrics holds the Prometheus collectors for the sync pipeline and the HTTP surface.
type Metrics struct {
	SyncPasses        *prometheus.CounterVec // labels: outcome={success,failure}
	SyncDuration      prometheus.Histogram
	SyncRunning       prometheus.Gauge
	LastSyncTimestamp prometheus.Gauge

	// Per-item counters. labels: kind={object,assessment,comet}
	ItemsProcessed *prometheus.CounterVec
	ItemsFailed    *prometheus.CounterVec

	QueryCache *prometheus.CounterVec // labels: result={hit,miss,error}

	HTTPRequests        *prometheus.CounterVec   // labels: method, route, status
	HTTPRequestDuration *prometheus.HistogramVec // labels: method, route
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.SyncPasses,
		m.SyncDuration,
		m.SyncRunning,
		m.LastSyncTimestamp,
		m.ItemsProcessed,
		m.ItemsFailed,
		m.QueryCache,
		m.HTTPRequests,
		m.HTTPRequestDuration,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics so tests can build as
// many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		SyncPasses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_passes_total",
			Help:      "Completed sync passes by outcome.",
		}, []string{"outcome"}),
		SyncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Wall time of a full sync pass.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		}),
		SyncRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sync_running",
			Help:      "Number of sync passes currently in progress.",
		}),
		LastSyncTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_successful_sync_timestamp_seconds",
			Help:      "Unix time of the last successful sync pass.",
		}),
		ItemsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_items_processed_total",
			Help:      "Items written during sync, by kind.",
		}, []string{"kind"}),
		ItemsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_items_failed_total",
			Help:      "Items that failed to normalize or persist, by kind.",
		}, []string{"kind"}),
		QueryCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_cache_total",
			Help:      "Query cache lookups by result.",
		}, []string{"result"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}
