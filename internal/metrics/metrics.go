package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP Metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestSize     *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Catalog Metrics
	CatalogQueriesTotal  *prometheus.CounterVec
	CatalogQueryDuration *prometheus.HistogramVec

	// Search Metrics
	SearchesTotal      *prometheus.CounterVec
	SearchErrors       *prometheus.CounterVec
	SearchCacheLookups *prometheus.CounterVec
	SearchCacheEntries prometheus.Gauge
	DistanceFallbacks  prometheus.Counter
	LiveSessionsOpen   prometheus.Gauge
}

// New creates all metrics and registers them with the default registry
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates all metrics and registers them with reg.
// Tests pass a fresh prometheus.NewRegistry() so they can build many instances.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint", "status"},
		),

		HTTPRequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 7),
			},
			[]string{"method", "endpoint"},
		),

		HTTPResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 7),
			},
			[]string{"method", "endpoint", "status"},
		),

		CatalogQueriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_queries_total",
				Help: "Total number of catalog queries",
			},
			[]string{"status"},
		),

		CatalogQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "catalog_query_duration_seconds",
				Help:    "Catalog query latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"status"},
		),

		SearchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "searches_total",
				Help: "Total number of completed searches",
			},
			[]string{"result"}, // found, empty, error, cancelled
		),

		SearchErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_errors_total",
				Help: "Total number of failed searches",
			},
			[]string{"error_type"},
		),

		SearchCacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_cache_lookups_total",
				Help: "Result cache lookups by outcome",
			},
			[]string{"result"}, // hit, miss
		),

		SearchCacheEntries: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "search_cache_entries",
				Help: "Number of entries in the result cache",
			},
		),

		DistanceFallbacks: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "distance_haversine_fallbacks_total",
				Help: "Distances computed with the spherical fallback because the ellipsoidal solution did not converge",
			},
		),

		LiveSessionsOpen: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "live_search_sessions_open",
				Help: "Number of open live search WebSocket sessions",
			},
		),
	}
}
