// Package metrics defines the Prometheus collectors for the directory
// service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Tenant cache metrics
	CacheHits       *prometheus.CounterVec
	CacheMisses     *prometheus.CounterVec
	CacheRefreshes  *prometheus.CounterVec
	FacadesActive   prometheus.Gauge

	// Backing store metrics
	StoreErrors *prometheus.CounterVec
}

// New creates and registers the Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orgdir_requests_total",
				Help: "Total number of HTTP requests processed",
			},
			[]string{"method", "path", "status"},
		),

		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "orgdir_request_duration_seconds",
				Help:    "Duration of HTTP request processing",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		CacheHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orgdir_cache_hits_total",
				Help: "Total number of tenant cache hits",
			},
			[]string{"collection"},
		),

		CacheMisses: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orgdir_cache_misses_total",
				Help: "Total number of tenant cache misses",
			},
			[]string{"collection"},
		),

		CacheRefreshes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orgdir_cache_refreshes_total",
				Help: "Total number of full collection refreshes",
			},
			[]string{"collection", "reason"},
		),

		FacadesActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "orgdir_facades_active",
				Help: "Number of tenant facades currently constructed",
			},
		),

		StoreErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orgdir_store_errors_total",
				Help: "Total number of backing store faults",
			},
			[]string{"operation"},
		),
	}
}
