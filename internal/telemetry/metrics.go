// Package telemetry records request metrics for the catalog service.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "layer_catalog_request_duration_seconds",
		Help:    "Duration of catalog API requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "layer_catalog_requests_total",
		Help: "Number of catalog API requests.",
	}, []string{"method", "endpoint", "status"})

	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "layer_catalog_in_flight_requests",
		Help: "Catalog API requests currently being served.",
	})

	UpstreamFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "layer_catalog_upstream_fetches_total",
		Help: "Capability-document lookups per service and outcome.",
	}, []string{"service", "outcome"})
)

// Outcome labels for UpstreamFetchesTotal.
const (
	OutcomeCacheHit = "cache_hit"
	OutcomeFetched  = "fetched"
	OutcomeError    = "error"
)

// Handler exposes the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
