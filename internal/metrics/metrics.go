// Package metrics registers the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goodmeasure_http_requests_total",
			Help: "Total number of HTTP requests handled, by route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "goodmeasure_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds, by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	CatalogCharities = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "goodmeasure_catalog_charities",
			Help: "Number of charities currently loaded in the catalog",
		},
	)

	CatalogReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goodmeasure_catalog_reloads_total",
			Help: "Total number of catalog reloads, by outcome",
		},
		[]string{"outcome"},
	)

	DonationsRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "goodmeasure_donations_recorded_total",
			Help: "Total number of donations recorded through the API",
		},
	)

	CitationsUpgraded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "goodmeasure_citations_upgraded_total",
			Help: "Total number of citations upgraded to deep links during conversion",
		},
	)

	AuthFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goodmeasure_auth_failures_total",
			Help: "Total number of rejected authentication attempts, by reason",
		},
		[]string{"reason"},
	)

	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goodmeasure_store_errors_total",
			Help: "Total number of storage layer errors, by operation",
		},
		[]string{"op"},
	)
)
