// Package metrics registers the Prometheus collectors of the API.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequests counts handled requests.
	// Labels: method, route, status
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "atas",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "atas",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Imports counts drafts parsed into the structured document.
	// Labels: source (draft, preview, cli)
	Imports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "atas",
			Subsystem: "minutes",
			Name:      "imports_total",
			Help:      "Total number of draft imports",
		},
		[]string{"source"},
	)

	// UnclassifiedLines observes lines per import that no rule classified.
	UnclassifiedLines = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "atas",
			Subsystem: "minutes",
			Name:      "import_unclassified_lines",
			Help:      "Lines per import that matched no classification rule",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50},
		},
	)

	// Exports counts rendered documents.
	// Labels: format, cache (hit, miss)
	Exports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "atas",
			Subsystem: "export",
			Name:      "documents_total",
			Help:      "Total number of rendered minutes documents",
		},
		[]string{"format", "cache"},
	)

	// Processing counts pipeline runs.
	// Labels: provider, outcome (generated, fallback, failed)
	Processing = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "atas",
			Subsystem: "processing",
			Name:      "runs_total",
			Help:      "Total number of minutes processing runs",
		},
		[]string{"provider", "outcome"},
	)

	ProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "atas",
			Subsystem: "processing",
			Name:      "duration_seconds",
			Help:      "Duration of minutes processing runs in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
