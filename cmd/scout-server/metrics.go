package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// serverMetrics tracks upload and pipeline activity. A custom registry
// keeps the scrape output to what the service actually owns.
type serverMetrics struct {
	registry     *prometheus.Registry
	runsTotal    prometheus.Counter
	rowsTotal    prometheus.Counter
	uploadErrors prometheus.Counter
	runDuration  prometheus.Histogram
}

func newServerMetrics() *serverMetrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &serverMetrics{
		registry: registry,
		runsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "scout",
			Name:      "runs_total",
			Help:      "Completed report runs.",
		}),
		rowsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "scout",
			Name:      "metric_rows_total",
			Help:      "Rep-day metric rows produced across all runs.",
		}),
		uploadErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "scout",
			Name:      "upload_errors_total",
			Help:      "Uploads rejected as unusable.",
		}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "scout",
			Name:      "run_duration_seconds",
			Help:      "Wall time per report run, external lookups included.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}
}

func (m *serverMetrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
