package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Search outcomes recorded by cardex_search_requests_total. A canceled
// search was abandoned by its caller, e.g. superseded on a search session.
const (
	OutcomeOK       = "ok"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
	OutcomeCanceled = "canceled"
)

// Metrics holds the collectors of one server. Each server owns its own
// registry so several servers can live in one process.
type Metrics struct {
	registry *prometheus.Registry

	SearchRequests *prometheus.CounterVec
	SearchDuration prometheus.Histogram
	SearchResults  prometheus.Histogram
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SearchRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cardex_search_requests_total",
				Help: "Total number of search requests by outcome",
			},
			[]string{"outcome"},
		),
		SearchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cardex_search_duration_seconds",
				Help:    "Duration of search requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		SearchResults: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cardex_search_results",
				Help:    "Number of profiles returned per successful search",
				Buckets: []float64{0, 1, 5, 10, 20, 50, 100},
			},
		),
	}
	m.registry.MustRegister(
		m.SearchRequests,
		m.SearchDuration,
		m.SearchResults,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// observe records the outcome of one search.
func (m *Metrics) observe(outcome string, results int) {
	m.SearchRequests.WithLabelValues(outcome).Inc()
	if outcome == OutcomeOK {
		m.SearchResults.Observe(float64(results))
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
