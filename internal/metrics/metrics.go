// Package metrics exposes Prometheus collectors for searches, loads and
// keep-alive pings.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeOK      = "ok"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

// Metrics groups the collectors on their own registry.
type Metrics struct {
	registry *prometheus.Registry

	Searches      *prometheus.CounterVec
	SearchResults prometheus.Histogram
	DatasetRows   *prometheus.GaugeVec
	RowErrors     prometheus.Gauge
	Reloads       *prometheus.CounterVec
	KeepalivePing *prometheus.CounterVec
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pubsearch_searches_total",
			Help: "Searches served, by outcome.",
		}, []string{"outcome"}),
		SearchResults: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pubsearch_search_results",
			Help:    "Number of citations returned per search.",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		}),
		DatasetRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pubsearch_dataset_rows",
			Help: "Rows in the current dataset, by table.",
		}, []string{"table"}),
		RowErrors: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pubsearch_row_errors",
			Help: "Rows reported by the last load.",
		}),
		Reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pubsearch_reloads_total",
			Help: "Dataset loads, by outcome.",
		}, []string{"outcome"}),
		KeepalivePing: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pubsearch_keepalive_pings_total",
			Help: "Keep-alive visits, by outcome.",
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Searches,
		m.SearchResults,
		m.DatasetRows,
		m.RowErrors,
		m.Reloads,
		m.KeepalivePing,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveSearch records one search.
func (m *Metrics) ObserveSearch(outcome string, results int) {
	if m == nil {
		return
	}
	m.Searches.WithLabelValues(outcome).Inc()
	if outcome == OutcomeOK {
		m.SearchResults.Observe(float64(results))
	}
}

// ObserveLoad records one dataset load. Sizes are only updated on success.
func (m *Metrics) ObserveLoad(outcome string, publications, authors, rowErrors int) {
	if m == nil {
		return
	}
	m.Reloads.WithLabelValues(outcome).Inc()
	if outcome != OutcomeOK {
		return
	}
	m.DatasetRows.WithLabelValues("publications").Set(float64(publications))
	m.DatasetRows.WithLabelValues("authors").Set(float64(authors))
	m.RowErrors.Set(float64(rowErrors))
}

// TrackStreams exports count as the number of open event streams.
func (m *Metrics) TrackStreams(count func() int) {
	if m == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "pubsearch_event_streams",
		Help: "Open Server-Sent Events streams.",
	}, func() float64 { return float64(count()) }))
}

// ObservePing records one keep-alive visit.
func (m *Metrics) ObservePing(outcome string) {
	if m == nil {
		return
	}
	m.KeepalivePing.WithLabelValues(outcome).Inc()
}
