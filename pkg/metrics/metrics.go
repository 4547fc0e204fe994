// Package metrics defines the Prometheus collectors for the anagram service
// and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "anagram"

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	RPCRequestsTotal     *prometheus.CounterVec
	SolveRequestsTotal   *prometheus.CounterVec
	SolveDuration        prometheus.Histogram
	SolveResultsCount    prometheus.Histogram
	SearchNodes          prometheus.Histogram
	MemoHitsTotal        prometheus.Counter
	TruncationsTotal     *prometheus.CounterVec
	PoolInFlight         prometheus.Gauge
	PoolWaiting          prometheus.Gauge
	DictionaryWords      prometheus.Gauge
	DictionaryVersion    prometheus.Gauge
	DictionaryReloads    *prometheus.CounterVec
	AnalyticsDropped     prometheus.Counter
	CircuitBreakerState  *prometheus.GaugeVec

	gatherer prometheus.Gatherer
}

// New registers all collectors on the default Prometheus registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

// NewWithRegistry registers all collectors on reg. Tests pass a fresh
// prometheus.NewRegistry() for both arguments.
func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		RPCRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rpc_requests_total",
				Help:      "Total RPC calls by method and status (ok, error).",
			},
			[]string{"method", "status"},
		),
		SolveRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "solve_requests_total",
				Help:      "Decomposition requests by outcome (ok, truncated, no_results, invalid_encoding, rejected).",
			},
			[]string{"outcome"},
		),
		SolveDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "solve_duration_seconds",
				Help:      "Time spent in the decomposition engine.",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
		),
		SolveResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "solve_results_count",
				Help:      "Number of decompositions returned per request.",
				Buckets:   []float64{0, 1, 5, 10, 50, 100, 250, 500, 1000},
			},
		),
		SearchNodes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_nodes",
				Help:      "Search nodes expanded per request.",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 12),
			},
		),
		MemoHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "memo_hits_total",
				Help:      "Total memo table hits across all searches.",
			},
		),
		TruncationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "truncations_total",
				Help:      "Searches cut short, by the bound that stopped them.",
			},
			[]string{"reason"},
		),
		PoolInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "pool_in_flight",
				Help:      "Searches currently holding a worker slot.",
			},
		),
		PoolWaiting: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "pool_waiting",
				Help:      "Requests queued for a worker slot.",
			},
		),
		DictionaryWords: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "dictionary_words",
				Help:      "Words in the dictionary currently serving requests.",
			},
		),
		DictionaryVersion: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "dictionary_version",
				Help:      "Generation number of the serving dictionary.",
			},
		),
		DictionaryReloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dictionary_reloads_total",
				Help:      "Dictionary reload attempts by status.",
			},
			[]string{"status"},
		),
		AnalyticsDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "analytics_events_dropped_total",
				Help:      "Solve events dropped because the buffer was full.",
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
		gatherer: gatherer,
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.RPCRequestsTotal,
		m.SolveRequestsTotal,
		m.SolveDuration,
		m.SolveResultsCount,
		m.SearchNodes,
		m.MemoHitsTotal,
		m.TruncationsTotal,
		m.PoolInFlight,
		m.PoolWaiting,
		m.DictionaryWords,
		m.DictionaryVersion,
		m.DictionaryReloads,
		m.AnalyticsDropped,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the Prometheus scrape handler for the registry m was
// created with.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
