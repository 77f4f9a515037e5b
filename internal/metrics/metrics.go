// Package metrics defines the Prometheus collectors used by the indexer and
// the search service. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the engine.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	DocsIngestedTotal   *prometheus.CounterVec
	StatsPassDuration   prometheus.Histogram
	StatsPassTotal      *prometheus.CounterVec
	IndexDocuments      prometheus.Gauge
	SearchQueriesTotal  *prometheus.CounterVec
	SearchLatency       prometheus.Histogram
	SearchResultsCount  prometheus.Histogram
	CacheHitsTotal      prometheus.Counter
	CacheMissesTotal    prometheus.Counter
}

// New creates the collectors and registers them on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, route, and status.",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "route"},
		),
		DocsIngestedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gogol_documents_ingested_total",
				Help: "Documents seen by the index builder by outcome (created, duplicate, invalid, failed).",
			},
			[]string{"outcome"},
		),
		StatsPassDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "gogol_stats_pass_duration_seconds",
				Help:    "Duration of the tf-idf statistics pass.",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
			},
		),
		StatsPassTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gogol_stats_pass_total",
				Help: "Statistics passes by status (ok, skipped, failed).",
			},
			[]string{"status"},
		),
		IndexDocuments: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gogol_index_documents",
				Help: "Number of documents in the index after the last build.",
			},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gogol_search_queries_total",
				Help: "Search queries by result type (hit, zero_result, error).",
			},
			[]string{"result_type"},
		),
		SearchLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "gogol_search_latency_seconds",
				Help:    "Search latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "gogol_search_results_count",
				Help:    "Number of results returned per search query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gogol_cache_hits_total",
				Help: "Total number of search cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gogol_cache_misses_total",
				Help: "Total number of search cache misses.",
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.DocsIngestedTotal,
		m.StatsPassDuration,
		m.StatsPassTotal,
		m.IndexDocuments,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
	)

	return m
}

// Handler returns the Prometheus scrape handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveIngest(outcome string) {
	if m == nil {
		return
	}
	m.DocsIngestedTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveStatsPass(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.StatsPassTotal.WithLabelValues(status).Inc()
	if status == "ok" {
		m.StatsPassDuration.Observe(elapsed.Seconds())
	}
}

func (m *Metrics) SetIndexDocuments(n int64) {
	if m == nil {
		return
	}
	m.IndexDocuments.Set(float64(n))
}

func (m *Metrics) ObserveSearch(resultType string, results int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	m.SearchLatency.Observe(elapsed.Seconds())
	m.SearchResultsCount.Observe(float64(results))
}

func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.Inc()
		return
	}
	m.CacheMissesTotal.Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
