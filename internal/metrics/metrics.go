// Package metrics provides Prometheus metrics for the redlist service
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nainya/redlist/pkg/document"
)

// Metrics holds all Prometheus metrics for redlist
type Metrics struct {
	// HTTP request metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// gRPC request metrics
	GrpcRequestsTotal    *prometheus.CounterVec
	GrpcRequestDuration  *prometheus.HistogramVec
	GrpcRequestsInFlight prometheus.Gauge

	// Corpus metrics
	CorpusLoadsTotal       *prometheus.CounterVec
	CorpusLoadDuration     prometheus.Histogram
	CorpusDocumentsTotal   prometheus.Gauge
	CorpusFragmentsTotal   prometheus.Gauge
	CorpusSkippedLines     *prometheus.GaugeVec
	CorpusInferredStatuses prometheus.Gauge

	// Query metrics
	SearchQueriesTotal prometheus.Counter
	SearchMatches      prometheus.Histogram
	SearchResultsTotal prometheus.Counter
	ChatProxyErrors    prometheus.Counter

	// Server metrics
	ServerUptimeSeconds prometheus.GaugeFunc
	ServerStartTime     time.Time
}

// NewMetrics creates all metrics and registers them with reg. Passing nil
// registers with the Prometheus default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	m := &Metrics{
		ServerStartTime: time.Now(),
	}

	// HTTP request metrics
	m.HTTPRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redlist_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "code"},
	)

	m.HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redlist_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	m.HTTPRequestsInFlight = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "redlist_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// gRPC request metrics
	m.GrpcRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redlist_grpc_requests_total",
			Help: "Total number of gRPC requests",
		},
		[]string{"method", "status"},
	)

	m.GrpcRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redlist_grpc_request_duration_seconds",
			Help:    "Duration of gRPC requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	m.GrpcRequestsInFlight = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "redlist_grpc_requests_in_flight",
			Help: "Number of gRPC requests currently being processed",
		},
	)

	// Corpus metrics
	m.CorpusLoadsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redlist_corpus_loads_total",
			Help: "Total number of corpus reads",
		},
		[]string{"status"},
	)

	m.CorpusLoadDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "redlist_corpus_load_duration_seconds",
			Help:    "Duration of corpus reads in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	m.CorpusDocumentsTotal = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "redlist_corpus_documents",
			Help: "Number of documents in the loaded corpus",
		},
	)

	m.CorpusFragmentsTotal = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "redlist_corpus_fragments",
			Help: "Number of fragments accepted from the corpus file",
		},
	)

	m.CorpusSkippedLines = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "redlist_corpus_skipped_lines",
			Help: "Corpus lines skipped on the last load",
		},
		[]string{"reason"},
	)

	m.CorpusInferredStatuses = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "redlist_corpus_inferred_statuses",
			Help: "Documents whose IUCN status was inferred from text",
		},
	)

	// Query metrics
	m.SearchQueriesTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "redlist_search_queries_total",
			Help: "Total number of search queries",
		},
	)

	m.SearchMatches = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "redlist_search_matches",
			Help:    "Number of documents matching a search before pagination",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	m.SearchResultsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "redlist_search_results_total",
			Help: "Total number of search results returned",
		},
	)

	m.ChatProxyErrors = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "redlist_chat_proxy_errors_total",
			Help: "Chat requests that failed to reach the upstream service",
		},
	)

	// Server metrics
	m.ServerUptimeSeconds = factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "redlist_server_uptime_seconds",
			Help: "Server uptime in seconds",
		},
		func() float64 {
			return time.Since(m.ServerStartTime).Seconds()
		},
	)

	return m
}

// RecordHTTPRequest records an HTTP request with its response code
func (m *Metrics) RecordHTTPRequest(method, route, code string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, code).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordGrpcRequest records a gRPC request with its status
func (m *Metrics) RecordGrpcRequest(method string, status string, duration time.Duration) {
	m.GrpcRequestsTotal.WithLabelValues(method, status).Inc()
	m.GrpcRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// ObserveCorpusLoad implements document.LoadObserver
func (m *Metrics) ObserveCorpusLoad(_ string, stats document.Stats, duration time.Duration, err error) {
	m.CorpusLoadDuration.Observe(duration.Seconds())
	if err != nil {
		m.CorpusLoadsTotal.WithLabelValues("error").Inc()
		return
	}

	m.CorpusLoadsTotal.WithLabelValues("success").Inc()
	m.UpdateCorpusStats(stats)
}

// UpdateCorpusStats sets the corpus gauges from one load
func (m *Metrics) UpdateCorpusStats(stats document.Stats) {
	m.CorpusDocumentsTotal.Set(float64(stats.Documents))
	m.CorpusFragmentsTotal.Set(float64(stats.Fragments))
	m.CorpusSkippedLines.WithLabelValues("malformed").Set(float64(stats.Malformed))
	m.CorpusSkippedLines.WithLabelValues("keyless").Set(float64(stats.Keyless))
	m.CorpusInferredStatuses.Set(float64(stats.Inferred))
}

// ObserveSearch implements query.SearchObserver
func (m *Metrics) ObserveSearch(total, returned int, _ time.Duration) {
	m.SearchQueriesTotal.Inc()
	m.SearchMatches.Observe(float64(total))
	m.SearchResultsTotal.Add(float64(returned))
}
