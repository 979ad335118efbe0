package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// Open-Meteo API call rate. Watch for: error vs success ratio.
	MeteoAPICallsTotal *prometheus.CounterVec

	// Upstream API latency per request. Watch for: p95 > 2s (upstream degradation).
	MeteoAPIDuration *prometheus.HistogramVec

	// Retry attempts for the upstream API. High retries = unstable upstream.
	MeteoAPIRetriesTotal prometheus.Counter

	// Response-cache hits by backend (in_memory, memcached).
	CacheHitsTotal *prometheus.CounterVec

	// Records materialized, labeled by representation (rows, table).
	RecordsMaterializedTotal *prometheus.CounterVec

	// Records discarded by the all-missing filter during cleaning.
	RecordsDroppedTotal prometheus.Counter

	// Pipeline runs by outcome (success, error).
	PipelineRunsTotal *prometheus.CounterVec

	// Archive CSV files by load outcome (loaded, missing, error).
	ArchiveFilesTotal *prometheus.CounterVec

	// Circuit breaker state: 0 closed, 1 open, 2 half-open.
	CircuitBreakerState *prometheus.GaugeVec

	// Circuit breaker transitions by edge.
	CircuitBreakerTransitionsTotal *prometheus.CounterVec

	// Serve-mode HTTP request rate.
	HTTPRequestsTotal *prometheus.CounterVec

	// Serve-mode HTTP request latency per request.
	HTTPRequestDuration *prometheus.HistogramVec

	// Serve-mode requests denied by the rate limiter (429).
	RateLimitDeniedTotal prometheus.Counter
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	MeteoAPICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meteoApiCallsTotal",
			Help: "Total number of Open-Meteo API calls",
		},
		[]string{"status"},
	)
	MeteoAPIDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "meteoApiDurationSeconds",
			Help:    "Open-Meteo API latency in seconds (per request)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"status"},
	)
	MeteoAPIRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "meteoApiRetriesTotal",
			Help: "Total number of retry attempts for Open-Meteo API calls",
		},
	)
	CacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheHitsTotal",
			Help: "Total number of response-cache hits",
		},
		[]string{"cacheType"},
	)
	RecordsMaterializedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recordsMaterializedTotal",
			Help: "Records materialized from hourly responses, by representation",
		},
		[]string{"mode"},
	)
	RecordsDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "recordsDroppedTotal",
			Help: "Records discarded by the all-missing-measurement filter",
		},
	)
	PipelineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipelineRunsTotal",
			Help: "Pipeline executions by outcome",
		},
		[]string{"outcome"},
	)
	ArchiveFilesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archiveFilesTotal",
			Help: "Archive CSV files by load outcome",
		},
		[]string{"outcome"},
	)
	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuitBreakerState",
			Help: "Circuit breaker state: 0 closed, 1 open, 2 half-open",
		},
		[]string{"component"},
	)
	CircuitBreakerTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuitBreakerTransitionsTotal",
			Help: "Circuit breaker state transitions",
		},
		[]string{"component", "from", "to"},
	)
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)

	registry.MustRegister(
		MeteoAPICallsTotal, MeteoAPIDuration, MeteoAPIRetriesTotal,
		CacheHitsTotal,
		RecordsMaterializedTotal, RecordsDroppedTotal, PipelineRunsTotal,
		ArchiveFilesTotal,
		CircuitBreakerState, CircuitBreakerTransitionsTotal,
		HTTPRequestsTotal, HTTPRequestDuration, RateLimitDeniedTotal,
	)
}

// RecordCircuitBreakerTransition records one state change for metrics.
func RecordCircuitBreakerTransition(component, from, to string) {
	CircuitBreakerTransitionsTotal.WithLabelValues(component, from, to).Inc()
}

// SetCircuitBreakerStateGauge sets the numeric breaker state for component.
func SetCircuitBreakerStateGauge(component string, state float64) {
	CircuitBreakerState.WithLabelValues(component).Set(state)
}

// MetricsHandler returns the /metrics handler bound to the private registry.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
