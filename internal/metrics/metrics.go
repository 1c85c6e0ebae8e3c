// Package metrics defines the Prometheus collectors the engine and HTTP
// layer record against: HTTP_REQUESTS_TOTAL, HTTP_REQUEST_LATENCY_SECONDS,
// SIGNAL_LATENCY_SECONDS, DECISIONS_TOTAL, CACHE_EVENTS_TOTAL, and
// ENRICHMENT_JOBS_TOTAL. Mounting the /metrics endpoint itself is
// cmd/api's job, via promhttp.HandlerFor over Registry().
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalguard_http_requests_total",
			Help: "HTTP requests by route and status class.",
		},
		[]string{"route", "status"},
	)

	HTTPRequestLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "signalguard_http_request_latency_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	SignalLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "signalguard_signal_latency_seconds",
			Help:    "Per-probe latency observed during analyse().",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2, 5, 8},
		},
		[]string{"probe"},
	)

	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalguard_decisions_total",
			Help: "Decisions emitted by level and action.",
		},
		[]string{"level", "action"},
	)

	CacheEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalguard_cache_events_total",
			Help: "Cache hit/miss/error counts by probe.",
		},
		[]string{"probe", "event"},
	)

	EnrichmentJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalguard_enrichment_jobs_total",
			Help: "Background enrichment jobs by terminal status.",
		},
		[]string{"status"},
	)

	ProbeFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalguard_probe_failures_total",
			Help: "Probe failures by probe name.",
		},
		[]string{"probe"},
	)
)

// Registry bundles every collector behind one *prometheus.Registry so
// cmd/api can mount it without reaching into package internals.
func Registry() *prometheus.Registry {
	r := prometheus.NewRegistry()
	r.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestLatencySeconds,
		SignalLatencySeconds,
		DecisionsTotal,
		CacheEventsTotal,
		EnrichmentJobsTotal,
		ProbeFailuresTotal,
	)
	return r
}
