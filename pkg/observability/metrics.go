// Package observability provides Prometheus metrics, OpenTelemetry tracing
// and HTTP middleware for monitoring the crawlrouter gateway.
package observability

import "github.com/prometheus/client_golang/prometheus"

// ProviderBuckets defines histogram buckets suited for search and scrape
// provider latencies, ranging from 50ms to 5 minutes. Batch scrapes that
// poll a job sit at the upper end.
var ProviderBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120, 300}

var (
	// RequestsTotal counts HTTP requests by status code, method and kind.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawlrouter_requests_total",
			Help: "Total requests",
		},
		[]string{"code", "method", "kind"},
	)

	// RequestDuration records HTTP request duration in seconds by method and kind.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crawlrouter_request_duration_seconds",
			Help:    "Request duration",
			Buckets: ProviderBuckets,
		},
		[]string{"method", "kind"},
	)

	// BackendRequestsTotal counts executed backend definitions by outcome.
	BackendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawlrouter_backend_requests_total",
			Help: "Backend executions",
		},
		[]string{"kind", "backend", "status"},
	)

	// BackendLatency records the end-to-end latency of one backend
	// execution, including polling.
	BackendLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crawlrouter_backend_latency_seconds",
			Help:    "Backend latency",
			Buckets: ProviderBuckets,
		},
		[]string{"kind", "backend"},
	)

	// ProviderCallsTotal counts single outbound HTTP calls by method and
	// status class ("2xx", "5xx", or "error" for transport failures).
	ProviderCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawlrouter_provider_calls_total",
			Help: "Outbound provider calls",
		},
		[]string{"method", "status"},
	)

	// PollAttemptsTotal counts status checks of asynchronous jobs by result
	// ("pending", "completed", "timeout", "error").
	PollAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawlrouter_poll_attempts_total",
			Help: "Job status checks",
		},
		[]string{"result"},
	)

	// ActivePolls tracks the number of jobs currently being polled.
	ActivePolls = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "crawlrouter_polls_active",
			Help: "Jobs being polled",
		},
	)

	// BackendSelectionsTotal counts backend choices made by the rotation.
	BackendSelectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawlrouter_backend_selections_total",
			Help: "Backend selections",
		},
		[]string{"kind", "backend"},
	)

	// RateLimitRejectedTotal counts requests rejected by the rate limiter.
	RateLimitRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawlrouter_ratelimit_rejected_total",
			Help: "Rate limit rejections",
		},
		[]string{"tier"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		BackendRequestsTotal,
		BackendLatency,
		ProviderCallsTotal,
		PollAttemptsTotal,
		ActivePolls,
		BackendSelectionsTotal,
		RateLimitRejectedTotal,
	)
}
