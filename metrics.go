package kirimgo

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector provides Prometheus metrics for the exchange lifecycle:
// attempts, retries per reason, forced retries, timeouts, transfer volume
// and the reliability layers. Safe for concurrent use.
type MetricsCollector struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec

	retriesTotal  *prometheus.CounterVec
	timeoutsTotal *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec

	transferredBytes *prometheus.CounterVec

	circuitBreakerState *prometheus.GaugeVec
	rateLimitedTotal    *prometheus.CounterVec
	deduplicationHits   *prometheus.CounterVec
}

// NewMetricsCollector creates a metrics collector on the default registerer.
func NewMetricsCollector() *MetricsCollector {
	return NewMetricsCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWithRegistry creates a collector using the supplied
// registerer.
func NewMetricsCollectorWithRegistry(registry prometheus.Registerer) *MetricsCollector {
	return &MetricsCollector{
		requestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "kirimgo_requests_total",
				Help: "Total number of HTTP exchanges completed",
			},
			[]string{"method", "status_code", "endpoint"},
		),
		requestDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kirimgo_request_duration_seconds",
				Help:    "Duration of HTTP exchanges in seconds, all attempts included",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "status_code", "endpoint"},
		),
		requestsInFlight: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "kirimgo_requests_in_flight",
				Help: "Number of HTTP exchanges currently in flight",
			},
			[]string{"method", "endpoint"},
		),
		retriesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "kirimgo_retries_total",
				Help: "Total number of retry attempts by trigger",
			},
			[]string{"method", "endpoint", "reason"},
		),
		timeoutsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "kirimgo_timeouts_total",
				Help: "Total number of exchanges that exhausted their timeout budget",
			},
			[]string{"method", "endpoint"},
		),
		errorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "kirimgo_errors_total",
				Help: "Total number of errors surfaced to callers",
			},
			[]string{"type", "method", "endpoint"},
		),
		transferredBytes: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "kirimgo_transferred_bytes_total",
				Help: "Total body bytes observed by progress instrumentation",
			},
			[]string{"direction"},
		),
		circuitBreakerState: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "kirimgo_circuit_breaker_state",
				Help: "Current circuit breaker state (0=closed, 1=open, 2=half-open)",
			},
			[]string{"name"},
		),
		rateLimitedTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "kirimgo_rate_limited_total",
				Help: "Total number of exchanges rejected by the client-side rate limiter",
			},
			[]string{"method", "endpoint"},
		),
		deduplicationHits: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "kirimgo_deduplication_hits_total",
				Help: "Total number of exchanges coalesced onto an in-flight duplicate",
			},
			[]string{"method", "endpoint"},
		),
	}
}

// RecordRequest records exchange count and duration.
func (mc *MetricsCollector) RecordRequest(method, endpoint string, statusCode int, duration time.Duration) {
	if mc == nil {
		return
	}
	code := strconv.Itoa(statusCode)
	mc.requestsTotal.WithLabelValues(method, code, endpoint).Inc()
	mc.requestDuration.WithLabelValues(method, code, endpoint).Observe(duration.Seconds())
}

// RecordRequestStart increments the in-flight gauge.
func (mc *MetricsCollector) RecordRequestStart(method, endpoint string) {
	if mc == nil {
		return
	}
	mc.requestsInFlight.WithLabelValues(method, endpoint).Inc()
}

// RecordRequestEnd decrements the in-flight gauge.
func (mc *MetricsCollector) RecordRequestEnd(method, endpoint string) {
	if mc == nil {
		return
	}
	mc.requestsInFlight.WithLabelValues(method, endpoint).Dec()
}

// RecordRetry increments the retry counter for the given trigger
// ("status", "transport", "timeout", "forced" or "predicate").
func (mc *MetricsCollector) RecordRetry(method, endpoint, reason string) {
	if mc == nil {
		return
	}
	mc.retriesTotal.WithLabelValues(method, endpoint, reason).Inc()
}

// RecordTimeout increments the timeout counter.
func (mc *MetricsCollector) RecordTimeout(method, endpoint string) {
	if mc == nil {
		return
	}
	mc.timeoutsTotal.WithLabelValues(method, endpoint).Inc()
}

// RecordError increments the surfaced-error counter.
func (mc *MetricsCollector) RecordError(errorType, method, endpoint string) {
	if mc == nil {
		return
	}
	mc.errorsTotal.WithLabelValues(errorType, method, endpoint).Inc()
}

// AddTransferredBytes accumulates progress-observed volume for a direction
// ("upload" or "download").
func (mc *MetricsCollector) AddTransferredBytes(direction string, n int64) {
	if mc == nil || n <= 0 {
		return
	}
	mc.transferredBytes.WithLabelValues(direction).Add(float64(n))
}

// RecordCircuitBreakerState sets the state gauge.
func (mc *MetricsCollector) RecordCircuitBreakerState(name string, state CircuitState) {
	if mc == nil {
		return
	}
	mc.circuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// RecordRateLimited increments the rate-limit rejection counter.
func (mc *MetricsCollector) RecordRateLimited(method, endpoint string) {
	if mc == nil {
		return
	}
	mc.rateLimitedTotal.WithLabelValues(method, endpoint).Inc()
}

// RecordDeduplicationHit increments the coalesced-exchange counter.
func (mc *MetricsCollector) RecordDeduplicationHit(method, endpoint string) {
	if mc == nil {
		return
	}
	mc.deduplicationHits.WithLabelValues(method, endpoint).Inc()
}
