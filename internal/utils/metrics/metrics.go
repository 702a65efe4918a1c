package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Lifecycle metrics
	TransitionsTotal         *prometheus.CounterVec
	TransitionConflictsTotal *prometheus.CounterVec

	// Refund metrics
	RefundAttemptsTotal    *prometheus.CounterVec
	RefundOutcomesTotal    *prometheus.CounterVec
	RefundDuration         prometheus.Histogram
	RefundAmountCentsTotal prometheus.Counter

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec
}

// New creates a new Metrics instance registered on reg.
// A nil reg registers on the default Prometheus registry.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "storefront"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),

		TransitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "lifecycle",
				Name:      "transitions_total",
				Help:      "Committed status transitions",
			},
			[]string{"entity", "from", "to"},
		),
		TransitionConflictsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "lifecycle",
				Name:      "conflicts_total",
				Help:      "Compare-and-set writes lost to a concurrent writer",
			},
			[]string{"entity"},
		),

		RefundAttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "refund",
				Name:      "attempts_total",
				Help:      "Gateway refund attempts by result",
			},
			[]string{"gateway", "result"}, // result: success, transient, permanent
		),
		RefundOutcomesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "refund",
				Name:      "outcomes_total",
				Help:      "Refund requests by final outcome",
			},
			[]string{"gateway", "outcome"}, // outcome: completed, failed, rejected
		),
		RefundDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "refund",
				Name:      "duration_seconds",
				Help:      "Refund duration including retries",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),
		RefundAmountCentsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "refund",
				Name:      "amount_cents_total",
				Help:      "Total refunded amount in cents",
			},
		),

		CacheHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "hits_total",
				Help:      "Total number of cache hits",
			},
			[]string{"cache"},
		),
		CacheMissesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "misses_total",
				Help:      "Total number of cache misses",
			},
			[]string{"cache"},
		),
	}
}

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusCodeToString(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordTransition records a committed status transition.
func (m *Metrics) RecordTransition(entity, from, to string) {
	if m == nil {
		return
	}
	m.TransitionsTotal.WithLabelValues(entity, from, to).Inc()
}

// RecordConflict records a lost compare-and-set.
func (m *Metrics) RecordConflict(entity string) {
	if m == nil {
		return
	}
	m.TransitionConflictsTotal.WithLabelValues(entity).Inc()
}

// RecordRefundAttempt records a single gateway call.
func (m *Metrics) RecordRefundAttempt(gateway, result string) {
	if m == nil {
		return
	}
	m.RefundAttemptsTotal.WithLabelValues(gateway, result).Inc()
}

// RecordRefundOutcome records the final outcome of a refund request.
func (m *Metrics) RecordRefundOutcome(gateway, outcome string, amount int64, duration time.Duration) {
	if m == nil {
		return
	}
	m.RefundOutcomesTotal.WithLabelValues(gateway, outcome).Inc()
	m.RefundDuration.Observe(duration.Seconds())
	if outcome == "completed" {
		m.RefundAmountCentsTotal.Add(float64(amount))
	}
}

// RecordCacheHit records a cache hit.
func (m *Metrics) RecordCacheHit(cache string) {
	if m == nil {
		return
	}
	m.CacheHitsTotal.WithLabelValues(cache).Inc()
}

// RecordCacheMiss records a cache miss.
func (m *Metrics) RecordCacheMiss(cache string) {
	if m == nil {
		return
	}
	m.CacheMissesTotal.WithLabelValues(cache).Inc()
}

// statusCodeToString converts an HTTP status code to a string category.
func statusCodeToString(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
