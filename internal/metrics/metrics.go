// Package metrics provides Prometheus metrics for the twinchat backend.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors of the service.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Chat metrics
	ChatTurnsTotal     *prometheus.CounterVec
	CompletionDuration prometheus.Histogram

	// Conversation store metrics
	StoreOperationsTotal   *prometheus.CounterVec
	StoreOperationDuration *prometheus.HistogramVec

	// Access gate metrics
	PasswordChecksTotal *prometheus.CounterVec
}

// New creates all collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "twinchat_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "twinchat_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "twinchat_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),
		ChatTurnsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "twinchat_chat_turns_total",
				Help: "Total number of chat turns by outcome",
			},
			[]string{"outcome"},
		),
		CompletionDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "twinchat_completion_duration_seconds",
				Help:    "Duration of calls to the completion service in seconds",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 40, 80},
			},
		),
		StoreOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "twinchat_store_operations_total",
				Help: "Total number of conversation store operations",
			},
			[]string{"backend", "operation", "status"},
		),
		StoreOperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "twinchat_store_operation_duration_seconds",
				Help:    "Duration of conversation store operations in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"backend", "operation"},
		),
		PasswordChecksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "twinchat_password_checks_total",
				Help: "Total number of access gate checks by result",
			},
			[]string{"result"},
		),
	}
}

// RecordHTTPRequest records a served HTTP request.
func (m *Metrics) RecordHTTPRequest(route, method, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(route, method, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordTurn records the outcome of a chat turn.
func (m *Metrics) RecordTurn(outcome string) {
	if m == nil {
		return
	}
	m.ChatTurnsTotal.WithLabelValues(outcome).Inc()
}

// RecordCompletion records the latency of a completion call.
func (m *Metrics) RecordCompletion(duration time.Duration) {
	if m == nil {
		return
	}
	m.CompletionDuration.Observe(duration.Seconds())
}

// RecordStoreOperation records a conversation store operation.
func (m *Metrics) RecordStoreOperation(backend, operation, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.StoreOperationsTotal.WithLabelValues(backend, operation, status).Inc()
	m.StoreOperationDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
}

// RecordPasswordCheck records an access gate result.
func (m *Metrics) RecordPasswordCheck(result string) {
	if m == nil {
		return
	}
	m.PasswordChecksTotal.WithLabelValues(result).Inc()
}
