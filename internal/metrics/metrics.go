// Package metrics exposes Prometheus instrumentation for the checkout server.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the checkout server.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Checkout session metrics
	SessionsCreatedTotal *prometheus.CounterVec
	CartLinesTotal       prometheus.Counter

	// Reconciliation metrics
	OrdersRecordedTotal *prometheus.CounterVec
	ReconcileSkipsTotal *prometheus.CounterVec
	ReconcileDuration   *prometheus.HistogramVec

	// Webhook metrics
	WebhooksTotal *prometheus.CounterVec

	// External dependency metrics
	UpstreamCallDuration *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mara_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mara_http_request_duration_seconds",
				Help:    "Time taken to serve HTTP requests",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"method", "path"},
		),
		SessionsCreatedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mara_checkout_sessions_created_total",
				Help: "Total number of checkout session creation attempts",
			},
			[]string{"outcome"},
		),
		CartLinesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "mara_cart_lines_total",
				Help: "Total number of merged cart lines sent to the gateway",
			},
		),
		OrdersRecordedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mara_orders_recorded_total",
				Help: "Total number of confirmed orders written by reconciliation",
			},
			[]string{"source"},
		),
		ReconcileSkipsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mara_reconcile_skips_total",
				Help: "Reconciliation attempts that legitimately recorded nothing",
			},
			[]string{"source", "reason"},
		),
		ReconcileDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mara_reconcile_duration_seconds",
				Help:    "Time taken to reconcile a session into an order",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"source"},
		),
		WebhooksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mara_webhooks_total",
				Help: "Total number of webhook deliveries by event type and outcome",
			},
			[]string{"event_type", "outcome"},
		),
		UpstreamCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mara_upstream_call_duration_seconds",
				Help:    "Duration of calls to external dependencies",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
			},
			[]string{"dependency"},
		),
	}
}

// ObserveReconcile records a reconciliation duration for a source channel.
func (m *Metrics) ObserveReconcile(source string, start time.Time) {
	if m == nil {
		return
	}
	m.ReconcileDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
}

// RecordOrder counts a successful order write.
func (m *Metrics) RecordOrder(source string) {
	if m == nil {
		return
	}
	m.OrdersRecordedTotal.WithLabelValues(source).Inc()
}

// RecordSkip counts a reconciliation attempt that recorded nothing.
func (m *Metrics) RecordSkip(source, reason string) {
	if m == nil {
		return
	}
	m.ReconcileSkipsTotal.WithLabelValues(source, reason).Inc()
}

// RecordWebhook counts a webhook delivery outcome.
func (m *Metrics) RecordWebhook(eventType, outcome string) {
	if m == nil {
		return
	}
	m.WebhooksTotal.WithLabelValues(eventType, outcome).Inc()
}

// RecordSessionCreated counts a session creation attempt outcome.
func (m *Metrics) RecordSessionCreated(outcome string) {
	if m == nil {
		return
	}
	m.SessionsCreatedTotal.WithLabelValues(outcome).Inc()
}
