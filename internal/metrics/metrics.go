// Package metrics provides Prometheus instrumentation for the service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpInFlight        prometheus.Gauge

	mintRequestsTotal        *prometheus.CounterVec
	fulfillmentsTotal        *prometheus.CounterVec
	fulfillmentDuration      prometheus.Histogram
	pendingRequests          prometheus.Gauge
	unauthorizedFulfillments prometheus.Counter
}

// New creates and registers the service metrics.
func New(service string) *Metrics {
	registry := prometheus.NewRegistry()
	labels := prometheus.Labels{"service": service}

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "Total HTTP requests processed",
			ConstLabels: labels,
		}, []string{"method", "path", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request duration",
			ConstLabels: labels,
			Buckets:     []float64{0.005, 0.025, 0.1, 0.5, 1, 2.5, 10},
		}, []string{"method", "path"}),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "http_requests_in_flight",
			Help:        "HTTP requests currently being served",
			ConstLabels: labels,
		}),
		mintRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "mint_requests_total",
			Help:        "Randomness-backed mint requests by outcome",
			ConstLabels: labels,
		}, []string{"outcome"}),
		fulfillmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "fulfillments_total",
			Help:        "Oracle fulfillment callbacks by outcome",
			ConstLabels: labels,
		}, []string{"outcome"}),
		fulfillmentDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "fulfillment_duration_seconds",
			Help:        "End-to-end fulfillment handling duration",
			ConstLabels: labels,
			Buckets:     []float64{0.01, 0.05, 0.25, 1, 5, 30, 120},
		}),
		pendingRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "pending_mint_requests",
			Help:        "Registered mint requests awaiting fulfillment",
			ConstLabels: labels,
		}),
		unauthorizedFulfillments: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "unauthorized_fulfillments_total",
			Help:        "Fulfillment callbacks rejected for caller mismatch",
			ConstLabels: labels,
		}),
	}

	registry.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.httpInFlight,
		m.mintRequestsTotal,
		m.fulfillmentsTotal,
		m.fulfillmentDuration,
		m.pendingRequests,
		m.unauthorizedFulfillments,
	)

	return m
}

// Handler returns the /metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records a completed HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// IncrementInFlight increments the in-flight request gauge.
func (m *Metrics) IncrementInFlight() { m.httpInFlight.Inc() }

// DecrementInFlight decrements the in-flight request gauge.
func (m *Metrics) DecrementInFlight() { m.httpInFlight.Dec() }

// RecordMintRequest records a mint request outcome ("submitted" or "failed").
func (m *Metrics) RecordMintRequest(outcome string) {
	m.mintRequestsTotal.WithLabelValues(outcome).Inc()
}

// RecordFulfillment records a fulfillment outcome and duration.
func (m *Metrics) RecordFulfillment(outcome string, duration time.Duration) {
	m.fulfillmentsTotal.WithLabelValues(outcome).Inc()
	m.fulfillmentDuration.Observe(duration.Seconds())
}

// RecordUnauthorizedFulfillment counts a rejected fulfillment caller.
func (m *Metrics) RecordUnauthorizedFulfillment() {
	m.unauthorizedFulfillments.Inc()
}

// SetPendingRequests sets the pending-request gauge.
func (m *Metrics) SetPendingRequests(n int) {
	m.pendingRequests.Set(float64(n))
}
