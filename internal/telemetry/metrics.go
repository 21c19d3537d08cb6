package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	CarrierErrors   *prometheus.CounterVec
	Fulfillments    *prometheus.CounterVec
	DeadLetters     *prometheus.CounterVec
}

// NewMetrics creates the service metrics and registers them with reg.
// A nil reg registers with the default Prometheus registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookship_requests_total",
				Help: "Total number of requests by operation, carrier, and status",
			},
			[]string{"operation", "carrier", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bookship_request_duration_seconds",
				Help:    "Request duration in seconds by operation and carrier",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "carrier"},
		),
		CarrierErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookship_carrier_errors_total",
				Help: "Total carrier API errors by carrier and error type",
			},
			[]string{"carrier", "error_type"},
		),
		Fulfillments: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookship_fulfillments_total",
				Help: "Confirmed orders by fulfillment outcome",
			},
			[]string{"outcome"},
		),
		DeadLetters: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookship_dead_letters_total",
				Help: "Swallowed failures recorded for operator follow-up, by stage",
			},
			[]string{"stage"},
		),
	}
}

// RecordRequest records a request metric.
func (m *Metrics) RecordRequest(operation, carrier, status string, duration float64) {
	m.RequestsTotal.WithLabelValues(operation, carrier, status).Inc()
	m.RequestDuration.WithLabelValues(operation, carrier).Observe(duration)
}

// RecordError records a carrier error metric.
func (m *Metrics) RecordError(carrier, errorType string) {
	m.CarrierErrors.WithLabelValues(carrier, errorType).Inc()
}

// RecordFulfillment records the outcome of a confirmed order.
func (m *Metrics) RecordFulfillment(outcome string) {
	m.Fulfillments.WithLabelValues(outcome).Inc()
}

// RecordDeadLetter records a failure handed to the dead-letter sink.
func (m *Metrics) RecordDeadLetter(stage string) {
	m.DeadLetters.WithLabelValues(stage).Inc()
}
