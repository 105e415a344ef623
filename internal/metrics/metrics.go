// Package metrics provides Prometheus metrics for the behavioral scoring
// service. It covers the prediction pipeline (counts, failures, latency,
// score distributions), the HTTP surface, and model freshness, all exposed
// via the Prometheus metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the scoring service.
type Metrics struct {
	// Prediction pipeline metrics
	Predictions      prometheus.Counter   // Total number of predictions served
	Failures         prometheus.Counter   // Total number of failed predictions
	Latency          prometheus.Histogram // End-to-end prediction latency in seconds
	ConfidenceScores prometheus.Histogram // Distribution of confidence scores (0-100)
	AnomalyScores    prometheus.Histogram // Distribution of reconstruction anomaly scores
	NeutralHistory   prometheus.Counter   // Predictions served without historical patterns
	BatchSizes       prometheus.Histogram // Sizes of batch prediction requests

	// Model metrics
	ModelAge prometheus.Gauge // Age of the loaded model artifact in seconds

	// Transport metrics
	RequestsTotal prometheus.CounterVec // HTTP requests by endpoint and status class
	ActiveStreams prometheus.Gauge      // Open WebSocket scoring sessions

	// Storage metrics
	AuditWrites      prometheus.Counter // Audit records persisted
	AuditWriteErrors prometheus.Counter // Audit records that failed to persist
}

// New creates and registers all metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry, which keeps test
// runs isolated from the global Prometheus state.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		Predictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total number of predictions served",
		}),
		Failures: factory.NewCounter(prometheus.CounterOpts{
			Name: "prediction_failures_total",
			Help: "Total number of failed predictions",
		}),
		Latency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_latency_seconds",
			Help:    "End-to-end prediction latency in seconds",
			Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
		ConfidenceScores: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "confidence_scores",
			Help:    "Distribution of confidence scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),
		AnomalyScores: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "anomaly_scores",
			Help:    "Distribution of reconstruction anomaly scores",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		NeutralHistory: factory.NewCounter(prometheus.CounterOpts{
			Name: "neutral_history_total",
			Help: "Predictions served without historical patterns",
		}),
		BatchSizes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "batch_sizes",
			Help:    "Sizes of batch prediction requests",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
		}),
		ModelAge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "model_age_seconds",
			Help: "Age of the loaded model artifact in seconds",
		}),
		RequestsTotal: *factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by endpoint and status class",
		}, []string{"endpoint", "status"}),
		ActiveStreams: factory.NewGauge(prometheus.GaugeOpts{
			Name: "active_streams",
			Help: "Open WebSocket scoring sessions",
		}),
		AuditWrites: factory.NewCounter(prometheus.CounterOpts{
			Name: "audit_writes_total",
			Help: "Audit records persisted",
		}),
		AuditWriteErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "audit_write_errors_total",
			Help: "Audit records that failed to persist",
		}),
	}
}

// The methods below form the narrow surface consumed by the inference engine,
// so it depends on an interface instead of this package.

func (m *Metrics) PredictionsInc() { m.Predictions.Inc() }

func (m *Metrics) FailuresInc() { m.Failures.Inc() }

func (m *Metrics) LatencyObserve(v float64) { m.Latency.Observe(v) }

func (m *Metrics) ConfidenceObserve(v float64) { m.ConfidenceScores.Observe(v) }

func (m *Metrics) AnomalyObserve(v float64) { m.AnomalyScores.Observe(v) }

func (m *Metrics) NeutralHistoryInc() { m.NeutralHistory.Inc() }

// BatchSizeObserve records the size of one batch request.
func (m *Metrics) BatchSizeObserve(n int) { m.BatchSizes.Observe(float64(n)) }

// RequestInc counts one HTTP request against its endpoint and status class.
func (m *Metrics) RequestInc(endpoint, status string) {
	m.RequestsTotal.WithLabelValues(endpoint, status).Inc()
}
