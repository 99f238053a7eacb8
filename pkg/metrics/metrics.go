// Package metrics provides Prometheus instrumentation for detectors and the
// latency harness.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors shared by detectors.
type Metrics struct {
	TrainTotal        prometheus.Counter   // Completed training runs
	TrainFailures     prometheus.Counter   // Training runs rejected or failed
	TrainDuration     prometheus.Histogram // Solver wall clock per training run
	SupportVectors    prometheus.Gauge     // Support vectors in the current model
	Predictions       prometheus.Counter   // Samples labeled
	Outliers          prometheus.Counter   // Samples labeled as outliers
	PredictionLatency prometheus.Histogram // Latency of single-sample predictions
}

// New registers the metrics with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the metrics with registerer. Tests pass a fresh
// prometheus.NewRegistry() to stay isolated.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		TrainTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "goguardml_train_total",
			Help: "Total number of successful training runs",
		}),
		TrainFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "goguardml_train_failures_total",
			Help: "Total number of failed training runs",
		}),
		TrainDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "goguardml_train_duration_seconds",
			Help:    "Duration of training runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		SupportVectors: factory.NewGauge(prometheus.GaugeOpts{
			Name: "goguardml_support_vectors",
			Help: "Number of support vectors in the current model",
		}),
		Predictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "goguardml_predictions_total",
			Help: "Total number of samples labeled",
		}),
		Outliers: factory.NewCounter(prometheus.CounterOpts{
			Name: "goguardml_outliers_total",
			Help: "Total number of samples labeled as outliers",
		}),
		PredictionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "goguardml_prediction_latency_seconds",
			Help:    "Latency of single-sample predictions in seconds",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 12),
		}),
	}
}

// ObserveTrain records a training outcome.
func (m *Metrics) ObserveTrain(seconds float64, supportVectors int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.TrainFailures.Inc()
		return
	}
	m.TrainTotal.Inc()
	m.TrainDuration.Observe(seconds)
	m.SupportVectors.Set(float64(supportVectors))
}

// ObservePredictions records a batch of labels.
func (m *Metrics) ObservePredictions(total, outliers int) {
	if m == nil {
		return
	}
	m.Predictions.Add(float64(total))
	m.Outliers.Add(float64(outliers))
}

// ObserveLatency records one single-sample prediction latency.
func (m *Metrics) ObserveLatency(seconds float64) {
	if m == nil {
		return
	}
	m.PredictionLatency.Observe(seconds)
}
