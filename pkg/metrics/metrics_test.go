package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveTrain(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.ObserveTrain(0.5, 12, nil)
	m.ObserveTrain(0.1, 0, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TrainTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TrainFailures))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.SupportVectors))
}

func TestObservePredictions(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.ObservePredictions(10, 3)
	m.ObservePredictions(5, 0)

	assert.Equal(t, 15.0, testutil.ToFloat64(m.Predictions))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Outliers))
}

func TestObserveLatency(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewWithRegistry(registry)

	m.ObserveLatency(0.002)
	m.ObserveLatency(0.004)

	assert.Equal(t, 1, testutil.CollectAndCount(m.PredictionLatency))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveTrain(1, 1, nil)
		m.ObservePredictions(1, 1)
		m.ObserveLatency(1)
	})
}

func TestDuplicateRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	NewWithRegistry(registry)

	assert.Panics(t, func() { NewWithRegistry(registry) })
}
