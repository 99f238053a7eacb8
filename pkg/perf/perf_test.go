package perf

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hed1ad/goguardml/pkg/dataset"
	"github.com/hed1ad/goguardml/pkg/detectors"
	"github.com/hed1ad/goguardml/pkg/metrics"
)

type sleeper struct {
	delay time.Duration
	calls int
	rows  []int
	err   error
}

func (s *sleeper) Kind() detectors.Kind { return detectors.AnomalyDetector }

func (s *sleeper) Predict(ds *dataset.Dataset) ([]detectors.Label, error) {
	s.calls++
	s.rows = append(s.rows, ds.NumRows())
	if s.err != nil {
		return nil, s.err
	}
	time.Sleep(s.delay)
	return make([]detectors.Label, ds.NumRows()), nil
}

func samples(t *testing.T, n int) *dataset.Dataset {
	t.Helper()
	data := make([][]float64, n)
	for i := range data {
		data[i] = []float64{float64(i), 1}
	}
	ds, err := dataset.FromFloat64s(data)
	require.NoError(t, err)
	return ds
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		budget  time.Duration
		opts    []Option
		want    time.Duration
		wantErr error
	}{
		{name: "default budget", budget: 0, want: DefaultBudget},
		{name: "custom budget", budget: time.Second, want: time.Second},
		{name: "negative budget", budget: -time.Second, wantErr: detectors.ErrConfiguration},
		{name: "negative precision", budget: time.Second, opts: []Option{WithPrecision(-1)}, wantErr: detectors.ErrConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := New(tt.budget, tt.opts...)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, h.Budget())
			assert.Equal(t, DefaultPrecision, h.precision)
		})
	}
}

func TestRunPass(t *testing.T) {
	h, err := New(time.Second, WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	est := &sleeper{}
	report, err := h.Run(context.Background(), est, samples(t, 20))
	require.NoError(t, err)

	assert.True(t, report.Pass)
	assert.Equal(t, 20, report.Samples)
	assert.Equal(t, time.Second, report.Budget)
	assert.Equal(t, 20, est.calls)
	for _, rows := range est.rows {
		assert.Equal(t, 1, rows, "samples are timed one at a time")
	}
}

func TestRunFail(t *testing.T) {
	var buf bytes.Buffer
	h, err := New(time.Microsecond, WithLogger(zerolog.New(&buf)))
	require.NoError(t, err)

	report, err := h.Run(context.Background(), &sleeper{delay: 2 * time.Millisecond}, samples(t, 3))
	require.NoError(t, err)

	assert.False(t, report.Pass)
	assert.GreaterOrEqual(t, report.Average, 1900*time.Microsecond)
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), "FAIL")
}

func TestRunPrecision(t *testing.T) {
	h, err := New(time.Second, WithPrecision(0), WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	report, err := h.Run(context.Background(), &sleeper{delay: time.Millisecond}, samples(t, 2))
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), report.Average, "sub-second latencies round to zero")
	assert.True(t, report.Pass)
}

func TestRunRoundsToPrecision(t *testing.T) {
	h, err := New(time.Second, WithPrecision(3), WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	report, err := h.Run(context.Background(), &sleeper{delay: 1500 * time.Microsecond}, samples(t, 4))
	require.NoError(t, err)

	ms := report.Average.Seconds() * 1000
	assert.InDelta(t, math.Round(ms), ms, 1e-6, "average is rounded to whole milliseconds")
	assert.GreaterOrEqual(t, ms, 1.0)
}

func TestRunErrors(t *testing.T) {
	h, err := New(0, WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	t.Run("empty dataset", func(t *testing.T) {
		empty, err := dataset.FromFloat64s(nil)
		require.NoError(t, err)
		_, err = h.Run(context.Background(), &sleeper{}, empty)
		assert.ErrorIs(t, err, detectors.ErrValidation)
	})

	t.Run("estimator error", func(t *testing.T) {
		est := &sleeper{err: detectors.ErrNotTrained}
		_, err := h.Run(context.Background(), est, samples(t, 5))
		assert.ErrorIs(t, err, detectors.ErrNotTrained)
		assert.Equal(t, 1, est.calls)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		est := &sleeper{}
		_, err := h.Run(ctx, est, samples(t, 5))
		assert.True(t, errors.Is(err, context.Canceled))
		assert.Zero(t, est.calls)
	})
}

func TestRunMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	h, err := New(time.Second, WithMetrics(metrics.NewWithRegistry(reg)), WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	_, err = h.Run(context.Background(), &sleeper{}, samples(t, 7))
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)

	var count uint64
	for _, mf := range families {
		if mf.GetName() == "goguardml_prediction_latency_seconds" {
			count = mf.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	assert.Equal(t, uint64(7), count)
}

func TestReportString(t *testing.T) {
	r := Report{Average: 1500 * time.Microsecond, Pass: true}
	assert.Equal(t, "Predictions took 0.0015s on average - PASS", r.String())
}
