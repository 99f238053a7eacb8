// Package perf measures how long an estimator takes to label one sample.
package perf

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/stat"

	"github.com/hed1ad/goguardml/pkg/dataset"
	"github.com/hed1ad/goguardml/pkg/detectors"
	"github.com/hed1ad/goguardml/pkg/metrics"
)

// Defaults for New.
const (
	DefaultBudget    = 300 * time.Millisecond
	DefaultPrecision = 5
)

// Report is the outcome of a harness run.
type Report struct {
	Average time.Duration `json:"average" yaml:"average"`
	Samples int           `json:"samples" yaml:"samples"`
	Budget  time.Duration `json:"budget" yaml:"budget"`
	Pass    bool          `json:"pass" yaml:"pass"`
}

func (r Report) String() string {
	verdict := "FAIL"
	if r.Pass {
		verdict = "PASS"
	}
	return fmt.Sprintf("Predictions took %gs on average - %s", r.Average.Seconds(), verdict)
}

// Harness predicts samples one at a time and checks the mean latency against
// a budget.
type Harness struct {
	budget    time.Duration
	precision int
	logger    zerolog.Logger
	metrics   *metrics.Metrics
}

// Option configures a Harness.
type Option func(*Harness)

// WithPrecision sets the number of decimals latencies are rounded to, in
// seconds.
func WithPrecision(p int) Option {
	return func(h *Harness) {
		h.precision = p
	}
}

// WithLogger sets the logger the result is reported to.
func WithLogger(l zerolog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// WithMetrics records every latency in the prediction latency histogram.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Harness) {
		h.metrics = m
	}
}

// New creates a harness that passes when the mean latency is at most budget.
// A zero budget selects DefaultBudget.
func New(budget time.Duration, opts ...Option) (*Harness, error) {
	if budget == 0 {
		budget = DefaultBudget
	}

	h := &Harness{
		budget:    budget,
		precision: DefaultPrecision,
		logger:    log.Logger,
	}

	for _, opt := range opts {
		opt(h)
	}

	if h.budget < 0 {
		return nil, fmt.Errorf("%w: budget must be positive, %s given", detectors.ErrConfiguration, h.budget)
	}
	if h.precision < 0 {
		return nil, fmt.Errorf("%w: precision cannot be negative, %d given", detectors.ErrConfiguration, h.precision)
	}

	return h, nil
}

// Budget returns the latency budget.
func (h *Harness) Budget() time.Duration {
	return h.budget
}

// Run predicts every sample of ds on its own and reports the rounded mean
// latency. It stops early when ctx is done.
func (h *Harness) Run(ctx context.Context, e detectors.Estimator, ds *dataset.Dataset) (Report, error) {
	if ds.Empty() {
		return Report{}, fmt.Errorf("%w: no samples to time", detectors.ErrValidation)
	}

	speeds := make([]float64, 0, ds.NumRows())
	for i := 0; i < ds.NumRows(); i++ {
		if err := ctx.Err(); err != nil {
			return Report{}, err
		}

		sample := ds.Row(i)
		start := time.Now()
		if _, err := e.Predict(sample); err != nil {
			return Report{}, fmt.Errorf("sample %d: %w", i, err)
		}
		elapsed := time.Since(start).Seconds()

		h.metrics.ObserveLatency(elapsed)
		speeds = append(speeds, scalar.Round(elapsed, h.precision))
	}

	average := scalar.Round(stat.Mean(speeds, nil), h.precision)
	report := Report{
		Average: time.Duration(average * float64(time.Second)),
		Samples: len(speeds),
		Budget:  h.budget,
		Pass:    average <= h.budget.Seconds(),
	}

	event := h.logger.Info()
	if !report.Pass {
		event = h.logger.Warn()
	}
	event.
		Dur("average", report.Average).
		Dur("budget", h.budget).
		Int("samples", report.Samples).
		Bool("pass", report.Pass).
		Msg(report.String())

	return report, nil
}
