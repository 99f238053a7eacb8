// Package ocsvm implements the One Class SVM anomaly detector.
//
// The detector finds a maximum margin boundary between the training data and
// the origin in kernel space rather than between classes. Samples outside the
// boundary are labeled detectors.Outlier.
package ocsvm

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/hed1ad/goguardml/pkg/dataset"
	"github.com/hed1ad/goguardml/pkg/detectors"
	"github.com/hed1ad/goguardml/pkg/kernels"
	"github.com/hed1ad/goguardml/pkg/metrics"
	"github.com/hed1ad/goguardml/pkg/svm"
)

// Samples per worker below which prediction stays on the calling goroutine.
const parallelThreshold = 512

// OneClassSVM is an unsupervised support vector anomaly detector.
type OneClassSVM struct {
	// Train calls are serialized; predictions read the published model.
	mu    sync.Mutex
	model atomic.Pointer[fitted]

	// Configuration
	nu        float64
	kernel    kernels.Kernel
	shrinking bool
	tolerance float64
	cacheSize float64
	options   svm.Options

	engine  svm.Engine
	logger  zerolog.Logger
	metrics *metrics.Metrics
	workers int
}

// fitted is an immutable trained model handle.
type fitted struct {
	model   svm.Model
	runID   string
	trained time.Time
}

// Option configures a OneClassSVM.
type Option func(*OneClassSVM)

// WithNu sets the upper bound on the fraction of training outliers.
func WithNu(nu float64) Option {
	return func(d *OneClassSVM) {
		d.nu = nu
	}
}

// WithKernel sets the kernel. A nil kernel selects the default RBF kernel.
func WithKernel(k kernels.Kernel) Option {
	return func(d *OneClassSVM) {
		d.kernel = k
	}
}

// WithShrinking toggles the solver shrinking heuristic.
func WithShrinking(shrinking bool) Option {
	return func(d *OneClassSVM) {
		d.shrinking = shrinking
	}
}

// WithTolerance sets the solver stopping criterion.
func WithTolerance(tol float64) Option {
	return func(d *OneClassSVM) {
		d.tolerance = tol
	}
}

// WithCacheSize sets the kernel cache budget in megabytes.
func WithCacheSize(mb float64) Option {
	return func(d *OneClassSVM) {
		d.cacheSize = mb
	}
}

// WithEngine replaces the solver engine.
func WithEngine(e svm.Engine) Option {
	return func(d *OneClassSVM) {
		d.engine = e
	}
}

// WithLogger sets the logger used for training events.
func WithLogger(l zerolog.Logger) Option {
	return func(d *OneClassSVM) {
		d.logger = l
	}
}

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *OneClassSVM) {
		d.metrics = m
	}
}

// WithWorkers sets how many goroutines large predictions fan out to.
func WithWorkers(n int) Option {
	return func(d *OneClassSVM) {
		d.workers = n
	}
}

// New creates a OneClassSVM. It fails with detectors.ErrConfiguration for
// out of range hyperparameters and detectors.ErrEnvironment when no solver
// engine is available.
func New(opts ...Option) (*OneClassSVM, error) {
	d := &OneClassSVM{
		nu:        0.5,
		shrinking: true,
		tolerance: 1e-3,
		cacheSize: 100,
		engine:    svm.DefaultEngine(),
		logger:    log.Logger,
		workers:   runtime.GOMAXPROCS(0),
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.engine == nil {
		return nil, fmt.Errorf("%w: SVM engine is not available", detectors.ErrEnvironment)
	}

	if d.nu < 0 || d.nu > 1 {
		return nil, fmt.Errorf("%w: nu must be between 0 and 1, %g given", detectors.ErrConfiguration, d.nu)
	}

	if d.kernel == nil {
		d.kernel = kernels.DefaultRBF()
	}

	if d.tolerance < 0 {
		return nil, fmt.Errorf("%w: tolerance cannot be less than 0, %g given", detectors.ErrConfiguration, d.tolerance)
	}

	if d.cacheSize <= 0 {
		return nil, fmt.Errorf("%w: cache size must be greater than 0M, %gM given", detectors.ErrConfiguration, d.cacheSize)
	}

	if d.workers < 1 {
		d.workers = 1
	}

	d.options = svm.Options{
		svm.OptType:      svm.OneClass,
		svm.OptNu:        d.nu,
		svm.OptShrinking: d.shrinking,
		svm.OptEpsilon:   d.tolerance,
		svm.OptCacheSize: d.cacheSize,
	}.Merge(d.kernel.Options())

	return d, nil
}

// Kind returns detectors.AnomalyDetector.
func (d *OneClassSVM) Kind() detectors.Kind {
	return detectors.AnomalyDetector
}

// Options returns a copy of the merged solver options.
func (d *OneClassSVM) Options() svm.Options {
	return d.options.Clone()
}

// Kernel returns the configured kernel.
func (d *OneClassSVM) Kernel() kernels.Kernel {
	return d.kernel
}

// Trained reports whether a model is available.
func (d *OneClassSVM) Trained() bool {
	return d.model.Load() != nil
}

// SupportVectors returns the support vector count of the current model, or
// zero when untrained.
func (d *OneClassSVM) SupportVectors() int {
	if f := d.model.Load(); f != nil {
		return f.model.NumSupportVectors()
	}
	return 0
}

// LastRun returns the id and start time of the training run that produced
// the current model.
func (d *OneClassSVM) LastRun() (string, time.Time, bool) {
	f := d.model.Load()
	if f == nil {
		return "", time.Time{}, false
	}
	return f.runID, f.trained, true
}

// Train fits the detector to ds. The dataset must be continuous. On failure
// the previously trained model, if any, stays in place.
func (d *OneClassSVM) Train(ds *dataset.Dataset) error {
	if err := detectors.RequireContinuous(ds); err != nil {
		d.metrics.ObserveTrain(0, 0, err)
		return err
	}

	samples, err := ds.Float64s()
	if err != nil {
		return fmt.Errorf("%w: %w", detectors.ErrValidation, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	runID := uuid.NewString()
	logger := d.logger.With().Str("run_id", runID).Logger()

	logger.Debug().
		Int("samples", ds.NumRows()).
		Int("features", ds.NumColumns()).
		Float64("nu", d.nu).
		Str("kernel", fmt.Sprint(d.kernel)).
		Msg("Training one class SVM")

	start := time.Now()
	model, err := d.engine.Train(samples, d.options.Clone())
	elapsed := time.Since(start)

	if err != nil {
		d.metrics.ObserveTrain(elapsed.Seconds(), 0, err)
		logger.Warn().Err(err).Dur("elapsed", elapsed).Msg("Training failed, keeping previous model")
		return fmt.Errorf("%w: %w", detectors.ErrTraining, err)
	}

	d.model.Store(&fitted{model: model, runID: runID, trained: start})
	d.metrics.ObserveTrain(elapsed.Seconds(), model.NumSupportVectors(), nil)

	logger.Info().
		Int("support_vectors", model.NumSupportVectors()).
		Dur("elapsed", elapsed).
		Msg("Training complete")

	return nil
}

// Predict labels each sample as detectors.Inlier or detectors.Outlier.
func (d *OneClassSVM) Predict(ds *dataset.Dataset) ([]detectors.Label, error) {
	f, samples, err := d.prepare(ds)
	if err != nil {
		return nil, err
	}

	labels := make([]detectors.Label, len(samples))
	d.forEach(len(samples), func(i int) {
		if f.model.Predict(samples[i]) == svm.InlierLabel {
			labels[i] = detectors.Inlier
		} else {
			labels[i] = detectors.Outlier
		}
	})
	d.observe(labels)

	return labels, nil
}

// ScoreAndPredict scores and labels ds with one model snapshot. A sample is
// an inlier when its score is positive.
func (d *OneClassSVM) ScoreAndPredict(ds *dataset.Dataset) ([]float64, []detectors.Label, error) {
	f, samples, err := d.prepare(ds)
	if err != nil {
		return nil, nil, err
	}

	scores := make([]float64, len(samples))
	labels := make([]detectors.Label, len(samples))
	d.forEach(len(samples), func(i int) {
		scores[i] = f.model.Decision(samples[i])
		if scores[i] > 0 {
			labels[i] = detectors.Inlier
		} else {
			labels[i] = detectors.Outlier
		}
	})
	d.observe(labels)

	return scores, labels, nil
}

func (d *OneClassSVM) observe(labels []detectors.Label) {
	outliers := 0
	for _, l := range labels {
		if l == detectors.Outlier {
			outliers++
		}
	}
	d.metrics.ObservePredictions(len(labels), outliers)
}

// Score returns the signed distance of each sample to the boundary.
// Positive values lie inside it.
func (d *OneClassSVM) Score(ds *dataset.Dataset) ([]float64, error) {
	f, samples, err := d.prepare(ds)
	if err != nil {
		return nil, err
	}

	scores := make([]float64, len(samples))
	d.forEach(len(samples), func(i int) {
		scores[i] = f.model.Decision(samples[i])
	})
	return scores, nil
}

func (d *OneClassSVM) prepare(ds *dataset.Dataset) (*fitted, [][]float64, error) {
	if ds.HasType(dataset.Categorical) {
		return nil, nil, fmt.Errorf("%w: this estimator only works with continuous features", detectors.ErrValidation)
	}

	f := d.model.Load()
	if f == nil {
		return nil, nil, fmt.Errorf("%w: estimator has not been trained", detectors.ErrNotTrained)
	}

	if !ds.Empty() && ds.NumColumns() != f.model.Dim() {
		return nil, nil, fmt.Errorf("%w: estimator expects %d features, %d given",
			detectors.ErrValidation, f.model.Dim(), ds.NumColumns())
	}

	samples, err := ds.Float64s()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", detectors.ErrValidation, err)
	}
	return f, samples, nil
}

// forEach calls fn for every index, fanning out when the batch is large.
// fn must only write to its own index.
func (d *OneClassSVM) forEach(n int, fn func(i int)) {
	if d.workers == 1 || n < 2*parallelThreshold {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	chunk := (n + d.workers - 1) / d.workers
	if chunk < parallelThreshold {
		chunk = parallelThreshold
	}

	var g errgroup.Group
	g.SetLimit(d.workers)
	for start := 0; start < n; start += chunk {
		start, end := start, min(start+chunk, n)
		g.Go(func() error {
			for i := start; i < end; i++ {
				fn(i)
			}
			return nil
		})
	}
	_ = g.Wait()
}
