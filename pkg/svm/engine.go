// Package svm implements a support vector solver for one-class problems.
//
// The solver follows the decomposition method used by LIBSVM: sequential
// minimal optimization with second order working set selection, a bounded
// kernel column cache and an optional shrinking heuristic.
//
// References:
// C. Chang and C. Lin (2011). LIBSVM: A library for support vector machines.
// B. Schölkopf et al. (2001). Estimating the support of a high-dimensional distribution.
package svm

import (
	"errors"
	"fmt"
	"math"
)

// Labels returned by Model.Predict.
const (
	InlierLabel  = 1.0
	OutlierLabel = -1.0
)

var (
	// ErrInvalidParameter is returned for options the solver cannot accept.
	ErrInvalidParameter = errors.New("svm: invalid parameter")
	// ErrInvalidInput is returned for empty, ragged or non-finite training data.
	ErrInvalidInput = errors.New("svm: invalid input")
	// ErrNotConverged is returned when the iteration limit is reached.
	ErrNotConverged = errors.New("svm: solver did not converge")
)

// Engine fits a model from a sample matrix and an option mapping.
type Engine interface {
	Train(samples [][]float64, opts Options) (Model, error)
}

// Model is a fitted boundary. Implementations are immutable and safe for
// concurrent use.
type Model interface {
	// Predict returns InlierLabel or OutlierLabel for the sample.
	Predict(sample []float64) float64

	// Decision returns the signed distance to the boundary. Positive values
	// lie inside the boundary.
	Decision(sample []float64) float64

	// Dim returns the number of features the model was trained on.
	Dim() int

	// NumSupportVectors returns the number of support vectors.
	NumSupportVectors() int
}

// DefaultEngine returns the built-in solver.
func DefaultEngine() Engine {
	return &Native{}
}

// params is the validated form of Options.
type params struct {
	kernel    kernelFunc
	nu        float64
	eps       float64
	cacheSize float64
	shrinking bool
}

func parseParams(opts Options, dim int) (params, error) {
	var p params

	if t, ok := opts[OptType]; ok && t != OneClass {
		return p, fmt.Errorf("%w: unsupported problem type %v", ErrInvalidParameter, t)
	}

	kt := RBF
	if v, ok := opts[OptKernelType]; ok {
		k, ok := v.(KernelType)
		if !ok {
			return p, fmt.Errorf("%w: %s must be a KernelType, got %T", ErrInvalidParameter, OptKernelType, v)
		}
		kt = k
	}

	var err error
	if p.nu, err = opts.Float(OptNu, 0.5); err != nil {
		return p, err
	}
	if p.eps, err = opts.Float(OptEpsilon, 1e-3); err != nil {
		return p, err
	}
	if p.cacheSize, err = opts.Float(OptCacheSize, 100); err != nil {
		return p, err
	}
	if p.shrinking, err = opts.Bool(OptShrinking, true); err != nil {
		return p, err
	}

	gamma, err := opts.Float(OptGamma, 0)
	if err != nil {
		return p, err
	}
	degree, err := opts.Int(OptDegree, 3)
	if err != nil {
		return p, err
	}
	coef0, err := opts.Float(OptCoef0, 0)
	if err != nil {
		return p, err
	}

	switch {
	case p.nu <= 0 || p.nu > 1:
		return p, fmt.Errorf("%w: nu must be in (0, 1], got %g", ErrInvalidParameter, p.nu)
	case p.eps <= 0:
		return p, fmt.Errorf("%w: eps must be positive, got %g", ErrInvalidParameter, p.eps)
	case p.cacheSize <= 0:
		return p, fmt.Errorf("%w: cache size must be positive, got %g", ErrInvalidParameter, p.cacheSize)
	case gamma < 0:
		return p, fmt.Errorf("%w: gamma must not be negative, got %g", ErrInvalidParameter, gamma)
	case kt == Polynomial && degree < 1:
		return p, fmt.Errorf("%w: degree must be at least 1, got %d", ErrInvalidParameter, degree)
	case kt < Linear || kt > Sigmoid:
		return p, fmt.Errorf("%w: unknown kernel %s", ErrInvalidParameter, kt)
	}

	if gamma == 0 {
		gamma = 1 / float64(dim)
	}

	p.kernel = kernelFunc{typ: kt, gamma: gamma, degree: degree, coef0: coef0}
	return p, nil
}

func checkSamples(samples [][]float64) (int, error) {
	if len(samples) == 0 {
		return 0, fmt.Errorf("%w: no samples", ErrInvalidInput)
	}

	dim := len(samples[0])
	if dim == 0 {
		return 0, fmt.Errorf("%w: samples have no features", ErrInvalidInput)
	}

	for i, s := range samples {
		if len(s) != dim {
			return 0, fmt.Errorf("%w: sample %d has %d features, want %d", ErrInvalidInput, i, len(s), dim)
		}
		for _, v := range s {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return 0, fmt.Errorf("%w: sample %d has a non-finite feature", ErrInvalidInput, i)
			}
		}
	}
	return dim, nil
}
