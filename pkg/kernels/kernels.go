// Package kernels provides kernel configurations for support vector detectors.
//
// A kernel here is pure configuration: it only contributes its entries to the
// solver option mapping. Gamma left unset lets the solver use 1/features.
package kernels

import (
	"fmt"
	"math"

	"github.com/hed1ad/goguardml/pkg/detectors"
	"github.com/hed1ad/goguardml/pkg/svm"
)

// Kernel contributes solver options describing a similarity function.
type Kernel interface {
	// Options returns a fresh option mapping for the kernel.
	Options() svm.Options
}

// Linear is the dot product kernel.
type Linear struct{}

// NewLinear returns a linear kernel.
func NewLinear() *Linear { return &Linear{} }

func (*Linear) Options() svm.Options {
	return svm.Options{svm.OptKernelType: svm.Linear}
}

func (*Linear) String() string { return "linear" }

// Polynomial computes (gamma·⟨x,y⟩ + coef0)^degree.
type Polynomial struct {
	degree int
	gamma  float64
	coef0  float64
}

// NewPolynomial returns a polynomial kernel. A zero gamma is chosen by the solver.
func NewPolynomial(degree int, gamma, coef0 float64) (*Polynomial, error) {
	if degree < 1 {
		return nil, fmt.Errorf("%w: degree must be greater than 0, %d given", detectors.ErrConfiguration, degree)
	}
	if err := checkGamma(gamma, true); err != nil {
		return nil, err
	}
	if err := checkFinite("coef0", coef0); err != nil {
		return nil, err
	}
	return &Polynomial{degree: degree, gamma: gamma, coef0: coef0}, nil
}

// DefaultPolynomial returns a cubic kernel with automatic gamma.
func DefaultPolynomial() *Polynomial {
	return &Polynomial{degree: 3}
}

func (k *Polynomial) Options() svm.Options {
	opts := svm.Options{
		svm.OptKernelType: svm.Polynomial,
		svm.OptDegree:     k.degree,
		svm.OptCoef0:      k.coef0,
	}
	if k.gamma > 0 {
		opts[svm.OptGamma] = k.gamma
	}
	return opts
}

func (k *Polynomial) String() string {
	return fmt.Sprintf("polynomial(degree=%d, gamma=%s, coef0=%g)", k.degree, gammaString(k.gamma), k.coef0)
}

// RBF is the radial basis function kernel exp(-gamma·‖x-y‖²).
type RBF struct {
	gamma float64
}

// NewRBF returns an RBF kernel. gamma must be positive.
func NewRBF(gamma float64) (*RBF, error) {
	if err := checkGamma(gamma, false); err != nil {
		return nil, err
	}
	return &RBF{gamma: gamma}, nil
}

// DefaultRBF returns an RBF kernel with automatic gamma.
func DefaultRBF() *RBF { return &RBF{} }

func (k *RBF) Options() svm.Options {
	opts := svm.Options{svm.OptKernelType: svm.RBF}
	if k.gamma > 0 {
		opts[svm.OptGamma] = k.gamma
	}
	return opts
}

func (k *RBF) String() string {
	return fmt.Sprintf("rbf(gamma=%s)", gammaString(k.gamma))
}

// Sigmoidal computes tanh(gamma·⟨x,y⟩ + coef0).
type Sigmoidal struct {
	gamma float64
	coef0 float64
}

// NewSigmoidal returns a sigmoid kernel. A zero gamma is chosen by the solver.
func NewSigmoidal(gamma, coef0 float64) (*Sigmoidal, error) {
	if err := checkGamma(gamma, true); err != nil {
		return nil, err
	}
	if err := checkFinite("coef0", coef0); err != nil {
		return nil, err
	}
	return &Sigmoidal{gamma: gamma, coef0: coef0}, nil
}

// DefaultSigmoidal returns a sigmoid kernel with automatic gamma.
func DefaultSigmoidal() *Sigmoidal { return &Sigmoidal{} }

func (k *Sigmoidal) Options() svm.Options {
	opts := svm.Options{
		svm.OptKernelType: svm.Sigmoid,
		svm.OptCoef0:      k.coef0,
	}
	if k.gamma > 0 {
		opts[svm.OptGamma] = k.gamma
	}
	return opts
}

func (k *Sigmoidal) String() string {
	return fmt.Sprintf("sigmoid(gamma=%s, coef0=%g)", gammaString(k.gamma), k.coef0)
}

func checkGamma(gamma float64, allowAuto bool) error {
	if err := checkFinite("gamma", gamma); err != nil {
		return err
	}
	if gamma < 0 || (gamma == 0 && !allowAuto) {
		return fmt.Errorf("%w: gamma must be greater than 0, %g given", detectors.ErrConfiguration, gamma)
	}
	return nil
}

func checkFinite(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s must be finite, %g given", detectors.ErrConfiguration, name, v)
	}
	return nil
}

func gammaString(gamma float64) string {
	if gamma == 0 {
		return "auto"
	}
	return fmt.Sprintf("%g", gamma)
}
