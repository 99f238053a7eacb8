package preprocessors

import "gonum.org/v1/gonum/floats"

// L2Epsilon keeps the normalizer from dividing by zero.
const L2Epsilon = 1e-10

// L2Normalizer scales every sample to unit Euclidean length.
type L2Normalizer struct{}

// NewL2Normalizer returns a stateless L2 normalizer.
func NewL2Normalizer() *L2Normalizer { return &L2Normalizer{} }

// Fit is a no-op; the transform has no learned state.
func (*L2Normalizer) Fit(samples [][]float64, outcomes []float64) error { return nil }

// Transform divides each sample by its L2 norm plus L2Epsilon. Zero vectors
// stay zero.
func (*L2Normalizer) Transform(samples [][]float64) {
	for _, sample := range samples {
		norm := floats.Norm(sample, 2) + L2Epsilon
		floats.Scale(1/norm, sample)
	}
}
