// Package preprocessors provides transforms applied to samples before they
// reach a detector.
package preprocessors

// Preprocessor learns from samples and rewrites them in place.
//
// Transform mutates the caller's slices; callers that need the original
// values must copy them first.
type Preprocessor interface {
	// Fit learns transform parameters. outcomes may be nil.
	Fit(samples [][]float64, outcomes []float64) error

	// Transform rewrites samples in place.
	Transform(samples [][]float64)
}
