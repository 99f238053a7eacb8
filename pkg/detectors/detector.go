// Package detectors provides unsupervised anomaly detection algorithms.
package detectors

import (
	"fmt"

	"github.com/hed1ad/goguardml/pkg/dataset"
)

// Kind tells downstream tooling what sort of estimator it is dealing with.
type Kind int

const (
	Classifier Kind = iota
	Regressor
	Clusterer
	AnomalyDetector
)

func (k Kind) String() string {
	switch k {
	case Classifier:
		return "classifier"
	case Regressor:
		return "regressor"
	case Clusterer:
		return "clusterer"
	case AnomalyDetector:
		return "anomaly detector"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Label is the per-sample output of an anomaly detector.
type Label int

const (
	// Outlier marks a sample outside the learned boundary.
	Outlier Label = 0
	// Inlier marks a sample inside the learned boundary.
	Inlier Label = 1
)

// Estimator is the common interface for everything that makes predictions.
type Estimator interface {
	// Kind returns the estimator kind.
	Kind() Kind

	// Predict returns one label per sample, in dataset order.
	Predict(ds *dataset.Dataset) ([]Label, error)
}

// Learner is an Estimator that is trained from data.
type Learner interface {
	Estimator

	// Train fits the learner to ds. A successful call replaces any
	// previously trained state; a failed call leaves it untouched.
	Train(ds *dataset.Dataset) error
}

// Scorer is implemented by detectors that expose raw anomaly scores.
type Scorer interface {
	// Score returns one score per sample. Higher values are more normal for
	// margin based detectors; see each implementation for its scale.
	Score(ds *dataset.Dataset) ([]float64, error)
}

// LabelScorer is implemented by detectors that can score and label a dataset
// against one model snapshot, so the two never disagree across a retrain.
type LabelScorer interface {
	ScoreAndPredict(ds *dataset.Dataset) ([]float64, []Label, error)
}

// Score represents an anomaly detection result.
type Score struct {
	// Value is the raw score reported by the detector.
	Value float64
	// IsAnomaly indicates if the sample was labeled an outlier.
	IsAnomaly bool
	// Features contains the original input features.
	Features []float64
	// Metadata contains additional information.
	Metadata map[string]any
}

// Config holds common configuration for detectors.
type Config struct {
	// Contamination is the expected proportion of anomalies in training data.
	Contamination float64
	// Threshold is the score threshold for classifying anomalies.
	Threshold float64
	// RandomSeed for reproducibility.
	RandomSeed int64
}

// DefaultConfig returns sensible defaults for detector configuration.
func DefaultConfig() Config {
	return Config{
		Contamination: 0.1,
		Threshold:     0.5,
		RandomSeed:    42,
	}
}

// RequireContinuous returns ErrValidation when ds has categorical columns.
func RequireContinuous(ds *dataset.Dataset) error {
	if ds.TypeCount(dataset.Continuous) != ds.NumColumns() {
		return fmt.Errorf("%w: this estimator only works with continuous features", ErrValidation)
	}
	return nil
}
