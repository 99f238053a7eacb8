// Package pipeline chains preprocessors in front of a learner.
package pipeline

import (
	"fmt"

	"github.com/hed1ad/goguardml/pkg/dataset"
	"github.com/hed1ad/goguardml/pkg/detectors"
	"github.com/hed1ad/goguardml/pkg/preprocessors"
)

// Pipeline fits its preprocessors on the training data and applies them, in
// order, to every dataset before it reaches the learner.
type Pipeline struct {
	learner       detectors.Learner
	preprocessors []preprocessors.Preprocessor
}

// New returns a pipeline feeding learner through preprocessors.
func New(learner detectors.Learner, preprocessors ...preprocessors.Preprocessor) *Pipeline {
	return &Pipeline{learner: learner, preprocessors: preprocessors}
}

// Kind returns the kind of the wrapped learner.
func (p *Pipeline) Kind() detectors.Kind {
	return p.learner.Kind()
}

// Learner returns the wrapped learner.
func (p *Pipeline) Learner() detectors.Learner {
	return p.learner
}

// Train fits each preprocessor on a copy of ds, transforms the copy and trains
// the learner on it. Only when the learner succeeds are the transformed values
// written back into ds, so a failed call leaves ds untouched.
func (p *Pipeline) Train(ds *dataset.Dataset) error {
	if err := detectors.RequireContinuous(ds); err != nil {
		return err
	}
	if len(p.preprocessors) == 0 {
		return p.learner.Train(ds)
	}

	samples, err := ds.Float64s()
	if err != nil {
		return fmt.Errorf("%w: %w", detectors.ErrValidation, err)
	}
	for i, pre := range p.preprocessors {
		if err := pre.Fit(samples, nil); err != nil {
			return fmt.Errorf("%w: preprocessor %d: %w", detectors.ErrTraining, i, err)
		}
		pre.Transform(samples)
	}

	transformed, err := dataset.FromFloat64s(samples)
	if err != nil {
		return fmt.Errorf("%w: %w", detectors.ErrValidation, err)
	}
	if err := p.learner.Train(transformed); err != nil {
		return err
	}

	return ds.Apply(overwrite(samples))
}

// Predict transforms a copy of ds and labels it with the learner.
func (p *Pipeline) Predict(ds *dataset.Dataset) ([]detectors.Label, error) {
	transformed, err := p.transform(ds)
	if err != nil {
		return nil, err
	}
	return p.learner.Predict(transformed)
}

// Score transforms a copy of ds and scores it. The learner must implement
// detectors.Scorer.
func (p *Pipeline) Score(ds *dataset.Dataset) ([]float64, error) {
	scorer, ok := p.learner.(detectors.Scorer)
	if !ok {
		return nil, fmt.Errorf("%w: %T does not produce scores", detectors.ErrConfiguration, p.learner)
	}

	transformed, err := p.transform(ds)
	if err != nil {
		return nil, err
	}
	return scorer.Score(transformed)
}

// ScoreAndPredict transforms a copy of ds once and scores and labels it. When
// the learner implements detectors.LabelScorer both come from one call.
func (p *Pipeline) ScoreAndPredict(ds *dataset.Dataset) ([]float64, []detectors.Label, error) {
	scorer, ok := p.learner.(detectors.Scorer)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %T does not produce scores", detectors.ErrConfiguration, p.learner)
	}

	transformed, err := p.transform(ds)
	if err != nil {
		return nil, nil, err
	}
	if ls, ok := p.learner.(detectors.LabelScorer); ok {
		return ls.ScoreAndPredict(transformed)
	}

	scores, err := scorer.Score(transformed)
	if err != nil {
		return nil, nil, err
	}
	labels, err := p.learner.Predict(transformed)
	if err != nil {
		return nil, nil, err
	}
	return scores, labels, nil
}

func (p *Pipeline) transform(ds *dataset.Dataset) (*dataset.Dataset, error) {
	if len(p.preprocessors) == 0 {
		return ds, nil
	}
	if err := detectors.RequireContinuous(ds); err != nil {
		return nil, err
	}

	samples, err := ds.Float64s()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", detectors.ErrValidation, err)
	}
	for _, pre := range p.preprocessors {
		pre.Transform(samples)
	}

	out, err := dataset.FromFloat64s(samples)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", detectors.ErrValidation, err)
	}
	return out, nil
}

// overwrite replaces a matrix with its own rows.
type overwrite [][]float64

func (o overwrite) Transform(samples [][]float64) {
	for i := range samples {
		copy(samples[i], o[i])
	}
}
