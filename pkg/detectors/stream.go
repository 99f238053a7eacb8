package detectors

import (
	"context"
	"errors"

	"github.com/hed1ad/goguardml/pkg/dataset"
)

// Detector is a Learner that also reports raw scores.
type Detector interface {
	Learner
	Scorer
}

// Stream scores samples from input until it is closed or ctx is done.
// Samples the detector rejects are skipped. Detectors implementing LabelScorer
// score and label each sample in a single call.
func Stream(ctx context.Context, d Detector, input <-chan []float64, output chan<- Score) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sample, ok := <-input:
			if !ok {
				return nil
			}

			ds, err := dataset.FromFloat64s([][]float64{sample})
			if err != nil {
				continue
			}
			scores, labels, err := ScoreAndPredict(d, ds)
			if err != nil {
				if errors.Is(err, ErrNotTrained) {
					return err
				}
				continue
			}

			select {
			case output <- Score{
				Value:     scores[0],
				IsAnomaly: labels[0] == Outlier,
				Features:  sample,
			}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// ScoreAndPredict scores and labels ds, through LabelScorer when d implements
// it and with separate Score and Predict calls otherwise.
func ScoreAndPredict(d Detector, ds *dataset.Dataset) ([]float64, []Label, error) {
	if ls, ok := d.(LabelScorer); ok {
		return ls.ScoreAndPredict(ds)
	}

	scores, err := d.Score(ds)
	if err != nil {
		return nil, nil, err
	}
	labels, err := d.Predict(ds)
	if err != nil {
		return nil, nil, err
	}
	return scores, labels, nil
}
