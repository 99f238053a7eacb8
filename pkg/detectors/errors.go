package detectors

import "errors"

// Error categories shared by every detector. Concrete errors wrap one of
// these; match them with errors.Is.
var (
	// ErrConfiguration reports an invalid hyperparameter at construction.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrEnvironment reports that a required solver capability is missing.
	ErrEnvironment = errors.New("environment not supported")

	// ErrValidation reports a dataset the detector cannot accept.
	ErrValidation = errors.New("invalid dataset")

	// ErrNotTrained reports a prediction attempt before a successful Train.
	ErrNotTrained = errors.New("model not trained")

	// ErrTraining reports that fitting failed. The previous model, if any,
	// is kept.
	ErrTraining = errors.New("training failed")
)
