package bandit

import "errors"

var (
	// ErrInvalidConfiguration is returned for any configuration that cannot
	// describe a bandit instance.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrOutOfRangeAction is returned when an oracle picks an index outside [0, K).
	ErrOutOfRangeAction = errors.New("action out of range")

	// ErrTraceMismatch is returned when a decision trace does not fit the trial it is scored against.
	ErrTraceMismatch = errors.New("decision trace does not match trial")
)
