package expreplay

import "errors"

// ExpReplayError implements errors unique to an experience replay
// buffer.
type ExpReplayError struct {
	Op  string
	Err error
}

// Error satisifes the error interface
func (e *ExpReplayError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

// Unwrap returns the underlying error
func (e *ExpReplayError) Unwrap() error {
	return e.Err
}

var errInvalidConfig = errors.New("invalid configuration")

var errFeatureMismatch = errors.New("feature size mismatch")

// IsInvalidConfig returns whether or not an error reports that a
// replay buffer was configured with an illegal capacity or batch size.
func IsInvalidConfig(err error) bool {
	return errors.Is(err, errInvalidConfig)
}

// IsFeatureMismatch returns whether or not an error reports that a
// transition added to the buffer had states of the wrong size.
func IsFeatureMismatch(err error) bool {
	return errors.Is(err, errFeatureMismatch)
}
