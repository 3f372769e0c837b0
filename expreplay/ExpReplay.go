// Package expreplay implements bounded experience replay buffers
package expreplay

import (
	"fmt"

	"github.com/samuelfneumann/traffiti/timestep"
	"gonum.org/v1/gonum/mat"
)

// ExperienceReplayer implements an experience replay buffer
type ExperienceReplayer interface {
	// Add adds a transition to the buffer, evicting the oldest
	// transition if the buffer is full
	Add(t timestep.Transition) error

	// Sample samples a batch of transitions from the buffer. If fewer
	// than BatchSize() transitions are stored, every stored transition
	// is returned. Sampled transitions stay in the buffer.
	Sample() []timestep.Transition

	// Len returns the current number of transitions in the buffer
	Len() int

	// MaxCapacity returns the maximum allowable transitions in the
	// buffer
	MaxCapacity() int

	// BatchSize returns the number of transitions returned by Sample()
	// once the buffer holds at least that many
	BatchSize() int
}

// Config implements a specific configuration of an ExperienceReplayer
type Config struct {
	Capacity  int
	BatchSize int
}

// DefaultConfig returns the default replay configuration
func DefaultConfig() Config {
	return Config{Capacity: 20, BatchSize: 2}
}

// Validate returns an error describing whether the Config is valid
func (c Config) Validate() error {
	if c.Capacity < 1 {
		return &ExpReplayError{
			Op: "validate",
			Err: fmt.Errorf("%w: capacity must be positive"+
				"\n\twant(>0)\n\thave(%v)", errInvalidConfig, c.Capacity),
		}
	}
	if c.BatchSize < 1 {
		return &ExpReplayError{
			Op: "validate",
			Err: fmt.Errorf("%w: batch size must be positive"+
				"\n\twant(>0)\n\thave(%v)", errInvalidConfig, c.BatchSize),
		}
	}
	return nil
}

// Create creates and returns the ExperienceReplayer with the specified
// Config.
func (c Config) Create(featureSize int,
	seed uint64) (ExperienceReplayer, error) {
	return New(c, featureSize, seed)
}

// New returns a new ExperienceReplayer which stores transitions whose
// states have featureSize features. A buffer with a capacity of 1
// reduces to online learning and is handled separately.
func New(c Config, featureSize int, seed uint64) (ExperienceReplayer,
	error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if featureSize < 1 {
		return nil, &ExpReplayError{
			Op: "new",
			Err: fmt.Errorf("%w: feature size must be positive"+
				"\n\twant(>0)\n\thave(%v)", errInvalidConfig, featureSize),
		}
	}

	if c.Capacity == 1 {
		return newOnline(featureSize, c.BatchSize), nil
	}
	return newFifo(NewUniformSelector(c.BatchSize, seed), c.Capacity,
		featureSize), nil
}

// checkFeatures returns an error if the states of t do not have
// featureSize features
func checkFeatures(t timestep.Transition, featureSize int) error {
	if t.State.Len() != featureSize || t.NextState.Len() != featureSize {
		return &ExpReplayError{
			Op: "add",
			Err: fmt.Errorf("%w \n\twant(%v)\n\thave(%v, %v)",
				errFeatureMismatch, featureSize, t.State.Len(),
				t.NextState.Len()),
		}
	}
	return nil
}

// copyInto copies a vector's values into dst starting at index start
func copyInto(dst []float64, start int, v mat.Vector) {
	for i := 0; i < v.Len(); i++ {
		dst[start+i] = v.AtVec(i)
	}
}
