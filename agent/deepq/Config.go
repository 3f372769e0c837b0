package deepq

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/traffiti/experiment/checkpointer"
	"github.com/samuelfneumann/traffiti/expreplay"
)

// Config implements a configuration for a DeepQ agent
type Config struct {
	Gamma float64 // Discount factor

	// Behaviour policy exploration. Epsilon decays multiplicatively by
	// EpsilonDecay on each call to Train, but never below MinEpsilon.
	Epsilon      float64
	MinEpsilon   float64
	EpsilonDecay float64

	// LearningRate is the base learning rate which is passed through
	// the step decay schedule described by DecayEpoch and DecayFactor
	LearningRate float64
	DecayEpoch   int
	DecayFactor  float64

	// Features is the size of the state vectors the agent acts on
	Features int

	// Experience replay parameters
	ExpReplay expreplay.Config

	// Checkpoints names the parameter files written by Checkpoint,
	// CheckpointInterval is the number of epochs between checkpoints
	Checkpoints        checkpointer.EpochFile
	CheckpointInterval int
}

// DefaultConfig returns the default configuration of the traffic light
// controller
func DefaultConfig() Config {
	return Config{
		Gamma:              0.9,
		Epsilon:            1.0,
		MinEpsilon:         0.01,
		EpsilonDecay:       0.995,
		LearningRate:       0.01,
		DecayEpoch:         70,
		DecayFactor:        10,
		Features:           201,
		ExpReplay:          expreplay.DefaultConfig(),
		Checkpoints:        checkpointer.NewEpochFile("weights"),
		CheckpointInterval: 1,
	}
}

// EpsilonAfter returns the exploration rate after n calls to Train
func (c Config) EpsilonAfter(n int) float64 {
	return math.Max(c.Epsilon*math.Pow(c.EpsilonDecay, float64(n)),
		c.MinEpsilon)
}

// Schedule returns the learning rate schedule described by the Config
func (c Config) Schedule() Schedule {
	return StepDecay(c.DecayEpoch, c.DecayFactor)
}

// Validate checks a Config to ensure it is a valid configuration
func (c Config) Validate() error {
	if c.Gamma < 0 || c.Gamma > 1 {
		return fmt.Errorf("validate: discount must be in [0, 1]"+
			"\n\thave(%v)", c.Gamma)
	}
	if c.Epsilon < 0 || c.Epsilon > 1 {
		return fmt.Errorf("validate: epsilon must be in [0, 1]"+
			"\n\thave(%v)", c.Epsilon)
	}
	if c.MinEpsilon < 0 || c.MinEpsilon > c.Epsilon {
		return fmt.Errorf("validate: minimum epsilon must be in [0, %v]"+
			"\n\thave(%v)", c.Epsilon, c.MinEpsilon)
	}
	if c.EpsilonDecay <= 0 || c.EpsilonDecay > 1 {
		return fmt.Errorf("validate: epsilon decay must be in (0, 1]"+
			"\n\thave(%v)", c.EpsilonDecay)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("validate: learning rate must be positive"+
			"\n\twant(>0)\n\thave(%v)", c.LearningRate)
	}
	if c.DecayFactor <= 0 {
		return fmt.Errorf("validate: learning rate decay factor must be "+
			"positive\n\twant(>0)\n\thave(%v)", c.DecayFactor)
	}
	if c.Features < 1 {
		return fmt.Errorf("validate: features must be positive"+
			"\n\twant(>0)\n\thave(%v)", c.Features)
	}
	if c.CheckpointInterval < 1 {
		return fmt.Errorf("validate: checkpoint interval must be positive"+
			"\n\twant(>0)\n\thave(%v)", c.CheckpointInterval)
	}
	return c.ExpReplay.Validate()
}
