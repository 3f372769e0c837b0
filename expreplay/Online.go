package expreplay

import (
	"github.com/samuelfneumann/traffiti/timestep"
	"gonum.org/v1/gonum/mat"
)

// onlineCache implements an experience replay buffer for sampling
// completely online.
//
// When creating a new experience replay buffer, the user could
// choose to use a buffer with a maximum capacity of 1. In this case,
// experience replay reduces to online sampling and only the most
// recent transition is kept.
type onlineCache struct {
	state     []float64
	action    int
	reward    float64
	nextState []float64

	batchSize   int
	featureSize int
	full        bool
}

// newOnline returns a new online replay buffer
func newOnline(featureSize, batchSize int) *onlineCache {
	return &onlineCache{
		state:       make([]float64, featureSize),
		nextState:   make([]float64, featureSize),
		batchSize:   batchSize,
		featureSize: featureSize,
	}
}

// Add replaces the stored transition with t
func (o *onlineCache) Add(t timestep.Transition) error {
	if err := checkFeatures(t, o.featureSize); err != nil {
		return err
	}

	copyInto(o.state, 0, t.State)
	copyInto(o.nextState, 0, t.NextState)
	o.action = t.Action
	o.reward = t.Reward
	o.full = true

	return nil
}

// Sample returns the most recent transition, if any
func (o *onlineCache) Sample() []timestep.Transition {
	if !o.full {
		return []timestep.Transition{}
	}

	state := mat.NewVecDense(o.featureSize, nil)
	state.CopyVec(mat.NewVecDense(o.featureSize, o.state))
	nextState := mat.NewVecDense(o.featureSize, nil)
	nextState.CopyVec(mat.NewVecDense(o.featureSize, o.nextState))

	return []timestep.Transition{
		timestep.NewTransition(state, o.action, nextState, o.reward),
	}
}

// Len returns the current number of elements in the cache that
// are available for sampling
func (o *onlineCache) Len() int {
	if o.full {
		return 1
	}
	return 0
}

// MaxCapacity returns the maximum number of elements that are allowed
// in the cache
func (o *onlineCache) MaxCapacity() int {
	return 1
}

// BatchSize returns the number of elements sampled from the cache
func (o *onlineCache) BatchSize() int {
	return o.batchSize
}
