// Package timestep implements timesteps of the controller-intersection
// interaction
package timestep

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// StepType denotes the type of step that a TimeStep can be, either the
// first step of an episode, a middle step, or the last step
type StepType int

const (
	First StepType = iota
	Mid
	Last
)

func (s StepType) String() string {
	switch s {
	case First:
		return "First"
	case Last:
		return "Last"
	default:
		return "Mid"
	}
}

// TimeStep packages together a single control step at the intersection:
// the encoded state, the reward for arriving in it, the queuing cost
// observed and the phase indicator observed.
type TimeStep struct {
	StepType
	Reward      float64
	Cost        float64
	Phase       int
	Observation *mat.VecDense
	Number      int
}

// New returns a new TimeStep
func New(t StepType, r, cost float64, phase int, o *mat.VecDense,
	n int) TimeStep {
	return TimeStep{t, r, cost, phase, o, n}
}

// First returns whether a TimeStep is the first in an episode
func (t *TimeStep) First() bool {
	return t.StepType == First
}

// Mid returns whether a TimeStep is a middle step in an episode
func (t *TimeStep) Mid() bool {
	return t.StepType == Mid
}

// Last returns whether a TimeStep is the last step in an episode
func (t *TimeStep) Last() bool {
	return t.StepType == Last
}

func (t TimeStep) String() string {
	str := "TimeStep | Type: %v  |  Reward:  %.2f  |  Cost: %.0f  |  " +
		"Phase: %v  |  Step Number:  %v"

	return fmt.Sprintf(str, t.StepType, t.Reward, t.Cost, t.Phase, t.Number)
}
