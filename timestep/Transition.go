package timestep

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Transition is a single (s, a, s', r) tuple of experience. Once a
// Transition has been handed to a replay buffer it should not be
// modified; buffers copy the vector data on insertion.
type Transition struct {
	State     mat.Vector
	Action    int
	NextState mat.Vector
	Reward    float64
}

// NewTransition creates and returns a new Transition
func NewTransition(state mat.Vector, action int, nextState mat.Vector,
	reward float64) Transition {
	return Transition{
		State:     state,
		Action:    action,
		NextState: nextState,
		Reward:    reward,
	}
}

// FromSteps creates a Transition between two consecutive TimeSteps where
// action was taken at step. The reward is taken from next.
func FromSteps(step TimeStep, action int, next TimeStep) Transition {
	return NewTransition(step.Observation, action, next.Observation,
		next.Reward)
}

func (t Transition) String() string {
	return fmt.Sprintf("Transition | Action: %v  |  Reward: %.3f", t.Action,
		t.Reward)
}
