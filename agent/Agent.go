// Package agent defines the interfaces of a traffic light controlling
// agent and of the function approximators it learns with
package agent

import (
	"github.com/samuelfneumann/traffiti/timestep"
	"gonum.org/v1/gonum/mat"
)

// Agent determines the implementation details of an agent or algorithm
//
// An Agent is composed of a Learner, which learns weights, and a Policy
// which chooses actions in each state. The Policy chooses which actions
// are taken, and the Learner uses the resulting transitions to update
// the weights that the Policy acts with.
type Agent interface {
	Learner
	Policy

	// Epoch returns the current epoch
	Epoch() int

	// NextEpoch increments and returns the epoch counter
	NextEpoch() int

	// Epsilon returns the current exploration rate
	Epsilon() float64

	// Checkpoint persists the agent's parameters, tagged with the
	// current epoch, and returns the file they were saved to
	Checkpoint() (string, error)
}

// Learner implements a learning algorithm that defines how weights are
// updated.
type Learner interface {
	// Memorize stores a transition for later learning
	Memorize(t timestep.Transition) error

	// Train performs a single learning step from stored transitions
	Train()
}

// Policy represents a policy that an agent can have.
//
// Policies determine how agents select actions. In evaluation mode a
// Policy acts greedily and its Learner does not learn.
type Policy interface {
	SelectAction(state mat.Vector) int
	Eval()        // Set policy to evaluation mode
	TrainMode()   // Set policy to training mode
	IsEval() bool // Indicates if in evaluation mode
}

// Approximator approximates the action values of a state. Estimate and
// Update are total for well formed inputs. Calling either with vectors
// of the wrong size is a programming error and panics.
type Approximator interface {
	// Estimate returns one value per action for the argument state
	// without changing any parameters
	Estimate(state mat.Vector) *mat.VecDense

	// Update performs a single gradient step moving Estimate(state)
	// towards target
	Update(state, target mat.Vector, learningRate float64)

	// Persist saves the approximator's parameters to a file
	Persist(path string) error

	// Restore loads parameters previously saved with Persist
	Restore(path string) error

	// Actions returns the number of action values estimated
	Actions() int
}
