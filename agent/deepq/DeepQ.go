// Package deepq implements an epsilon-greedy Q-learning agent trained
// from experience replay with a pluggable function approximator
package deepq

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/traffiti/agent"
	"github.com/samuelfneumann/traffiti/experiment/checkpointer"
	"github.com/samuelfneumann/traffiti/expreplay"
	"github.com/samuelfneumann/traffiti/timestep"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// DeepQ implements the Q-learning algorithm with experience replay. On
// each training step, a minibatch is sampled and the approximator is
// moved towards the update target
//
//	r + γ * max[Q(s', a')]
//
// at the action taken, with the estimates of every other action left as
// their own targets. The approximator is the same one used for action
// selection, there is no target network.
type DeepQ struct {
	q      agent.Approximator
	replay expreplay.ExperienceReplayer
	rng    *rand.Rand

	gamma        float64
	epsilon      float64
	minEpsilon   float64
	epsilonDecay float64

	learningRate float64
	schedule     Schedule
	checkpointer checkpointer.Checkpointer

	epoch int
	eval  bool // Whether or not in evaluation mode
}

// New creates and returns a new DeepQ agent which learns with the
// approximator q
func New(q agent.Approximator, c Config, seed uint64) (*DeepQ, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if q.Actions() < 1 {
		return nil, fmt.Errorf("new: approximator must estimate at least 1 "+
			"action\n\thave(%v)", q.Actions())
	}

	replay, err := c.ExpReplay.Create(c.Features, seed)
	if err != nil {
		return nil, fmt.Errorf("new: could not create experience replay "+
			"buffer: %w", err)
	}

	ckpt, err := checkpointer.NewNEpoch(c.CheckpointInterval, q,
		c.Checkpoints.Filename)
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	return &DeepQ{
		q:            q,
		replay:       replay,
		rng:          rand.New(rand.NewSource(seed + 1)),
		gamma:        c.Gamma,
		epsilon:      c.Epsilon,
		minEpsilon:   c.MinEpsilon,
		epsilonDecay: c.EpsilonDecay,
		learningRate: c.LearningRate,
		schedule:     c.Schedule(),
		checkpointer: ckpt,
	}, nil
}

// SelectAction selects an action from the ε-greedy policy. With
// probability ε, an action is selected uniformly at random. Otherwise,
// the first action with maximal estimated value is selected. In
// evaluation mode, actions are always selected greedily.
func (d *DeepQ) SelectAction(state mat.Vector) int {
	if !d.eval && d.rng.Float64() < d.epsilon {
		return d.rng.Intn(d.q.Actions())
	}
	return d.Greedy(state)
}

// Greedy returns the first action with maximal estimated value
func (d *DeepQ) Greedy(state mat.Vector) int {
	values := d.q.Estimate(state)
	return floats.MaxIdx(values.RawVector().Data)
}

// Memorize stores a transition in the replay buffer
func (d *DeepQ) Memorize(t timestep.Transition) error {
	if err := d.replay.Add(t); err != nil {
		return fmt.Errorf("memorize: %w", err)
	}
	return nil
}

// Train performs a single training step over a minibatch sampled from
// the replay buffer, then decays ε. Train is a no-op in evaluation
// mode.
func (d *DeepQ) Train() {
	if d.eval {
		return
	}

	lr := d.LearningRate()
	for _, t := range d.replay.Sample() {
		target := t.Reward + d.gamma*mat.Max(d.q.Estimate(t.NextState))

		targets := d.q.Estimate(t.State)
		targets.SetVec(t.Action, target)

		d.q.Update(t.State, targets, lr)
	}

	d.epsilon = math.Max(d.epsilon*d.epsilonDecay, d.minEpsilon)
}

// LearningRate returns the learning rate used at the current epoch
func (d *DeepQ) LearningRate() float64 {
	return d.schedule(d.epoch, d.learningRate)
}

// Epoch returns the current epoch
func (d *DeepQ) Epoch() int {
	return d.epoch
}

// NextEpoch increments and returns the epoch counter
func (d *DeepQ) NextEpoch() int {
	d.epoch++
	return d.epoch
}

// SetEpoch sets the epoch counter, for example when resuming training
// from a checkpoint
func (d *DeepQ) SetEpoch(epoch int) {
	d.epoch = epoch
}

// Epsilon returns the current exploration rate
func (d *DeepQ) Epsilon() float64 {
	return d.epsilon
}

// SetEpsilon sets the exploration rate, for example when resuming
// training from a checkpoint. The rate is clamped to [MinEpsilon, 1].
func (d *DeepQ) SetEpsilon(e float64) {
	d.epsilon = math.Min(math.Max(e, d.minEpsilon), 1)
}

// Eval sets the agent into evaluation mode
func (d *DeepQ) Eval() {
	d.eval = true
}

// TrainMode sets the agent into training mode
func (d *DeepQ) TrainMode() {
	d.eval = false
}

// IsEval returns whether the agent is in evaluation mode
func (d *DeepQ) IsEval() bool {
	return d.eval
}

// Checkpoint saves the approximator's parameters to a file named by the
// current epoch and returns the file's path. Nothing is saved in
// evaluation mode.
func (d *DeepQ) Checkpoint() (string, error) {
	if d.eval {
		return "", nil
	}
	return d.checkpointer.Checkpoint(d.epoch)
}

// Load restores the approximator's parameters from a file
func (d *DeepQ) Load(path string) error {
	if err := d.q.Restore(path); err != nil {
		return fmt.Errorf("load: %w", err)
	}
	return nil
}

// Approximator returns the approximator the agent learns with
func (d *DeepQ) Approximator() agent.Approximator {
	return d.q
}

// Memory returns the agent's replay buffer
func (d *DeepQ) Memory() expreplay.ExperienceReplayer {
	return d.replay
}

var _ agent.Agent = &DeepQ{}
