package expreplay

import (
	"fmt"

	"github.com/samuelfneumann/traffiti/timestep"
	"gonum.org/v1/gonum/mat"
)

// fifoCache implements a concrete ExperienceReplayer where elements
// are removed from the buffer in a FiFo manner, a single element at a
// time, once the buffer is full.
//
// Transitions are stored in flat arenas indexed by ring slot, so that
// adding a transition never allocates and evicting the oldest
// transition is a matter of overwriting its slot.
type fifoCache struct {
	stateCache     []float64
	actionCache    []int
	rewardCache    []float64
	nextStateCache []float64

	currentInUsePos int
	isFull          bool

	// Outlines how data is sampled
	sampler Selector

	maxCapacity int
	featureSize int
}

// newFifo returns a new fifoCache. The sampler parameter is a Selector
// which determines how data is sampled from the replay buffer. The
// maxCapacity parameter determines the maximum number of samples
// allowed in the buffer at any given time.
func newFifo(sampler Selector, maxCapacity, featureSize int) *fifoCache {
	return &fifoCache{
		stateCache:     make([]float64, maxCapacity*featureSize),
		actionCache:    make([]int, maxCapacity),
		rewardCache:    make([]float64, maxCapacity),
		nextStateCache: make([]float64, maxCapacity*featureSize),

		sampler: sampler,

		maxCapacity: maxCapacity,
		featureSize: featureSize,
	}
}

// String returns the string representation of the fifoCache
func (c *fifoCache) String() string {
	return fmt.Sprintf("FiFo Replay | Transitions: %v/%v | Next Slot: %v | "+
		"Actions: %v | Rewards: %v", c.Len(), c.MaxCapacity(),
		c.currentInUsePos, c.actionCache[:c.Len()], c.rewardCache[:c.Len()])
}

// BatchSize returns the number of samples sampled using Sample()
func (c *fifoCache) BatchSize() int {
	return c.sampler.BatchSize()
}

// Len returns the current number of elements in the fifoCache that
// are available for sampling
func (c *fifoCache) Len() int {
	if c.isFull {
		return c.MaxCapacity()
	}
	return c.currentInUsePos
}

// MaxCapacity returns the maximum number of elements that are allowed
// in the fifoCache
func (c *fifoCache) MaxCapacity() int {
	return c.maxCapacity
}

// Add adds a transition to the fifoCache
func (c *fifoCache) Add(t timestep.Transition) error {
	if err := checkFeatures(t, c.featureSize); err != nil {
		return err
	}

	index := c.currentInUsePos
	stateInd := index * c.featureSize
	copyInto(c.stateCache, stateInd, t.State)
	copyInto(c.nextStateCache, stateInd, t.NextState)
	c.actionCache[index] = t.Action
	c.rewardCache[index] = t.Reward

	if index+1 == c.MaxCapacity() {
		c.isFull = true
	}
	c.currentInUsePos = (c.currentInUsePos + 1) % c.MaxCapacity()
	return nil
}

// Sample samples and returns a batch of transitions from the replay
// buffer. The returned transitions own their state vectors.
func (c *fifoCache) Sample() []timestep.Transition {
	indices := c.sampler.choose(c.Len())

	batch := make([]timestep.Transition, len(indices))
	for i, index := range c.slots(indices) {
		batch[i] = c.at(index)
	}
	return batch
}

// slots converts positions in insertion order, where position 0 is
// the oldest transition, to ring slots
func (c *fifoCache) slots(positions []int) []int {
	if !c.isFull {
		return positions
	}
	for i, pos := range positions {
		positions[i] = (c.currentInUsePos + pos) % c.MaxCapacity()
	}
	return positions
}

// at returns a copy of the transition stored at a ring slot
func (c *fifoCache) at(index int) timestep.Transition {
	start := index * c.featureSize
	end := start + c.featureSize

	state := make([]float64, c.featureSize)
	copy(state, c.stateCache[start:end])
	nextState := make([]float64, c.featureSize)
	copy(nextState, c.nextStateCache[start:end])

	return timestep.NewTransition(
		mat.NewVecDense(c.featureSize, state),
		c.actionCache[index],
		mat.NewVecDense(c.featureSize, nextState),
		c.rewardCache[index],
	)
}
