package expreplay

import (
	"golang.org/x/exp/rand"
)

// Selector implements functionality for choosing how data should be
// sampled from an experience replay buffer
type Selector interface {
	// choose selects the slots of a buffer holding n transitions at
	// which data should be sampled
	choose(n int) []int

	// BatchSize returns the number of elements that will be selected
	// from a buffer holding at least that many elements
	BatchSize() int
}

// uniformSelector is a Selector which selects data from an experience
// replay buffer uniformly randomly without replacement
type uniformSelector struct {
	samples int
	rng     *rand.Rand
	slots   []int
}

// NewUniformSelector returns a new Selector which selects data uniformly
// randomly without replacement from an experience replay buffer
func NewUniformSelector(samples int, seed uint64) Selector {
	source := rand.NewSource(seed)
	rng := rand.New(source)

	return &uniformSelector{samples: samples, rng: rng}
}

// BatchSize gets the number of samples in a batch drawn from the buffer
func (u *uniformSelector) BatchSize() int {
	return u.samples
}

// choose selects BatchSize() distinct slots in [0, n). If n is smaller
// than BatchSize(), every slot is returned in order.
func (u *uniformSelector) choose(n int) []int {
	if cap(u.slots) < n {
		u.slots = make([]int, n)
	}
	slots := u.slots[:n]
	for i := range slots {
		slots[i] = i
	}

	if n <= u.BatchSize() {
		return append([]int(nil), slots...)
	}

	// Partial Fisher-Yates shuffle
	for i := 0; i < u.BatchSize(); i++ {
		j := i + u.rng.Intn(n-i)
		slots[i], slots[j] = slots[j], slots[i]
	}

	return append([]int(nil), slots[:u.BatchSize()]...)
}
