// Package reward implements the reward signal of the traffic light
// controller
package reward

import "fmt"

// Config describes the shape of the reward. The reward at a step is
//
//	(-cost - SwitchPenalty * [phase switched] - DwellPenalty / dwell) / Scale
//
// where dwell is the number of consecutive trailing steps spent in the
// current phase.
type Config struct {
	SwitchPenalty float64
	DwellPenalty  float64
	Scale         float64
}

// Default returns the default reward configuration
func Default() Config {
	return Config{
		SwitchPenalty: 1,
		DwellPenalty:  5,
		Scale:         10,
	}
}

// Validate returns an error describing whether the Config is valid
func (c Config) Validate() error {
	if c.Scale == 0 {
		return fmt.Errorf("validate: reward scale cannot be 0")
	}
	if c.SwitchPenalty < 0 {
		return fmt.Errorf("validate: switch penalty must be non-negative"+
			"\n\twant(>=0)\n\thave(%v)", c.SwitchPenalty)
	}
	if c.DwellPenalty < 0 {
		return fmt.Errorf("validate: dwell penalty must be non-negative"+
			"\n\twant(>=0)\n\thave(%v)", c.DwellPenalty)
	}
	return nil
}

// Reward returns the reward of the last step of an episode given the
// history of costs and phase indicators so far. Reward panics if fewer
// than two phase indicators or no costs have been recorded.
func (c Config) Reward(costs []float64, lights []int) float64 {
	if len(lights) < 2 {
		panic(fmt.Sprintf("reward: need at least 2 phase indicators, "+
			"have %v", len(lights)))
	}
	if len(costs) < 1 {
		panic("reward: no costs recorded")
	}

	last := len(lights) - 1
	r := -costs[len(costs)-1]

	if lights[last] != lights[last-1] {
		r -= c.SwitchPenalty
	}

	r -= c.DwellPenalty / float64(Dwell(lights))

	return r / c.Scale
}

// Dwell returns the number of consecutive trailing entries of lights
// equal to the last entry, including the last entry itself
func Dwell(lights []int) int {
	if len(lights) == 0 {
		return 0
	}

	last := lights[len(lights)-1]
	i := 1
	for i < len(lights) && lights[len(lights)-1-i] == last {
		i++
	}
	return i
}
