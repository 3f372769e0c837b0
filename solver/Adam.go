package solver

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// AdamConfig describes a configuration of the Adam solver
type AdamConfig struct {
	Epsilon float64 // Smoothing factor
	Beta1   float64
	Beta2   float64
	Clip    float64 // <= 0 if no clipping
}

// NewDefaultAdam returns a new Adam Solver with default hyperparameters
func NewDefaultAdam() (*Solver, error) {
	return NewAdam(1e-8, 0.9, 0.999, -1.0)
}

// NewAdam returns a new Adam Solver
func NewAdam(epsilon, beta1, beta2, clip float64) (*Solver, error) {
	adam := AdamConfig{
		Epsilon: epsilon,
		Beta1:   beta1,
		Beta2:   beta2,
		Clip:    clip,
	}

	return newSolver(Adam, adam)
}

// Create returns a new Gorgonia Adam Solver as described by the
// AdamConfig
func (a AdamConfig) Create(lr float64) G.Solver {
	opts := []G.SolverOpt{
		G.WithLearnRate(lr),
		G.WithEps(a.Epsilon),
		G.WithBeta1(a.Beta1),
		G.WithBeta2(a.Beta2),
	}
	if a.Clip > 0 {
		opts = append(opts, G.WithClip(a.Clip))
	}
	return G.NewAdamSolver(opts...)
}

// ValidType returns if the given Solver type is a valid type to be
// created with this config.
func (a AdamConfig) ValidType(t Type) bool {
	return t == Adam
}

// Validate returns an error describing whether the AdamConfig is valid
func (a AdamConfig) Validate() error {
	if a.Epsilon <= 0 {
		return fmt.Errorf("validate: epsilon must be positive"+
			"\n\twant(>0)\n\thave(%v)", a.Epsilon)
	}
	for _, beta := range []float64{a.Beta1, a.Beta2} {
		if beta < 0 || beta >= 1 {
			return fmt.Errorf("validate: beta must be in [0, 1)"+
				"\n\thave(%v)", beta)
		}
	}
	return nil
}
