package solver

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// RMSPropConfig implements a specific configuration of the RMSProp
// solver
type RMSPropConfig struct {
	Epsilon float64
	Rho     float64 // Decay of the moving average of squared gradients
	Clip    float64 // <= 0 if no clipping
}

// NewDefaultRMSProp returns a new RMSProp Solver with the
// hyperparameters the controller's network is trained with
func NewDefaultRMSProp() (*Solver, error) {
	return NewRMSProp(1e-7, 0.9, -1.0)
}

// NewRMSProp returns a new RMSProp Solver
func NewRMSProp(epsilon, rho, clip float64) (*Solver, error) {
	rmsprop := RMSPropConfig{
		Epsilon: epsilon,
		Rho:     rho,
		Clip:    clip,
	}

	return newSolver(RMSProp, rmsprop)
}

// Create returns a new Gorgonia RMSProp Solver as described by the
// RMSPropConfig
func (r RMSPropConfig) Create(lr float64) G.Solver {
	opts := []G.SolverOpt{
		G.WithLearnRate(lr),
		G.WithEps(r.Epsilon),
		G.WithRho(r.Rho),
	}
	if r.Clip > 0 {
		opts = append(opts, G.WithClip(r.Clip))
	}
	return G.NewRMSPropSolver(opts...)
}

// ValidType returns if the given Solver type is a valid type to be
// created with this config.
func (r RMSPropConfig) ValidType(t Type) bool {
	return t == RMSProp
}

// Validate returns an error describing whether the RMSPropConfig is
// valid
func (r RMSPropConfig) Validate() error {
	if r.Epsilon <= 0 {
		return fmt.Errorf("validate: epsilon must be positive"+
			"\n\twant(>0)\n\thave(%v)", r.Epsilon)
	}
	if r.Rho <= 0 || r.Rho >= 1 {
		return fmt.Errorf("validate: rho must be in (0, 1)\n\thave(%v)",
			r.Rho)
	}
	return nil
}
