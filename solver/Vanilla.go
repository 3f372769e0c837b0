package solver

import G "gorgonia.org/gorgonia"

// VanillaConfig describes a configuration of the vanilla gradient
// descent solver.
type VanillaConfig struct {
	Clip float64 // <= 0 if no clipping
}

// NewVanilla returns a new Vanilla Solver
func NewVanilla(clip float64) (*Solver, error) {
	return newSolver(Vanilla, VanillaConfig{Clip: clip})
}

// Create returns a Gorgonia Vanilla Solver as described by the
// VanillaConfig
func (v VanillaConfig) Create(lr float64) G.Solver {
	if v.Clip <= 0 {
		return G.NewVanillaSolver(G.WithLearnRate(lr))
	}
	return G.NewVanillaSolver(G.WithLearnRate(lr), G.WithClip(v.Clip))
}

// ValidType returns if the given Solver type is a valid type to be
// created with this config.
func (v VanillaConfig) ValidType(t Type) bool {
	return t == Vanilla
}

// Validate implements the Config interface. Any VanillaConfig is
// valid.
func (v VanillaConfig) Validate() error {
	return nil
}
