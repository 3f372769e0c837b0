package network

import (
	"path/filepath"
	"testing"

	"github.com/samuelfneumann/traffiti/initwfn"
	"github.com/samuelfneumann/traffiti/solver"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// config returns a small deterministic network configuration
func config(t *testing.T) Config {
	vanilla, err := solver.NewVanilla(-1)
	if err != nil {
		t.Fatal(err)
	}

	return Config{
		Features:    5,
		Outputs:     2,
		Hidden:      []int{8, 4},
		Activations: []*Activation{ReLU(), TanH()},
		Dropout:     0,
		InitWFn:     initwfn.NewGlorotU(1, 3),
		Solver:      vanilla,
	}
}

func state() *mat.VecDense {
	return mat.NewVecDense(5, []float64{1, 0.5, 0, 1, 0.25})
}

func TestDefaultConfig(t *testing.T) {
	if err := DefaultConfig(1).Validate(); err != nil {
		t.Fatal(err)
	}

	m, err := New(DefaultConfig(1))
	if err != nil {
		t.Fatal(err)
	}
	if m.Actions() != 2 || m.Features() != 201 {
		t.Errorf("new: want(201 -> 2) have(%v -> %v)", m.Features(),
			m.Actions())
	}

	est := m.Estimate(mat.NewVecDense(201, nil))
	if est.Len() != 2 {
		t.Errorf("estimate: want(2) values have(%v)", est.Len())
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []func(*Config){
		func(c *Config) { c.Features = 0 },
		func(c *Config) { c.Outputs = 0 },
		func(c *Config) { c.Activations = c.Activations[:1] },
		func(c *Config) { c.Hidden[0] = 0 },
		func(c *Config) { c.Dropout = 1 },
		func(c *Config) { c.InitWFn = nil },
		func(c *Config) { c.Solver = nil },
	}

	for i, modify := range tests {
		c := config(t)
		modify(&c)
		if c.Validate() == nil {
			t.Errorf("case %v: expected an error", i)
		}
		if _, err := New(c); err == nil {
			t.Errorf("case %v: expected New to fail", i)
		}
	}
}

func TestEstimateDeterministic(t *testing.T) {
	m, err := New(config(t))
	if err != nil {
		t.Fatal(err)
	}

	first := m.Estimate(state())
	second := m.Estimate(state())
	if !mat.Equal(first, second) {
		t.Errorf("estimate: want(%v) have(%v)", mat.Formatted(first.T()),
			mat.Formatted(second.T()))
	}

	other, err := New(config(t))
	if err != nil {
		t.Fatal(err)
	}
	if !mat.Equal(first, other.Estimate(state())) {
		t.Error("new: networks with the same seed differ")
	}
}

func TestUpdateReducesError(t *testing.T) {
	m, err := New(config(t))
	if err != nil {
		t.Fatal(err)
	}
	target := mat.NewVecDense(2, []float64{1, -1})

	errorOf := func() float64 {
		var diff mat.VecDense
		diff.SubVec(m.Estimate(state()), target)
		return mat.Norm(&diff, 2)
	}

	before := errorOf()
	for i := 0; i < 50; i++ {
		m.Update(state(), target, 0.05)
	}
	after := errorOf()

	if after >= before {
		t.Errorf("update: error did not decrease (%v -> %v)", before, after)
	}
}

func TestUpdateLearningRateChange(t *testing.T) {
	rmsprop, err := solver.NewDefaultRMSProp()
	if err != nil {
		t.Fatal(err)
	}
	c := config(t)
	c.Solver = rmsprop

	m, err := New(c)
	if err != nil {
		t.Fatal(err)
	}
	target := mat.NewVecDense(2, []float64{1, -1})

	m.Update(state(), target, 0.01)
	first := m.solver
	m.Update(state(), target, 0.01)
	if m.solver != first {
		t.Error("update: solver recreated without a learning rate change")
	}
	m.Update(state(), target, 0.001)
	if m.solver != first || m.lr != 0.001 {
		t.Error("update: solver not kept after a learning rate change")
	}
}

func TestUpdateLearningRateApplied(t *testing.T) {
	target := mat.NewVecDense(2, []float64{1, -1})

	// The vanilla solver has no state, so a kept solver with a new
	// learning rate must step exactly like a fresh one
	kept, err := New(config(t))
	if err != nil {
		t.Fatal(err)
	}
	kept.Update(state(), target, 0.05)
	kept.Update(state(), target, 0.01)

	fresh, err := New(config(t))
	if err != nil {
		t.Fatal(err)
	}
	fresh.Update(state(), target, 0.05)
	fresh.solver = nil
	fresh.Update(state(), target, 0.01)

	if !mat.EqualApprox(kept.Estimate(state()), fresh.Estimate(state()),
		1e-12) {
		t.Errorf("update: want(%v) have(%v)",
			mat.Formatted(fresh.Estimate(state()).T()),
			mat.Formatted(kept.Estimate(state()).T()))
	}
}

func TestUpdateOnlyMovesTowardsTarget(t *testing.T) {
	m, err := New(config(t))
	if err != nil {
		t.Fatal(err)
	}

	// A target equal to the estimate has zero gradient
	est := m.Estimate(state())
	m.Update(state(), est, 0.1)
	if !floats.EqualApprox(m.Estimate(state()).RawVector().Data,
		est.RawVector().Data, 1e-12) {
		t.Error("update: weights changed with zero error")
	}
}

func TestPanics(t *testing.T) {
	m, err := New(config(t))
	if err != nil {
		t.Fatal(err)
	}

	tests := map[string]func(){
		"estimate state": func() { m.Estimate(mat.NewVecDense(3, nil)) },
		"update state": func() {
			m.Update(mat.NewVecDense(3, nil), mat.NewVecDense(2, nil), 0.1)
		},
		"update target": func() {
			m.Update(state(), mat.NewVecDense(3, nil), 0.1)
		},
	}

	for name, f := range tests {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("%v: expected a panic", name)
				}
			}()
			f()
		}()
	}
}

func TestPersistRestore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "1.gob")

	m, err := New(config(t))
	if err != nil {
		t.Fatal(err)
	}
	m.Update(state(), mat.NewVecDense(2, []float64{3, 3}), 0.1)
	want := m.Estimate(state())

	if err := m.Persist(path); err != nil {
		t.Fatal(err)
	}

	c := config(t)
	c.InitWFn = initwfn.NewGlorotU(1, 99)
	restored, err := New(c)
	if err != nil {
		t.Fatal(err)
	}
	if mat.Equal(want, restored.Estimate(state())) {
		t.Fatal("new: expected a different seed to give different weights")
	}

	if err := restored.Restore(path); err != nil {
		t.Fatal(err)
	}
	have := restored.Estimate(state())
	if !floats.EqualApprox(have.RawVector().Data, want.RawVector().Data,
		1e-12) {
		t.Errorf("restore: want(%v) have(%v)", mat.Formatted(want.T()),
			mat.Formatted(have.T()))
	}

	// A restored network keeps learning
	restored.Update(state(), mat.NewVecDense(2, []float64{3, 3}), 0.1)
}

func TestRestoreIncompatible(t *testing.T) {
	path := filepath.Join(t.TempDir(), "1.gob")

	m, err := New(config(t))
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Persist(path); err != nil {
		t.Fatal(err)
	}

	c := config(t)
	c.Features = 6
	other, err := New(c)
	if err != nil {
		t.Fatal(err)
	}
	if err := other.Restore(path); err == nil {
		t.Error("restore: expected an error for a different input size")
	}

	if err := m.Restore(filepath.Join(t.TempDir(), "missing.gob")); err == nil {
		t.Error("restore: expected an error for a missing file")
	}
}
