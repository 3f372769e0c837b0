// Package linear implements a linear action-value approximator
package linear

import (
	"encoding/gob"
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"
)

// Linear approximates action values as a linear function of the state:
//
//	Q(s, ·) = W s + b
//
// where W has one row per action.
type Linear struct {
	weights *mat.Dense
	bias    *mat.VecDense
}

// New returns a new Linear approximator with zero weights
func New(features, actions int) (*Linear, error) {
	if features < 1 || actions < 1 {
		return nil, fmt.Errorf("new: features and actions must be positive"+
			"\n\thave(%v, %v)", features, actions)
	}

	return &Linear{
		weights: mat.NewDense(actions, features, nil),
		bias:    mat.NewVecDense(actions, nil),
	}, nil
}

// Estimate returns the estimated value of each action in state
func (l *Linear) Estimate(state mat.Vector) *mat.VecDense {
	actions, features := l.weights.Dims()
	if state.Len() != features {
		panic(fmt.Sprintf("estimate: invalid state size\n\twant(%v)"+
			"\n\thave(%v)", features, state.Len()))
	}

	values := mat.NewVecDense(actions, nil)
	values.MulVec(l.weights, state)
	values.AddVec(values, l.bias)
	return values
}

// Update performs a single step of stochastic gradient descent on
// ½‖Ws + b - target‖²
func (l *Linear) Update(state, target mat.Vector, learningRate float64) {
	actions, _ := l.weights.Dims()
	if target.Len() != actions {
		panic(fmt.Sprintf("update: invalid target size\n\twant(%v)"+
			"\n\thave(%v)", actions, target.Len()))
	}

	// δ = target - estimate
	delta := mat.NewVecDense(actions, nil)
	delta.SubVec(target, l.Estimate(state))

	// ∇W = -δ sᵀ, ∇b = -δ
	var grad mat.Dense
	grad.Outer(learningRate, delta, state)
	l.weights.Add(l.weights, &grad)
	l.bias.AddScaledVec(l.bias, learningRate, delta)
}

// Actions returns the number of action values estimated
func (l *Linear) Actions() int {
	actions, _ := l.weights.Dims()
	return actions
}

// Weights returns the weights and bias of the approximator
func (l *Linear) Weights() (*mat.Dense, *mat.VecDense) {
	return l.weights, l.bias
}

// params is the serialized form of a Linear approximator
type params struct {
	Weights []byte
	Bias    []byte
}

// Persist saves the weights of the approximator to a file
func (l *Linear) Persist(path string) error {
	weights, err := l.weights.MarshalBinary()
	if err != nil {
		return fmt.Errorf("persist: could not marshal weights: %w", err)
	}
	bias, err := l.bias.MarshalBinary()
	if err != nil {
		return fmt.Errorf("persist: could not marshal bias: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("persist: could not create weights file: %w", err)
	}
	if err := gob.NewEncoder(file).Encode(params{weights, bias}); err != nil {
		file.Close()
		return fmt.Errorf("persist: could not encode weights: %w", err)
	}
	return file.Close()
}

// Restore loads weights saved with Persist. The saved weights must have
// the same dimensions as the approximator.
func (l *Linear) Restore(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("restore: could not open weights file: %w", err)
	}
	defer file.Close()

	var p params
	if err := gob.NewDecoder(file).Decode(&p); err != nil {
		return fmt.Errorf("restore: could not decode weights: %w", err)
	}

	var weights mat.Dense
	if err := weights.UnmarshalBinary(p.Weights); err != nil {
		return fmt.Errorf("restore: could not unmarshal weights: %w", err)
	}
	var bias mat.VecDense
	if err := bias.UnmarshalBinary(p.Bias); err != nil {
		return fmt.Errorf("restore: could not unmarshal bias: %w", err)
	}

	wr, wc := weights.Dims()
	r, c := l.weights.Dims()
	if wr != r || wc != c || bias.Len() != r {
		return fmt.Errorf("restore: incompatible weights\n\twant(%v x %v)"+
			"\n\thave(%v x %v)", r, c, wr, wc)
	}

	l.weights, l.bias = &weights, &bias
	return nil
}
