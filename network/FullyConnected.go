package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// fcLayer implements a fully connected layer of a feed forward neural
// network. Inputs are row vectors of shape (1, in).
type fcLayer struct {
	weights *G.Node
	bias    *G.Node
	act     *Activation
	dropout float64 // Dropout probability, 0 for no dropout
}

// newfcLayer adds a fully connected layer mapping in features to out
// features to g. If values is nil, weights are initialized with init.
// Otherwise, values holds the weights and bias of the layer, in that
// order.
func newfcLayer(g *G.ExprGraph, index, in, out int, act *Activation,
	dropout float64, init G.InitWFn, values []tensor.Tensor) *fcLayer {
	weightOpt := G.WithInit(init)
	biasOpt := G.WithInit(G.Zeroes())
	if values != nil {
		weightOpt = G.WithValue(values[0])
		biasOpt = G.WithValue(values[1])
	}

	weights := G.NewMatrix(g, tensor.Float64, G.WithShape(in, out),
		G.WithName(fmt.Sprintf("L%dW", index)), weightOpt)
	bias := G.NewMatrix(g, tensor.Float64, G.WithShape(1, out),
		G.WithName(fmt.Sprintf("L%dB", index)), biasOpt)

	return &fcLayer{
		weights: weights,
		bias:    bias,
		act:     act,
		dropout: dropout,
	}
}

// fwd adds the forward pass of the fcLayer to the computational graph.
// Dropout is only applied if train is true.
func (f *fcLayer) fwd(x *G.Node, train bool) (*G.Node, error) {
	x, err := G.Mul(x, f.weights)
	if err != nil {
		return nil, err
	}
	if x, err = G.Add(x, f.bias); err != nil {
		return nil, err
	}
	if x, err = f.act.fwd(x); err != nil {
		return nil, err
	}

	if train && f.dropout > 0 {
		return G.Dropout(x, f.dropout)
	}
	return x, nil
}

// learnables returns the learnable nodes of the layer
func (f *fcLayer) learnables() G.Nodes {
	return G.Nodes{f.weights, f.bias}
}
