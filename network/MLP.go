// Package network implements a multi-layered perceptron action-value
// approximator with Gorgonia
package network

import (
	"encoding/gob"
	"fmt"
	"os"

	"github.com/samuelfneumann/traffiti/initwfn"
	"github.com/samuelfneumann/traffiti/solver"
	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Config describes a multi-layered perceptron. The network has
// len(Hidden) hidden layers, where layer i has Hidden[i] units and
// activation Activations[i] followed by dropout with probability
// Dropout during training. A final linear layer with Outputs units is
// always added.
type Config struct {
	Features    int
	Outputs     int
	Hidden      []int
	Activations []*Activation
	Dropout     float64

	InitWFn *initwfn.InitWFn
	Solver  *solver.Solver
}

// DefaultConfig returns the network of the traffic light controller:
// 201 -> 200 ReLU -> 100 ReLU -> 2 with dropout 0.2, trained by RMSProp
func DefaultConfig(seed uint64) Config {
	rmsprop, err := solver.NewDefaultRMSProp()
	if err != nil {
		panic(fmt.Sprintf("defaultconfig: %v", err))
	}

	return Config{
		Features:    201,
		Outputs:     2,
		Hidden:      []int{200, 100},
		Activations: []*Activation{ReLU(), ReLU()},
		Dropout:     0.2,
		InitWFn:     initwfn.NewGlorotU(1.0, seed),
		Solver:      rmsprop,
	}
}

// Validate returns an error describing whether the Config is valid
func (c Config) Validate() error {
	if c.Features < 1 {
		return fmt.Errorf("validate: features must be positive"+
			"\n\twant(>0)\n\thave(%v)", c.Features)
	}
	if c.Outputs < 1 {
		return fmt.Errorf("validate: outputs must be positive"+
			"\n\twant(>0)\n\thave(%v)", c.Outputs)
	}
	if len(c.Hidden) != len(c.Activations) {
		return fmt.Errorf("validate: invalid number of activations"+
			"\n\twant(%d)\n\thave(%d)", len(c.Hidden), len(c.Activations))
	}
	for i, size := range c.Hidden {
		if size < 1 {
			return fmt.Errorf("validate: hidden layer %v must have "+
				"positive size\n\thave(%v)", i, size)
		}
		if c.Activations[i] == nil {
			return fmt.Errorf("validate: hidden layer %v has no "+
				"activation", i)
		}
	}
	if c.Dropout < 0 || c.Dropout >= 1 {
		return fmt.Errorf("validate: dropout must be in [0, 1)"+
			"\n\thave(%v)", c.Dropout)
	}
	if c.InitWFn == nil {
		return fmt.Errorf("validate: no weight initializer")
	}
	if c.Solver == nil {
		return fmt.Errorf("validate: no solver")
	}
	return nil
}

// graph is a compiled forward pass of the network over a single input
type graph struct {
	g      *G.ExprGraph
	input  *G.Node
	layers []*fcLayer
	pred   *G.Node
	vm     G.VM

	predVal G.Value
}

// learnables returns the learnable nodes of the graph
func (gr *graph) learnables() G.Nodes {
	nodes := make(G.Nodes, 0, 2*len(gr.layers))
	for _, l := range gr.layers {
		nodes = append(nodes, l.learnables()...)
	}
	return nodes
}

// MLP implements a multi-layered perceptron which estimates one value
// per action. Estimates are computed with a prediction graph without
// dropout. Updates are computed with a separate training graph with
// dropout and an MSE loss, after which the weights of the prediction
// graph are set to those of the training graph.
type MLP struct {
	features int
	outputs  int
	hidden   []int
	acts     []*Activation
	dropout  float64

	solverConf *solver.Solver
	solver     G.Solver
	lr         float64 // Current learning rate of solver

	predict *graph
	train   *graph
	target  *G.Node
	loss    *G.Node
}

// New returns a new MLP described by c
func New(c Config) (*MLP, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	m := &MLP{
		features:   c.Features,
		outputs:    c.Outputs,
		hidden:     append([]int(nil), c.Hidden...),
		acts:       append([]*Activation(nil), c.Activations...),
		dropout:    c.Dropout,
		solverConf: c.Solver,
	}

	if err := m.build(c.InitWFn.InitWFn(), nil); err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}
	return m, nil
}

// sizes returns the number of units of each layer, including the input
func (m *MLP) sizes() []int {
	sizes := make([]int, 0, len(m.hidden)+2)
	sizes = append(sizes, m.features)
	sizes = append(sizes, m.hidden...)
	return append(sizes, m.outputs)
}

// newGraph constructs the forward pass of the network. Weights are
// either initialized with init or, if values is not nil, set to values
// as weight and bias pairs per layer.
func (m *MLP) newGraph(train bool, init G.InitWFn,
	values []tensor.Tensor) (*graph, error) {
	g := G.NewGraph()
	input := G.NewMatrix(g, tensor.Float64, G.WithShape(1, m.features),
		G.WithName("input"), G.WithInit(G.Zeroes()))

	sizes := m.sizes()
	layers := make([]*fcLayer, len(sizes)-1)
	pred := input
	for i := range layers {
		act, dropout := Identity(), 0.0
		if i < len(m.hidden) {
			act, dropout = m.acts[i], m.dropout
		}

		var layerValues []tensor.Tensor
		if values != nil {
			layerValues = values[2*i : 2*i+2]
		}
		layers[i] = newfcLayer(g, i, sizes[i], sizes[i+1], act, dropout,
			init, layerValues)

		var err error
		if pred, err = layers[i].fwd(pred, train); err != nil {
			return nil, fmt.Errorf("could not compute forward pass of "+
				"layer %v: %v", i, err)
		}
	}

	gr := &graph{g: g, input: input, layers: layers, pred: pred}
	G.Read(gr.pred, &gr.predVal)
	return gr, nil
}

// build constructs the training and prediction graphs
func (m *MLP) build(init G.InitWFn, values []tensor.Tensor) error {
	train, err := m.newGraph(true, init, values)
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}

	target := G.NewMatrix(train.g, tensor.Float64,
		G.WithShape(1, m.outputs), G.WithName("target"),
		G.WithInit(G.Zeroes()))
	loss := G.Must(G.Mean(G.Must(G.Square(G.Must(G.Sub(train.pred,
		target))))))

	if _, err := G.Grad(loss, train.learnables()...); err != nil {
		return fmt.Errorf("build: could not compute gradient: %v", err)
	}
	train.vm = G.NewTapeMachine(train.g,
		G.BindDualValues(train.learnables()...))

	predict, err := m.newGraph(false, nil, m.values(train))
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}
	predict.vm = G.NewTapeMachine(predict.g)

	m.train, m.predict = train, predict
	m.target, m.loss = target, loss
	m.solver = nil
	return nil
}

// values returns copies of the learnable values of a graph
func (m *MLP) values(gr *graph) []tensor.Tensor {
	nodes := gr.learnables()
	values := make([]tensor.Tensor, len(nodes))
	for i, node := range nodes {
		values[i] = node.Value().(tensor.Tensor).Clone().(tensor.Tensor)
	}
	return values
}

// sync sets the weights of the prediction graph to those of the
// training graph
func (m *MLP) sync() error {
	for i, node := range m.predict.learnables() {
		value := m.train.learnables()[i].Value().(tensor.Tensor).Clone()
		if err := G.Let(node, value); err != nil {
			return err
		}
	}
	return nil
}

// let sets the value of an input node from a vector
func let(node *G.Node, v mat.Vector) error {
	data := make([]float64, v.Len())
	for i := range data {
		data[i] = v.AtVec(i)
	}
	t := tensor.New(tensor.WithShape(node.Shape()...),
		tensor.WithBacking(data))
	return G.Let(node, t)
}

// Estimate returns the estimated value of each action in state
func (m *MLP) Estimate(state mat.Vector) *mat.VecDense {
	if state.Len() != m.features {
		panic(fmt.Sprintf("estimate: invalid state size\n\twant(%v)"+
			"\n\thave(%v)", m.features, state.Len()))
	}

	if err := let(m.predict.input, state); err != nil {
		panic(fmt.Sprintf("estimate: could not set input: %v", err))
	}
	if err := m.predict.vm.RunAll(); err != nil {
		panic(fmt.Sprintf("estimate: could not run forward pass: %v", err))
	}
	defer m.predict.vm.Reset()

	out := m.predict.predVal.Data().([]float64)
	return mat.NewVecDense(m.outputs, append([]float64(nil), out...))
}

// Update performs a single gradient step on the mean squared error
// between the network's estimates in state and target. The solver is
// kept across changes of learningRate so that its running averages
// survive a learning rate schedule.
func (m *MLP) Update(state, target mat.Vector, learningRate float64) {
	if state.Len() != m.features {
		panic(fmt.Sprintf("update: invalid state size\n\twant(%v)"+
			"\n\thave(%v)", m.features, state.Len()))
	}
	if target.Len() != m.outputs {
		panic(fmt.Sprintf("update: invalid target size\n\twant(%v)"+
			"\n\thave(%v)", m.outputs, target.Len()))
	}

	switch {
	case m.solver == nil:
		m.solver = m.solverConf.Create(learningRate)
		m.lr = learningRate
	case learningRate != m.lr:
		G.WithLearnRate(learningRate)(m.solver)
		m.lr = learningRate
	}

	if err := let(m.train.input, state); err != nil {
		panic(fmt.Sprintf("update: could not set input: %v", err))
	}
	if err := let(m.target, target); err != nil {
		panic(fmt.Sprintf("update: could not set target: %v", err))
	}

	if err := m.train.vm.RunAll(); err != nil {
		panic(fmt.Sprintf("update: could not run training pass: %v", err))
	}
	if err := m.solver.Step(G.NodesToValueGrads(m.train.learnables())); err != nil {
		panic(fmt.Sprintf("update: could not step solver: %v", err))
	}
	m.train.vm.Reset()

	if err := m.sync(); err != nil {
		panic(fmt.Sprintf("update: could not set prediction weights: %v",
			err))
	}
}

// Actions returns the number of action values estimated
func (m *MLP) Actions() int {
	return m.outputs
}

// Features returns the size of the states the MLP estimates values of
func (m *MLP) Features() int {
	return m.features
}

// params is the serialized form of an MLP
type params struct {
	Features    int
	Outputs     int
	Hidden      []int
	Activations []*Activation
	Dropout     float64
	Shapes      [][]int
	Weights     [][]float64
}

// Persist saves the architecture and weights of the MLP to a file
func (m *MLP) Persist(path string) error {
	p := params{
		Features:    m.features,
		Outputs:     m.outputs,
		Hidden:      m.hidden,
		Activations: m.acts,
		Dropout:     m.dropout,
	}
	for _, value := range m.values(m.train) {
		p.Shapes = append(p.Shapes, []int(value.Shape().Clone()))
		p.Weights = append(p.Weights, value.Data().([]float64))
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("persist: could not create weights file: %w", err)
	}
	if err := gob.NewEncoder(file).Encode(p); err != nil {
		file.Close()
		return fmt.Errorf("persist: could not encode weights: %w", err)
	}
	return file.Close()
}

// Restore loads the architecture and weights of an MLP saved with
// Persist. The saved network must have the same number of features and
// outputs as m.
func (m *MLP) Restore(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("restore: could not open weights file: %w", err)
	}
	defer file.Close()

	var p params
	if err := gob.NewDecoder(file).Decode(&p); err != nil {
		return fmt.Errorf("restore: could not decode weights: %w", err)
	}

	if p.Features != m.features || p.Outputs != m.outputs {
		return fmt.Errorf("restore: incompatible network\n\twant(%v -> %v)"+
			"\n\thave(%v -> %v)", m.features, m.outputs, p.Features,
			p.Outputs)
	}
	if len(p.Hidden) != len(p.Activations) ||
		len(p.Weights) != 2*(len(p.Hidden)+1) ||
		len(p.Shapes) != len(p.Weights) {
		return fmt.Errorf("restore: malformed weights file %v", path)
	}

	restored := &MLP{features: p.Features, outputs: p.Outputs,
		hidden: p.Hidden}
	sizes := restored.sizes()

	values := make([]tensor.Tensor, len(p.Weights))
	for i := range p.Weights {
		in, out := sizes[i/2], sizes[i/2+1]
		want := []int{in, out}
		if i%2 == 1 {
			want = []int{1, out}
		}
		if !tensor.Shape(p.Shapes[i]).Eq(tensor.Shape(want)) ||
			tensor.Shape(want).TotalSize() != len(p.Weights[i]) {
			return fmt.Errorf("restore: malformed weights file %v", path)
		}
		values[i] = tensor.New(tensor.WithShape(p.Shapes[i]...),
			tensor.WithBacking(p.Weights[i]))
	}

	m.hidden, m.acts, m.dropout = p.Hidden, p.Activations, p.Dropout
	if err := m.build(nil, values); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	return nil
}
