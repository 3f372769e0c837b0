package initwfn

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// fans returns the fan in and fan out of a weight tensor of shape s
func fans(s ...int) (float64, float64) {
	switch len(s) {
	case 0:
		return 1, 1
	case 1:
		return float64(s[0]), float64(s[0])
	default:
		return float64(s[0]), float64(s[1])
	}
}

// sampled returns an InitWFn that fills weights with samples from the
// distribution returned by dist, given the fan in and fan out of the
// weights. Successive calls draw from a single seeded source.
func sampled(seed uint64, dist func(in, out float64,
	src rand.Source) interface{ Rand() float64 }) G.InitWFn {
	src := rand.NewSource(seed)

	return func(dt tensor.Dtype, s ...int) interface{} {
		in, out := fans(s...)
		d := dist(in, out, src)

		size := tensor.Shape(s).TotalSize()
		switch dt {
		case tensor.Float64:
			w := make([]float64, size)
			for i := range w {
				w[i] = d.Rand()
			}
			return w
		case tensor.Float32:
			w := make([]float32, size)
			for i := range w {
				w[i] = float32(d.Rand())
			}
			return w
		default:
			panic(fmt.Sprintf("initwfn: dtype %v not supported", dt))
		}
	}
}

func uniform(bound float64, src rand.Source) interface{ Rand() float64 } {
	return distuv.Uniform{Min: -bound, Max: bound, Src: src}
}

func normal(stddev float64, src rand.Source) interface{ Rand() float64 } {
	return distuv.Normal{Mu: 0, Sigma: stddev, Src: src}
}

// GlorotUConfig implements a configuration of the Glorot Uniform
// initialization algorithm.
type GlorotUConfig struct {
	Gain float64
	Seed uint64
}

// NewGlorotU returns a new Glorot Uniform weight initializer
func NewGlorotU(gain float64, seed uint64) *InitWFn {
	return newInitWFn(GlorotUConfig{Gain: gain, Seed: seed})
}

// Type returns the type of initialization algorithm described by
// the configuration.
func (g GlorotUConfig) Type() Type { return GlorotU }

// Create returns the weight initialization algorithm as a Gorgonia
// InitWFn
func (g GlorotUConfig) Create() G.InitWFn {
	return sampled(g.Seed, func(in, out float64,
		src rand.Source) interface{ Rand() float64 } {
		return uniform(g.Gain*math.Sqrt(6/(in+out)), src)
	})
}

// GlorotNConfig implements a configuration of the Glorot Normal
// initialization algorithm.
type GlorotNConfig struct {
	Gain float64
	Seed uint64
}

// NewGlorotN returns a new Glorot Normal weight initializer.
func NewGlorotN(gain float64, seed uint64) *InitWFn {
	return newInitWFn(GlorotNConfig{Gain: gain, Seed: seed})
}

// Type returns the type of initialization algorithm described by
// the configuration.
func (g GlorotNConfig) Type() Type { return GlorotN }

// Create returns the weight initialization algorithm as a Gorgonia
// InitWFn
func (g GlorotNConfig) Create() G.InitWFn {
	return sampled(g.Seed, func(in, out float64,
		src rand.Source) interface{ Rand() float64 } {
		return normal(g.Gain*math.Sqrt(2/(in+out)), src)
	})
}

// HeUConfig implements a configuration of the He Uniform
// initialization algorithm.
type HeUConfig struct {
	Gain float64
	Seed uint64
}

// NewHeU returns a new He Uniform weight initializer
func NewHeU(gain float64, seed uint64) *InitWFn {
	return newInitWFn(HeUConfig{Gain: gain, Seed: seed})
}

// Type returns the type of initialization algorithm described by
// the configuration.
func (h HeUConfig) Type() Type { return HeU }

// Create returns the weight initialization algorithm as a Gorgonia
// InitWFn
func (h HeUConfig) Create() G.InitWFn {
	return sampled(h.Seed, func(in, _ float64,
		src rand.Source) interface{ Rand() float64 } {
		return uniform(h.Gain*math.Sqrt(6/in), src)
	})
}

// HeNConfig implements a configuration of the He Normal
// initialization algorithm.
type HeNConfig struct {
	Gain float64
	Seed uint64
}

// NewHeN returns a new He Normal weight initializer
func NewHeN(gain float64, seed uint64) *InitWFn {
	return newInitWFn(HeNConfig{Gain: gain, Seed: seed})
}

// Type returns the type of initialization algorithm described by
// the configuration.
func (h HeNConfig) Type() Type { return HeN }

// Create returns the weight initialization algorithm as a Gorgonia
// InitWFn
func (h HeNConfig) Create() G.InitWFn {
	return sampled(h.Seed, func(in, _ float64,
		src rand.Source) interface{ Rand() float64 } {
		return normal(h.Gain*math.Sqrt(2/in), src)
	})
}
