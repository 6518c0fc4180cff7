// Package net provides the feed-forward action-value network used by the
// async agents.
package net

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Config describes a fully connected network.
type Config struct {
	// Inputs is the length of an encoded state.
	Inputs int

	// Hidden holds the width of each hidden layer, in order.
	Hidden []int

	// Outputs is the number of actions.
	Outputs int

	// Seed for the weight initialization.
	Seed int64
}

// MLP is a fully connected network with ReLU hidden layers, a linear output
// layer and a mean squared error loss.
//
// Every learnable parameter lives in one flat column vector; Parameters
// exposes the live storage, so an updater mutating it in place is immediately
// visible to subsequent forward passes. Predict is read-only and may be
// called concurrently on a single instance; Forward and Backward keep
// per-call state and belong to exactly one goroutine.
type MLP struct {
	sizes  []int // layer widths, input first
	data   []float64
	params *mat.Dense

	// Caches retained by Forward for the following Backward.
	acts [][]float64
	pre  [][]float64
}

// New constructs a network from c, initializing weights from a seeded source.
func New(c Config) (*MLP, error) {
	if c.Inputs <= 0 || c.Outputs <= 0 {
		return nil, fmt.Errorf("net: inputs and outputs must be positive, got %d and %d", c.Inputs, c.Outputs)
	}
	sizes := make([]int, 0, len(c.Hidden)+2)
	sizes = append(sizes, c.Inputs)
	for _, h := range c.Hidden {
		if h <= 0 {
			return nil, fmt.Errorf("net: hidden layer width must be positive, got %d", h)
		}
		sizes = append(sizes, h)
	}
	sizes = append(sizes, c.Outputs)

	n := 0
	for l := 0; l < len(sizes)-1; l++ {
		n += sizes[l+1]*sizes[l] + sizes[l+1]
	}

	m := &MLP{sizes: sizes, data: make([]float64, n)}
	m.params = mat.NewDense(n, 1, m.data)
	m.init(rand.New(rand.NewSource(c.Seed)))
	return m, nil
}

// init draws weights from a scaled uniform distribution and zeroes biases.
func (m *MLP) init(rng *rand.Rand) {
	for l := 0; l < m.layers(); l++ {
		w, _ := m.layer(l)
		scale := 1.0 / math.Sqrt(float64(m.sizes[l]))
		for i := range w {
			w[i] = (rng.Float64()*2 - 1) * scale
		}
	}
}

func (m *MLP) layers() int { return len(m.sizes) - 1 }

// layer returns views of the weights (row-major, out x in) and biases of
// layer l inside the flat parameter vector.
func (m *MLP) layer(l int) (weights, bias []float64) {
	off := 0
	for i := 0; i < l; i++ {
		off += m.sizes[i+1]*m.sizes[i] + m.sizes[i+1]
	}
	wn := m.sizes[l+1] * m.sizes[l]
	return m.data[off : off+wn], m.data[off+wn : off+wn+m.sizes[l+1]]
}

// Inputs returns the expected encoded state length.
func (m *MLP) Inputs() int { return m.sizes[0] }

// Outputs returns the number of actions the network scores.
func (m *MLP) Outputs() int { return m.sizes[len(m.sizes)-1] }

// Parameters returns the live flat parameter column vector.
func (m *MLP) Parameters() *mat.Dense { return m.params }

// Predict returns the action values for the encoded state. It retains no
// state on the receiver.
func (m *MLP) Predict(encoded []float64) []float64 {
	out := encoded
	for l := 0; l < m.layers(); l++ {
		out = m.apply(l, out, make([]float64, m.sizes[l+1]))
	}
	return out
}

// Forward returns the action values for the encoded state, caching the
// intermediate activations for a following Backward call.
func (m *MLP) Forward(encoded []float64) []float64 {
	if m.acts == nil {
		m.acts = make([][]float64, m.layers()+1)
		m.pre = make([][]float64, m.layers())
		for l := 0; l < m.layers(); l++ {
			m.pre[l] = make([]float64, m.sizes[l+1])
			m.acts[l+1] = make([]float64, m.sizes[l+1])
		}
	}
	m.acts[0] = append(m.acts[0][:0], encoded...)
	for l := 0; l < m.layers(); l++ {
		m.applyInto(l, m.acts[l], m.pre[l], m.acts[l+1])
	}
	out := make([]float64, m.Outputs())
	copy(out, m.acts[m.layers()])
	return out
}

// Backward computes the loss gradient with respect to every parameter for
// the encoded state and target action values of the preceding Forward call.
// The result has the same shape as Parameters.
func (m *MLP) Backward(encoded, target []float64) *mat.Dense {
	grad := make([]float64, len(m.data))
	gm := mat.NewDense(len(grad), 1, grad)

	last := m.layers() - 1
	delta := make([]float64, m.sizes[last+1])
	for i := range delta {
		delta[i] = m.acts[last+1][i] - target[i]
	}

	for l := last; l >= 0; l-- {
		w, _ := m.layer(l)
		gw, gb := m.gradLayer(grad, l)
		in := m.acts[l]
		cols := m.sizes[l]
		for i, d := range delta {
			row := gw[i*cols : (i+1)*cols]
			for j, x := range in {
				row[j] = d * x
			}
			gb[i] = d
		}
		if l == 0 {
			break
		}
		prev := make([]float64, m.sizes[l])
		for j := range prev {
			var sum float64
			for i, d := range delta {
				sum += w[i*cols+j] * d
			}
			if m.pre[l-1][j] <= 0 {
				sum = 0 // ReLU gate
			}
			prev[j] = sum
		}
		delta = prev
	}
	return gm
}

// gradLayer mirrors layer over a gradient buffer of the same layout.
func (m *MLP) gradLayer(grad []float64, l int) (weights, bias []float64) {
	off := 0
	for i := 0; i < l; i++ {
		off += m.sizes[i+1]*m.sizes[i] + m.sizes[i+1]
	}
	wn := m.sizes[l+1] * m.sizes[l]
	return grad[off : off+wn], grad[off+wn : off+wn+m.sizes[l+1]]
}

// apply computes layer l over in, writing into out, and returns out.
func (m *MLP) apply(l int, in, out []float64) []float64 {
	m.applyInto(l, in, out, out)
	return out
}

// applyInto computes the pre-activation of layer l into pre and the
// activation into out. pre and out may alias.
func (m *MLP) applyInto(l int, in, pre, out []float64) {
	w, b := m.layer(l)
	cols := m.sizes[l]
	hidden := l < m.layers()-1
	for i := 0; i < m.sizes[l+1]; i++ {
		sum := b[i]
		row := w[i*cols : (i+1)*cols]
		for j, x := range in {
			sum += row[j] * x
		}
		pre[i] = sum
		if hidden && sum < 0 {
			sum = 0
		}
		out[i] = sum
	}
}

// Clone returns an independent copy of the network values.
func (m *MLP) Clone() *MLP {
	c := &MLP{sizes: m.sizes, data: make([]float64, len(m.data))}
	copy(c.data, m.data)
	c.params = mat.NewDense(len(c.data), 1, c.data)
	return c
}

// CopyFrom overwrites the receiver's parameter values with those of o. The
// two networks must share a configuration. The copy is deliberately
// unsynchronized against concurrent Hogwild writers on o.
func (m *MLP) CopyFrom(o *MLP) {
	copy(m.data, o.data)
}
