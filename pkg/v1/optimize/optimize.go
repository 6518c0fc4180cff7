// Package optimize provides in-place parameter updaters.
package optimize

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// SGD is plain stochastic gradient descent.
type SGD struct{}

// Update applies params -= stepSize * grad in place.
func (SGD) Update(params *mat.Dense, stepSize float64, grad *mat.Dense) {
	floats.AddScaled(params.RawMatrix().Data, -stepSize, grad.RawMatrix().Data)
}

// Momentum is gradient descent with classical momentum. Velocity is kept on
// the instance, so each worker must own its own Momentum value.
type Momentum struct {
	Mu       float64
	velocity []float64
}

// NewMomentum returns a momentum updater with coefficient mu.
func NewMomentum(mu float64) *Momentum {
	return &Momentum{Mu: mu}
}

// Update applies v = mu*v - stepSize*grad; params += v in place.
func (m *Momentum) Update(params *mat.Dense, stepSize float64, grad *mat.Dense) {
	p := params.RawMatrix().Data
	g := grad.RawMatrix().Data
	if m.velocity == nil {
		m.velocity = make([]float64, len(p))
	}
	floats.Scale(m.Mu, m.velocity)
	floats.AddScaled(m.velocity, -stepSize, g)
	floats.Add(p, m.velocity)
}
