// Package dense provides small helpers for the flat parameter and gradient
// matrices used by the async agents.
package dense

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ZerosLike returns a zero matrix with the same shape as m.
func ZerosLike(m *mat.Dense) *mat.Dense {
	r, c := m.Dims()
	return mat.NewDense(r, c, nil)
}

// Add accumulates src into dst elementwise. Both must share a shape.
func Add(dst, src *mat.Dense) {
	floats.Add(dst.RawMatrix().Data, src.RawMatrix().Data)
}

// Clamp limits every element of m to the range [-limit, limit] in place.
func Clamp(m *mat.Dense, limit float64) {
	data := m.RawMatrix().Data
	for i, v := range data {
		if v > limit {
			data[i] = limit
		} else if v < -limit {
			data[i] = -limit
		}
	}
}

// ArgMax returns the index of the first maximum element of v.
func ArgMax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

// Max returns the maximum element of v.
func Max(v []float64) float64 {
	return floats.Max(v)
}
