// Package track records recent episode returns for progress reporting.
package track

import (
	"math"

	"github.com/gammazero/deque"
	"gonum.org/v1/gonum/stat"
)

// Window keeps a bounded history of the most recent episode returns.
// It is not safe for concurrent use; the learner records from its
// evaluation loop only.
type Window struct {
	size     int
	returns  deque.Deque[float64]
	best     float64
	episodes int
}

// NewWindow returns a window holding up to size returns.
func NewWindow(size int) *Window {
	return &Window{size: size, best: math.Inf(-1)}
}

// Record adds one episode return, evicting the oldest past capacity.
func (w *Window) Record(episodeReturn float64) {
	w.returns.PushBack(episodeReturn)
	if w.returns.Len() > w.size {
		w.returns.PopFront()
	}
	if episodeReturn > w.best {
		w.best = episodeReturn
	}
	w.episodes++
}

// Mean returns the mean of the windowed returns, or 0 when empty.
func (w *Window) Mean() float64 {
	if w.returns.Len() == 0 {
		return 0
	}
	return stat.Mean(w.snapshot(), nil)
}

// Best returns the highest return seen so far.
func (w *Window) Best() float64 { return w.best }

// Episodes returns the total number of recorded episodes.
func (w *Window) Episodes() int { return w.episodes }

// Len returns the number of returns currently windowed.
func (w *Window) Len() int { return w.returns.Len() }

func (w *Window) snapshot() []float64 {
	out := make([]float64, w.returns.Len())
	for i := range out {
		out[i] = w.returns.At(i)
	}
	return out
}
