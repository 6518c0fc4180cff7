package async

import (
	"sync"
	"sync/atomic"

	"github.com/lode-ml/lode/pkg/v1/net"
)

// Shared is the state every worker of a run mutates: the learning network,
// the target network and the global step counter.
//
// The learning network's parameters are updated without locking; concurrent
// workers may interleave writes (Hogwild). The target network is the only
// synchronized surface: one process-wide mutex covers both the bootstrap
// reads during a flush and the periodic learning-to-target copy.
type Shared struct {
	Learning *net.MLP
	Target   *net.MLP

	steps    uint64
	targetMu sync.Mutex
}

// NewShared takes ownership of learning and seeds the target network with a
// copy of it.
func NewShared(learning *net.MLP) *Shared {
	return &Shared{
		Learning: learning,
		Target:   learning.Clone(),
	}
}

// Steps returns the total number of stochastic steps taken across all
// workers.
func (s *Shared) Steps() uint64 {
	return atomic.LoadUint64(&s.steps)
}

// incSteps counts one stochastic step and returns the post-increment total.
func (s *Shared) incSteps() uint64 {
	return atomic.AddUint64(&s.steps, 1)
}

// predictTarget reads bootstrap action values from the target network. This
// is the one synchronized read on the training hot path.
func (s *Shared) predictTarget(encoded []float64) []float64 {
	s.targetMu.Lock()
	defer s.targetMu.Unlock()
	return s.Target.Predict(encoded)
}

// syncTarget promotes the learning network into the target network.
// Redundant concurrent syncs are idempotent; the mutex only keeps a copy
// from interleaving with a partial predictTarget read.
func (s *Shared) syncTarget() {
	s.targetMu.Lock()
	defer s.targetMu.Unlock()
	s.Target.CopyFrom(s.Learning)
}
