// Package policy provides behavior policies for the async agents.
package policy

import (
	"math/rand"

	"github.com/lode-ml/lode/pkg/v1/dense"
)

// Option configures an EpsilonGreedy policy.
type Option func(*EpsilonGreedy)

// WithRand sets the random source used for exploration. The default is the
// process-wide source, which is safe for concurrent workers.
func WithRand(rng *rand.Rand) Option {
	return func(p *EpsilonGreedy) { p.rng = rng }
}

// EpsilonGreedy selects the highest-valued action, except with probability
// epsilon it explores uniformly. Epsilon decays exponentially towards a
// floor on every Anneal call.
//
// One policy instance is shared by every worker. Anneal is called without
// synchronization; lost updates only perturb the exploration schedule and
// are accepted. The greedy path never touches the random source, so
// deterministic sampling is a pure function of the action values.
type EpsilonGreedy struct {
	epsilon float64
	min     float64
	delta   float64
	rng     *rand.Rand
}

// NewEpsilonGreedy returns a policy starting at initial exploration
// probability, decaying by decayRate per anneal step and never dropping
// below min.
func NewEpsilonGreedy(initial, min, decayRate float64, opts ...Option) *EpsilonGreedy {
	p := &EpsilonGreedy{
		epsilon: initial,
		min:     min,
		delta:   1 - decayRate,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Sample returns an action for the given action values. When deterministic
// is set the choice is always greedy.
func (p *EpsilonGreedy) Sample(actionValues []float64, deterministic bool) int {
	if !deterministic && p.float64() < p.epsilon {
		return p.intn(len(actionValues))
	}
	return dense.ArgMax(actionValues)
}

// Anneal decays the exploration probability one step.
func (p *EpsilonGreedy) Anneal() {
	p.epsilon *= p.delta
	if p.epsilon < p.min {
		p.epsilon = p.min
	}
}

// Epsilon returns the current exploration probability.
func (p *EpsilonGreedy) Epsilon() float64 { return p.epsilon }

func (p *EpsilonGreedy) float64() float64 {
	if p.rng != nil {
		return p.rng.Float64()
	}
	return rand.Float64()
}

func (p *EpsilonGreedy) intn(n int) int {
	if p.rng != nil {
		return p.rng.Intn(n)
	}
	return rand.Intn(n)
}
