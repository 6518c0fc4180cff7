// Package cartpole implements the classic cart-pole balancing task.
package cartpole

import (
	"math"
	"math/rand"

	"github.com/lode-ml/lode/pkg/v1/env"
)

const (
	gravity        = 9.8
	massCart       = 1.0
	massPole       = 0.1
	totalMass      = massCart + massPole
	length         = 0.5
	poleMassLength = massPole * length
	forceMag       = 10.0
	tau            = 0.02

	xThreshold     = 2.4
	thetaThreshold = 12.0 * math.Pi / 180.0
)

// Actions available to the agent.
const (
	PushLeft = iota
	PushRight
	NumActions
)

// State holds the cart position and velocity and the pole angle and angular
// velocity.
type State struct {
	X        float64
	XDot     float64
	Theta    float64
	ThetaDot float64
}

// Encode returns the state as a feature vector.
func (s State) Encode() []float64 {
	return []float64{s.X, s.XDot, s.Theta, s.ThetaDot}
}

// Env is a cart-pole instance. The dynamics are a pure function of
// (state, action); the random source is only used for initial states.
type Env struct {
	rng *rand.Rand
}

// New returns a cart-pole environment. A nil rng falls back to an
// unseeded source.
func New(rng *rand.Rand) *Env {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Env{rng: rng}
}

// InitialSample draws a start state with every component in [-0.05, 0.05).
func (e *Env) InitialSample() env.State {
	return State{
		X:        e.rng.Float64()*0.1 - 0.05,
		XDot:     e.rng.Float64()*0.1 - 0.05,
		Theta:    e.rng.Float64()*0.1 - 0.05,
		ThetaDot: e.rng.Float64()*0.1 - 0.05,
	}
}

// Sample advances the physics one tick and rewards every surviving step.
func (e *Env) Sample(state env.State, action int) (float64, env.State) {
	s := state.(State)

	force := forceMag
	if action == PushLeft {
		force = -forceMag
	}

	cosTheta := math.Cos(s.Theta)
	sinTheta := math.Sin(s.Theta)

	temp := (force + poleMassLength*s.ThetaDot*s.ThetaDot*sinTheta) / totalMass
	thetaAcc := (gravity*sinTheta - cosTheta*temp) /
		(length * (4.0/3.0 - massPole*cosTheta*cosTheta/totalMass))
	xAcc := temp - poleMassLength*thetaAcc*cosTheta/totalMass

	next := State{
		X:        s.X + tau*s.XDot,
		XDot:     s.XDot + tau*xAcc,
		Theta:    s.Theta + tau*s.ThetaDot,
		ThetaDot: s.ThetaDot + tau*thetaAcc,
	}
	return 1.0, next
}

// IsTerminal reports whether the cart left the track or the pole fell over.
func (e *Env) IsTerminal(state env.State) bool {
	s := state.(State)
	return s.X < -xThreshold || s.X > xThreshold ||
		s.Theta < -thetaThreshold || s.Theta > thetaThreshold
}
