// Package async implements asynchronous multi-worker one-step temporal
// difference agents (SARSA and Q-learning). Many identical workers simulate
// independent trajectories, push clamped gradient batches into one shared
// learning network without locking, and periodically promote it into a
// shared target network inside a narrow critical section.
package async

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/lode-ml/lode/pkg/v1/dense"
	"github.com/lode-ml/lode/pkg/v1/env"
	"github.com/lode-ml/lode/pkg/v1/net"
)

// Policy is the shared behavior policy boundary.
type Policy interface {
	// Sample selects an action for the given action values. Deterministic
	// sampling is always greedy and must not consume randomness.
	Sample(actionValues []float64, deterministic bool) int

	// Anneal advances the exploration schedule one step.
	Anneal()
}

// Updater applies a gradient to a parameter vector in place.
type Updater interface {
	Update(params *mat.Dense, stepSize float64, grad *mat.Dense)
}

// Worker executes one step of an episode against the shared state. The
// returned totalReward is the episode return and is only valid when done is
// true.
type Worker interface {
	Step(shared *Shared, policy Policy) (totalReward float64, done bool)
}

// workerBase carries the per-worker state common to the one-step workers:
// the exclusively owned local network clone and the episode bookkeeping.
type workerBase struct {
	updater       Updater
	environment   env.Environment
	config        *TrainingConfig
	deterministic bool

	network       *net.MLP
	state         env.State
	steps         int
	episodeReturn float64
	pendingIndex  int
}

func newWorkerBase(updater Updater, environment env.Environment, network *net.MLP, config *TrainingConfig, deterministic bool) (workerBase, error) {
	if config == nil {
		config = DefaultTrainingConfig
	}
	if err := config.Validate(); err != nil {
		return workerBase{}, err
	}
	if updater == nil {
		return workerBase{}, fmt.Errorf("async: updater must not be nil")
	}
	if environment == nil {
		return workerBase{}, fmt.Errorf("async: environment must not be nil")
	}
	if network == nil {
		return workerBase{}, fmt.Errorf("async: network must not be nil")
	}
	w := workerBase{
		updater:       updater,
		environment:   environment,
		config:        config,
		deterministic: deterministic,
		network:       network.Clone(),
	}
	w.reset()
	return w, nil
}

// reset starts a fresh episode. The local network is left untouched.
func (w *workerBase) reset() {
	w.steps = 0
	w.episodeReturn = 0
	w.pendingIndex = 0
	w.state = w.environment.InitialSample()
}

// applyGradients clamps the accumulated gradients and performs the
// unsynchronized Hogwild update of the shared learning network, then resyncs
// the local clone from it.
func (w *workerBase) applyGradients(shared *Shared, total *mat.Dense) {
	dense.Clamp(total, w.config.GradientLimit)
	w.updater.Update(shared.Learning.Parameters(), w.config.StepSize, total)
	w.network.CopyFrom(shared.Learning)
	w.pendingIndex = 0
}
