package async

import (
	"github.com/lode-ml/lode/pkg/v1/dense"
	"github.com/lode-ml/lode/pkg/v1/env"
	"github.com/lode-ml/lode/pkg/v1/net"
)

// OneStepSarsaWorker runs one worker of the asynchronous one-step SARSA
// algorithm. The bootstrap follows the action the behavior policy actually
// selects for the next state, which distinguishes SARSA from Q-learning.
type OneStepSarsaWorker struct {
	workerBase

	pending []SarsaTransition

	// Current action, or the start-of-episode sentinel when hasAction is
	// unset.
	action    int
	hasAction bool
}

// NewOneStepSarsaWorker constructs a worker owning a clone of network. A nil
// config falls back to DefaultTrainingConfig. Deterministic workers evaluate
// greedily and never touch the shared state except to refresh their clone at
// episode end.
func NewOneStepSarsaWorker(updater Updater, environment env.Environment, network *net.MLP, config *TrainingConfig, deterministic bool) (*OneStepSarsaWorker, error) {
	base, err := newWorkerBase(updater, environment, network, config, deterministic)
	if err != nil {
		return nil, err
	}
	return &OneStepSarsaWorker{
		workerBase: base,
		pending:    make([]SarsaTransition, base.config.UpdateInterval),
	}, nil
}

// Step executes one environment step. The returned totalReward is the
// episode return and is only valid when done is true.
func (w *OneStepSarsaWorker) Step(shared *Shared, policy Policy) (totalReward float64, done bool) {
	// An unset action means we are at the beginning of an episode.
	if !w.hasAction {
		actionValues := w.network.Predict(w.state.Encode())
		w.action = policy.Sample(actionValues, w.deterministic)
		w.hasAction = true
	}

	reward, nextState := w.environment.Sample(w.state, w.action)
	terminal := w.environment.IsTerminal(nextState)
	actionValues := w.network.Predict(nextState.Encode())
	nextAction := policy.Sample(actionValues, w.deterministic)

	w.episodeReturn += reward
	w.steps++

	terminal = terminal || w.steps >= w.config.StepLimit
	if w.deterministic {
		if terminal {
			totalReward = w.episodeReturn
			w.resetEpisode()
			// Evaluate the next episode with the latest weights.
			w.network.CopyFrom(shared.Learning)
			return totalReward, true
		}
		w.state = nextState
		w.action = nextAction
		return 0, false
	}

	steps := shared.incSteps()

	w.pending[w.pendingIndex] = SarsaTransition{
		State:      w.state,
		Action:     w.action,
		Reward:     reward,
		NextState:  nextState,
		NextAction: nextAction,
	}
	w.pendingIndex++

	if terminal || w.pendingIndex >= w.config.UpdateInterval {
		w.flush(shared, terminal)
	}

	if steps%uint64(w.config.TargetNetworkSyncInterval) == 0 {
		shared.syncTarget()
	}

	policy.Anneal()

	if terminal {
		totalReward = w.episodeReturn
		w.resetEpisode()
		return totalReward, true
	}
	w.state = nextState
	w.action = nextAction
	return 0, false
}

// flush drains the pending buffer into one accumulated, clamped gradient
// update of the shared learning network.
func (w *OneStepSarsaWorker) flush(shared *Shared, terminal bool) {
	total := dense.ZerosLike(shared.Learning.Parameters())
	n := w.pendingIndex
	for i := 0; i < n; i++ {
		transition := &w.pending[i]

		targetValues := shared.predictTarget(transition.NextState.Encode())
		target := sarsaTarget(transition, targetValues, w.config.Discount, terminal && i == n-1)

		input := transition.State.Encode()
		actionValues := w.network.Forward(input)
		actionValues[transition.Action] = target
		dense.Add(total, w.network.Backward(input, actionValues))
	}
	w.applyGradients(shared, total)
}

// sarsaTarget computes the one-step on-policy bootstrap target. The
// bootstrap is forced to zero for the final transition of a terminal flush.
func sarsaTarget(t *SarsaTransition, targetValues []float64, discount float64, terminalLast bool) float64 {
	bootstrap := 0.0
	if !terminalLast {
		bootstrap = targetValues[t.NextAction]
	}
	return t.Reward + discount*bootstrap
}

func (w *OneStepSarsaWorker) resetEpisode() {
	w.reset()
	w.hasAction = false
}
