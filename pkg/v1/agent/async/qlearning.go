package async

import (
	"github.com/lode-ml/lode/pkg/v1/dense"
	"github.com/lode-ml/lode/pkg/v1/env"
	"github.com/lode-ml/lode/pkg/v1/net"
)

// OneStepQLearningWorker runs one worker of the asynchronous one-step
// Q-learning algorithm. Unlike SARSA it bootstraps off-policy, from the
// maximum target action value, and so carries no action between steps.
type OneStepQLearningWorker struct {
	workerBase

	pending []QLearningTransition
}

// NewOneStepQLearningWorker constructs a worker owning a clone of network.
// A nil config falls back to DefaultTrainingConfig.
func NewOneStepQLearningWorker(updater Updater, environment env.Environment, network *net.MLP, config *TrainingConfig, deterministic bool) (*OneStepQLearningWorker, error) {
	base, err := newWorkerBase(updater, environment, network, config, deterministic)
	if err != nil {
		return nil, err
	}
	return &OneStepQLearningWorker{
		workerBase: base,
		pending:    make([]QLearningTransition, base.config.UpdateInterval),
	}, nil
}

// Step executes one environment step. The returned totalReward is the
// episode return and is only valid when done is true.
func (w *OneStepQLearningWorker) Step(shared *Shared, policy Policy) (totalReward float64, done bool) {
	actionValues := w.network.Predict(w.state.Encode())
	action := policy.Sample(actionValues, w.deterministic)

	reward, nextState := w.environment.Sample(w.state, action)
	terminal := w.environment.IsTerminal(nextState)

	w.episodeReturn += reward
	w.steps++

	terminal = terminal || w.steps >= w.config.StepLimit
	if w.deterministic {
		if terminal {
			totalReward = w.episodeReturn
			w.reset()
			// Evaluate the next episode with the latest weights.
			w.network.CopyFrom(shared.Learning)
			return totalReward, true
		}
		w.state = nextState
		return 0, false
	}

	steps := shared.incSteps()

	w.pending[w.pendingIndex] = QLearningTransition{
		State:     w.state,
		Action:    action,
		Reward:    reward,
		NextState: nextState,
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
		w.reset()
		return totalReward, true
	}
	w.state = nextState
	return 0, false
}

func (w *OneStepQLearningWorker) flush(shared *Shared, terminal bool) {
	total := dense.ZerosLike(shared.Learning.Parameters())
	n := w.pendingIndex
	for i := 0; i < n; i++ {
		transition := &w.pending[i]

		targetValues := shared.predictTarget(transition.NextState.Encode())
		target := qLearningTarget(transition, targetValues, w.config.Discount, terminal && i == n-1)

		input := transition.State.Encode()
		actionValues := w.network.Forward(input)
		actionValues[transition.Action] = target
		dense.Add(total, w.network.Backward(input, actionValues))
	}
	w.applyGradients(shared, total)
}

// qLearningTarget computes the one-step max-bootstrap target. The bootstrap
// is forced to zero for the final transition of a terminal flush.
func qLearningTarget(t *QLearningTransition, targetValues []float64, discount float64, terminalLast bool) float64 {
	bootstrap := 0.0
	if !terminalLast {
		bootstrap = dense.Max(targetValues)
	}
	return t.Reward + discount*bootstrap
}
