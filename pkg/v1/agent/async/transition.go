package async

import "github.com/lode-ml/lode/pkg/v1/env"

// SarsaTransition is one buffered SARSA experience. The stored NextAction is
// the action the behavior policy actually selected, which is what makes the
// bootstrap on-policy.
type SarsaTransition struct {
	State      env.State
	Action     int
	Reward     float64
	NextState  env.State
	NextAction int
}

// QLearningTransition is one buffered Q-learning experience; the bootstrap
// maximizes over the target values instead of following the policy, so no
// next action is stored.
type QLearningTransition struct {
	State     env.State
	Action    int
	Reward    float64
	NextState env.State
}
