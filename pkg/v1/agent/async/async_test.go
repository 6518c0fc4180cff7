package async

import (
	"sync/atomic"
	"testing"

	"github.com/lode-ml/lode/pkg/v1/env"
	"github.com/lode-ml/lode/pkg/v1/net"
	"github.com/lode-ml/lode/pkg/v1/optimize"
)

// stepState is a position on a scripted line task.
type stepState int

func (s stepState) Encode() []float64 { return []float64{float64(s)} }

// scriptEnv walks right one position per step, paying out scripted rewards.
// terminalAt < 0 makes the task endless.
type scriptEnv struct {
	rewards    []float64
	terminalAt int
}

func (e *scriptEnv) InitialSample() env.State { return stepState(0) }

func (e *scriptEnv) Sample(s env.State, action int) (float64, env.State) {
	pos := int(s.(stepState))
	return e.rewards[pos%len(e.rewards)], stepState(pos + 1)
}

func (e *scriptEnv) IsTerminal(s env.State) bool {
	return e.terminalAt >= 0 && int(s.(stepState)) >= e.terminalAt
}

// fixedPolicy always selects the same action and counts anneals.
type fixedPolicy struct {
	action  int
	anneals int64
}

func (p *fixedPolicy) Sample(actionValues []float64, deterministic bool) int { return p.action }

func (p *fixedPolicy) Anneal() { atomic.AddInt64(&p.anneals, 1) }

func (p *fixedPolicy) Anneals() int64 { return atomic.LoadInt64(&p.anneals) }

func testNetwork(seed int64) *net.MLP {
	m, err := net.New(net.Config{Inputs: 1, Hidden: []int{3}, Outputs: 2, Seed: seed})
	if err != nil {
		panic(err)
	}
	return m
}

func testCartpoleNetwork(t *testing.T) *net.MLP {
	m, err := net.New(net.Config{Inputs: 4, Hidden: []int{8}, Outputs: 2, Seed: 3})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func testConfig() *TrainingConfig {
	c := *DefaultTrainingConfig
	c.NumWorkers = 1
	c.StepLimit = 1000
	c.UpdateInterval = 3
	c.TargetNetworkSyncInterval = 1 << 30
	c.Discount = 0.9
	c.GradientLimit = 5
	c.StepSize = 0.01
	return &c
}

func newSGD() Updater { return optimize.SGD{} }
