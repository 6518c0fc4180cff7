package async

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lode-ml/lode/pkg/v1/dense"
	"github.com/lode-ml/lode/pkg/v1/env/cartpole"
	"github.com/lode-ml/lode/pkg/v1/policy"
)

func TestPendingIndexNeverExceedsUpdateInterval(t *testing.T) {
	config := testConfig()
	shared := NewShared(testNetwork(1))
	w, err := NewOneStepSarsaWorker(newSGD(), &scriptEnv{rewards: []float64{1}, terminalAt: -1}, shared.Learning, config, false)
	require.NoError(t, err)

	pol := &fixedPolicy{}
	for i := 0; i < 20; i++ {
		w.Step(shared, pol)
		assert.GreaterOrEqual(t, w.pendingIndex, 0)
		assert.Less(t, w.pendingIndex, config.UpdateInterval, "a full buffer must flush within the same step")
	}
}

func TestEpisodeReturnIsRewardSum(t *testing.T) {
	config := testConfig()
	shared := NewShared(testNetwork(1))
	environment := &scriptEnv{rewards: []float64{1, 2, 3, 4, 5}, terminalAt: 4}
	w, err := NewOneStepSarsaWorker(newSGD(), environment, shared.Learning, config, false)
	require.NoError(t, err)

	pol := &fixedPolicy{}
	var totalReward float64
	var done bool
	steps := 0
	for !done {
		totalReward, done = w.Step(shared, pol)
		steps++
	}
	assert.Equal(t, 4, steps)
	assert.Equal(t, 1.0+2+3+4, totalReward)
}

func TestStepLimitEndsEpisode(t *testing.T) {
	config := testConfig()
	config.StepLimit = 7
	shared := NewShared(testNetwork(1))
	w, err := NewOneStepSarsaWorker(newSGD(), &scriptEnv{rewards: []float64{1}, terminalAt: -1}, shared.Learning, config, false)
	require.NoError(t, err)

	pol := &fixedPolicy{}
	var totalReward float64
	var done bool
	steps := 0
	for !done {
		totalReward, done = w.Step(shared, pol)
		steps++
		require.LessOrEqual(t, steps, config.StepLimit)
	}
	assert.Equal(t, config.StepLimit, steps)
	assert.Equal(t, 7.0, totalReward)

	// The next episode starts fresh.
	assert.Equal(t, 0, w.steps)
	assert.False(t, w.hasAction)
}

func TestAnnealCalledEveryStochasticStep(t *testing.T) {
	config := testConfig()
	shared := NewShared(testNetwork(1))
	w, err := NewOneStepSarsaWorker(newSGD(), &scriptEnv{rewards: []float64{1}, terminalAt: 2}, shared.Learning, config, false)
	require.NoError(t, err)

	pol := &fixedPolicy{}
	for i := 0; i < 10; i++ {
		w.Step(shared, pol)
	}
	assert.Equal(t, int64(10), pol.Anneals())
}

func TestSharedStepCounterCountsEveryStochasticStep(t *testing.T) {
	const workers = 8
	const stepsPerWorker = 500

	config := testConfig()
	// Keep flushes and target syncs out of the way so only the counter is
	// exercised concurrently.
	config.UpdateInterval = stepsPerWorker + 1
	shared := NewShared(testNetwork(1))
	pol := &fixedPolicy{}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		w, err := NewOneStepSarsaWorker(newSGD(), &scriptEnv{rewards: []float64{1}, terminalAt: -1}, shared.Learning, config, false)
		require.NoError(t, err)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < stepsPerWorker; j++ {
				w.Step(shared, pol)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(workers*stepsPerWorker), shared.Steps())
	assert.Equal(t, int64(workers*stepsPerWorker), pol.Anneals())
}

func TestTargetSyncsOnCounterMultiple(t *testing.T) {
	config := testConfig()
	config.TargetNetworkSyncInterval = 100
	shared := NewShared(testNetwork(1))
	w, err := NewOneStepSarsaWorker(newSGD(), &scriptEnv{rewards: []float64{1}, terminalAt: -1}, shared.Learning, config, false)
	require.NoError(t, err)

	pol := &fixedPolicy{}
	for i := 0; i < 99; i++ {
		w.Step(shared, pol)
	}
	learning := shared.Learning.Parameters().RawMatrix().Data
	target := shared.Target.Parameters().RawMatrix().Data
	assert.NotEqual(t, learning, target, "flushes have moved the learning network since the last sync")

	w.Step(shared, pol)
	require.Equal(t, uint64(100), shared.Steps())
	assert.Equal(t, learning, target, "the 100th step promotes the learning network")
}

func TestFlushAccumulatesGradientsThenClamps(t *testing.T) {
	config := testConfig()
	config.GradientLimit = 1e-3 // small enough that clamping after summation matters
	config.StepSize = 0.1

	network := testNetwork(2)
	shared := NewShared(network.Clone())
	w, err := NewOneStepSarsaWorker(newSGD(), &scriptEnv{rewards: []float64{1, 2, 3}, terminalAt: -1}, shared.Learning, config, false)
	require.NoError(t, err)

	// Replay the three scripted transitions against frozen copies.
	local := network.Clone()
	target := shared.Target.Clone()
	initial := append([]float64{}, shared.Learning.Parameters().RawMatrix().Data...)

	expected := dense.ZerosLike(local.Parameters())
	rewards := []float64{1, 2, 3}
	for i := 0; i < 3; i++ {
		next := stepState(i + 1)
		targetValues := target.Predict(next.Encode())
		targetValue := rewards[i] + config.Discount*targetValues[0]

		input := stepState(i).Encode()
		actionValues := local.Forward(input)
		actionValues[0] = targetValue
		dense.Add(expected, local.Backward(input, actionValues))
	}
	dense.Clamp(expected, config.GradientLimit)

	pol := &fixedPolicy{action: 0}
	for i := 0; i < 3; i++ {
		w.Step(shared, pol)
	}

	want := make([]float64, len(initial))
	for i := range want {
		want[i] = initial[i] - config.StepSize*expected.RawMatrix().Data[i]
	}
	assert.InDeltaSlice(t, want, shared.Learning.Parameters().RawMatrix().Data, 1e-12)
	assert.Equal(t, 0, w.pendingIndex)
}

func TestSarsaTargetBootstrapsSelectedAction(t *testing.T) {
	targetValues := []float64{2, 2}
	for _, transition := range []SarsaTransition{
		{Reward: 1, NextAction: 0},
		{Reward: 1, NextAction: 1},
		{Reward: 1, NextAction: 0},
	} {
		assert.InDelta(t, 2.8, sarsaTarget(&transition, targetValues, 0.9, false), 1e-12)
	}
}

func TestSarsaTargetTerminalFlushZeroesBootstrap(t *testing.T) {
	transition := SarsaTransition{Reward: 1, NextAction: 1}
	assert.InDelta(t, 1.0, sarsaTarget(&transition, []float64{2, 2}, 0.9, true), 1e-12)
}

func TestResetClearsEpisodeStateOnly(t *testing.T) {
	shared := NewShared(testNetwork(1))
	w, err := NewOneStepSarsaWorker(newSGD(), &scriptEnv{rewards: []float64{1}, terminalAt: -1}, shared.Learning, testConfig(), false)
	require.NoError(t, err)

	w.steps = 5
	w.episodeReturn = 3.5
	w.pendingIndex = 2
	w.action = 1
	w.hasAction = true
	snapshot := append([]float64{}, w.network.Parameters().RawMatrix().Data...)

	w.resetEpisode()

	assert.False(t, w.hasAction)
	assert.Zero(t, w.episodeReturn)
	assert.Zero(t, w.steps)
	assert.Zero(t, w.pendingIndex)
	assert.Equal(t, snapshot, w.network.Parameters().RawMatrix().Data)
}

func TestDeterministicTrajectoriesRepeatable(t *testing.T) {
	shared := NewShared(testCartpoleNetwork(t))
	pol := policy.NewEpsilonGreedy(1.0, 0.1, 1e-4)

	run := func(seed int64) []float64 {
		environment := cartpole.New(rand.New(rand.NewSource(seed)))
		w, err := NewOneStepSarsaWorker(newSGD(), environment, shared.Learning, testConfig(), true)
		require.NoError(t, err)

		var returns []float64
		for len(returns) < 5 {
			if totalReward, done := w.Step(shared, pol); done {
				returns = append(returns, totalReward)
			}
		}
		return returns
	}

	assert.Equal(t, run(7), run(7))
}

func TestDeterministicWorkerLeavesSharedUntouched(t *testing.T) {
	shared := NewShared(testCartpoleNetwork(t))
	environment := cartpole.New(rand.New(rand.NewSource(7)))
	w, err := NewOneStepSarsaWorker(newSGD(), environment, shared.Learning, testConfig(), true)
	require.NoError(t, err)

	before := append([]float64{}, shared.Learning.Parameters().RawMatrix().Data...)
	pol := policy.NewEpsilonGreedy(1.0, 0.1, 1e-4)
	for i := 0; i < 500; i++ {
		w.Step(shared, pol)
	}
	assert.Equal(t, before, shared.Learning.Parameters().RawMatrix().Data)
	assert.Zero(t, shared.Steps())
	assert.Equal(t, 1.0, pol.Epsilon(), "evaluation must not anneal the schedule")
}

func TestWorkerRejectsBadConfig(t *testing.T) {
	shared := NewShared(testNetwork(1))
	environment := &scriptEnv{rewards: []float64{1}, terminalAt: -1}

	bad := testConfig()
	bad.UpdateInterval = 0
	_, err := NewOneStepSarsaWorker(newSGD(), environment, shared.Learning, bad, false)
	assert.Error(t, err)

	bad = testConfig()
	bad.StepLimit = -1
	_, err = NewOneStepSarsaWorker(newSGD(), environment, shared.Learning, bad, false)
	assert.Error(t, err)

	bad = testConfig()
	bad.TargetNetworkSyncInterval = 0
	_, err = NewOneStepSarsaWorker(newSGD(), environment, shared.Learning, bad, false)
	assert.Error(t, err)
}
