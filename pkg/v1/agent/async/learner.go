package async

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/aunum/log"

	"github.com/lode-ml/lode/pkg/v1/env"
	"github.com/lode-ml/lode/pkg/v1/net"
	"github.com/lode-ml/lode/pkg/v1/track"
)

// Algorithm selects which one-step worker the learner runs.
type Algorithm int

const (
	// OneStepSarsa bootstraps on-policy from the selected next action.
	OneStepSarsa Algorithm = iota

	// OneStepQLearning bootstraps off-policy from the maximum target value.
	OneStepQLearning
)

// Learner owns the shared state of a run and drives the worker pool:
// NumWorkers free-running stochastic workers plus one deterministic
// evaluation worker stepped by Train itself. Workers are never scheduled in
// lockstep; each runs at its own pace.
type Learner struct {
	config  *TrainingConfig
	shared  *Shared
	policy  Policy
	workers []Worker
	eval    Worker
	window  *track.Window

	stop atomic.Bool
}

// evalWindowSize bounds the return history kept for progress reporting.
const evalWindowSize = 100

// NewLearner builds the shared state and the worker pool. newEnvironment is
// invoked once per worker so each owns an independent task instance;
// newUpdater likewise, so stateful updaters never share velocity across
// workers. The learner takes ownership of network as the shared learning
// network.
func NewLearner(config *TrainingConfig, newEnvironment func() env.Environment, network *net.MLP, pol Policy, newUpdater func() Updater, algorithm Algorithm) (*Learner, error) {
	if config == nil {
		config = DefaultTrainingConfig
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if pol == nil {
		return nil, fmt.Errorf("async: policy must not be nil")
	}

	l := &Learner{
		config: config,
		shared: NewShared(network),
		policy: pol,
		window: track.NewWindow(evalWindowSize),
	}

	newWorker := func(deterministic bool) (Worker, error) {
		switch algorithm {
		case OneStepSarsa:
			return NewOneStepSarsaWorker(newUpdater(), newEnvironment(), network, config, deterministic)
		case OneStepQLearning:
			return NewOneStepQLearningWorker(newUpdater(), newEnvironment(), network, config, deterministic)
		default:
			return nil, fmt.Errorf("async: unknown algorithm %d", algorithm)
		}
	}

	for i := 0; i < config.NumWorkers; i++ {
		w, err := newWorker(false)
		if err != nil {
			return nil, err
		}
		l.workers = append(l.workers, w)
	}
	eval, err := newWorker(true)
	if err != nil {
		return nil, err
	}
	l.eval = eval
	return l, nil
}

// Shared returns the run's shared state.
func (l *Learner) Shared() *Shared { return l.shared }

// Window returns the evaluation return history.
func (l *Learner) Window() *track.Window { return l.window }

// Stop makes every worker goroutine return after its current step.
func (l *Learner) Stop() { l.stop.Store(true) }

// Train runs the pool until measure returns true. measure receives the
// deterministic worker's return after each completed evaluation episode.
// Train blocks until every worker goroutine has exited.
func (l *Learner) Train(measure func(episodeReturn float64) bool) {
	var wg sync.WaitGroup
	for _, w := range l.workers {
		wg.Add(1)
		go func(w Worker) {
			defer wg.Done()
			for !l.stop.Load() {
				w.Step(l.shared, l.policy)
			}
		}(w)
	}

	for !l.stop.Load() {
		episodeReturn, done := l.eval.Step(l.shared, l.policy)
		if !done {
			continue
		}
		l.window.Record(episodeReturn)
		log.Infof("episode %d return %.2f mean %.2f best %.2f steps %d",
			l.window.Episodes(), episodeReturn, l.window.Mean(), l.window.Best(), l.shared.Steps())
		if measure(episodeReturn) {
			l.Stop()
		}
	}
	wg.Wait()
}
