// Package env defines the boundary between agents and the tasks they learn.
package env

// State is a single observation of a task.
type State interface {
	// Encode returns the state as a feature vector suitable for a network.
	Encode() []float64
}

// Environment is a reinforcement learning task.
//
// Implementations are driven by a single worker goroutine at a time and do
// not need to be safe for concurrent use.
type Environment interface {
	// InitialSample returns the state a fresh episode starts from.
	InitialSample() State

	// Sample applies action in state and returns the reward and successor
	// state.
	Sample(state State, action int) (reward float64, next State)

	// IsTerminal reports whether state ends the episode.
	IsTerminal(state State) bool
}
