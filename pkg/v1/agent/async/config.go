package async

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v2"
)

// TrainingConfig holds the run hyperparameters shared by every worker. It is
// read-only for the duration of a run.
type TrainingConfig struct {
	// NumWorkers is the number of stochastic workers the learner spawns.
	NumWorkers int `yaml:"num_workers"`

	// StepLimit caps the length of a single episode.
	StepLimit int `yaml:"step_limit"`

	// UpdateInterval is the pending-transition buffer capacity; a full
	// buffer triggers a gradient flush.
	UpdateInterval int `yaml:"update_interval"`

	// TargetNetworkSyncInterval is the period, in shared steps, of the
	// learning-to-target network copy.
	TargetNetworkSyncInterval int `yaml:"target_network_sync_interval"`

	// Discount is the reward discount factor.
	Discount float64 `yaml:"discount"`

	// GradientLimit clamps every element of an accumulated gradient.
	GradientLimit float64 `yaml:"gradient_limit"`

	// StepSize scales each updater application.
	StepSize float64 `yaml:"step_size"`
}

// DefaultTrainingConfig are reasonable defaults for small control tasks.
var DefaultTrainingConfig = &TrainingConfig{
	NumWorkers:                4,
	StepLimit:                 200,
	UpdateInterval:            5,
	TargetNetworkSyncInterval: 100,
	Discount:                  0.99,
	GradientLimit:             5.0,
	StepSize:                  0.01,
}

// Validate rejects non-positive hyperparameters. Workers call it at
// construction so misconfiguration fails before the first step.
func (c *TrainingConfig) Validate() error {
	if c.NumWorkers <= 0 {
		return fmt.Errorf("async: num_workers must be positive, got %d", c.NumWorkers)
	}
	if c.StepLimit <= 0 {
		return fmt.Errorf("async: step_limit must be positive, got %d", c.StepLimit)
	}
	if c.UpdateInterval <= 0 {
		return fmt.Errorf("async: update_interval must be positive, got %d", c.UpdateInterval)
	}
	if c.TargetNetworkSyncInterval <= 0 {
		return fmt.Errorf("async: target_network_sync_interval must be positive, got %d", c.TargetNetworkSyncInterval)
	}
	if c.Discount <= 0 {
		return fmt.Errorf("async: discount must be positive, got %f", c.Discount)
	}
	if c.GradientLimit <= 0 {
		return fmt.Errorf("async: gradient_limit must be positive, got %f", c.GradientLimit)
	}
	if c.StepSize <= 0 {
		return fmt.Errorf("async: step_size must be positive, got %f", c.StepSize)
	}
	return nil
}

// LoadConfig reads a YAML training config from r, filling unset fields from
// DefaultTrainingConfig.
func LoadConfig(r io.Reader) (*TrainingConfig, error) {
	c := *DefaultTrainingConfig
	if err := yaml.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("async: decoding config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
