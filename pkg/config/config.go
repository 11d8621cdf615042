// Package config loads LabForge runtime configuration from the environment,
// with optional YAML file overrides. Every knob has a built-in default so an
// empty environment yields a runnable configuration.
package config

import (
	"fmt"
	"time"
)

// Config is the umbrella configuration object used throughout the
// application.
type Config struct {
	// HTTPPort is the port the API server listens on.
	HTTPPort string

	// MaxPlannerTurns bounds the Planner's clarification dialog.
	MaxPlannerTurns int

	// MaxStageRetries bounds per-stage retries (transient external-call
	// failures and lint-feedback re-invocations, counted independently).
	MaxStageRetries int

	// MaxRCARetries bounds RCA-driven pipeline re-entries per lab.
	MaxRCARetries int

	// PipelineTimeout is the whole-pipeline budget for one lab.
	PipelineTimeout time.Duration

	// PlannerTimeout is the budget for the entire Planner dialog.
	PlannerTimeout time.Duration

	// UserReplyTimeout is the per-turn wait for a user message.
	UserReplyTimeout time.Duration

	// StageTimeout is the budget for one Designer or Author execution.
	StageTimeout time.Duration

	// ValidatorTimeout is the budget for one Validator submit-and-poll cycle.
	ValidatorTimeout time.Duration

	// PollInterval is the fixed interval between runner status polls.
	PollInterval time.Duration

	// PendingQueueSize bounds each lab's pending-message queue.
	PendingQueueSize int

	// FailOnLintErrors fails a stage whose lint loop exhausts retries
	// instead of proceeding with best-effort output.
	FailOnLintErrors bool

	// External collaborator endpoints and credentials, passed through to the
	// corresponding adapters as opaque strings.
	LinterEndpoint string
	RunnerEndpoint string
	ArtifactBucket string
	LLMCredential  string
	LLMModel       string

	// CORSOrigins lists permitted CORS origins for the lab endpoints.
	CORSOrigins []string
}

// Default returns the built-in configuration defaults.
func Default() *Config {
	return &Config{
		HTTPPort:         "8080",
		MaxPlannerTurns:  10,
		MaxStageRetries:  2,
		MaxRCARetries:    2,
		PipelineTimeout:  600 * time.Second,
		PlannerTimeout:   300 * time.Second,
		UserReplyTimeout: 120 * time.Second,
		StageTimeout:     120 * time.Second,
		ValidatorTimeout: 300 * time.Second,
		PollInterval:     10 * time.Second,
		PendingQueueSize: 32,
		LLMModel:         "claude-sonnet-4-5",
		CORSOrigins:      []string{"*"},
	}
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.MaxPlannerTurns < 1 {
		return fmt.Errorf("max_planner_turns must be >= 1, got %d", c.MaxPlannerTurns)
	}
	if c.MaxStageRetries < 0 {
		return fmt.Errorf("max_stage_retries must be >= 0, got %d", c.MaxStageRetries)
	}
	if c.MaxRCARetries < 0 {
		return fmt.Errorf("max_rca_retries must be >= 0, got %d", c.MaxRCARetries)
	}
	if c.PendingQueueSize < 1 {
		return fmt.Errorf("pending_queue_size must be >= 1, got %d", c.PendingQueueSize)
	}
	for name, d := range map[string]time.Duration{
		"pipeline_timeout":   c.PipelineTimeout,
		"planner_timeout":    c.PlannerTimeout,
		"user_reply_timeout": c.UserReplyTimeout,
		"stage_timeout":      c.StageTimeout,
		"validator_timeout":  c.ValidatorTimeout,
		"poll_interval":      c.PollInterval,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %v", name, d)
		}
	}
	return nil
}

// Stats contains counts and knobs worth logging at startup.
type Stats struct {
	LinterConfigured bool
	RunnerConfigured bool
	StoreConfigured  bool
	CORSOrigins      int
}

// Stats returns configuration statistics for logging.
func (c *Config) Stats() Stats {
	return Stats{
		LinterConfigured: c.LinterEndpoint != "",
		RunnerConfigured: c.RunnerEndpoint != "",
		StoreConfigured:  c.ArtifactBucket != "",
		CORSOrigins:      len(c.CORSOrigins),
	}
}
