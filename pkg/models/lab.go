// Package models defines the lab domain model shared across the registry,
// pipeline, and API layers.
package models

import "time"

// Role identifies the sender of a conversation message.
type Role string

// Message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single entry in a lab's clarification dialog.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Status represents the current state of a lab in the pipeline state machine.
type Status string

// Lab statuses. Labels are used verbatim in the API.
const (
	StatusPlannerRunning    Status = "planner_running"
	StatusAwaitingUserInput Status = "awaiting_user_input"
	StatusPlannerComplete   Status = "planner_complete"
	StatusDesignerRunning   Status = "designer_running"
	StatusDesignerComplete  Status = "designer_complete"
	StatusAuthorRunning     Status = "author_running"
	StatusAuthorComplete    Status = "author_complete"
	StatusValidatorRunning  Status = "validator_running"
	StatusValidatorComplete Status = "validator_complete"
	StatusRCARunning        Status = "rca_running"
	StatusRCAComplete       Status = "rca_complete"
	StatusCompleted         Status = "completed"
	StatusFailed            Status = "failed"
)

// Terminal reports whether the status is a terminal state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// AcceptsMessages reports whether a lab in this status may receive user
// chat messages.
func (s Status) AcceptsMessages() bool {
	return s == StatusPlannerRunning || s == StatusAwaitingUserInput
}

// Stage identifies a pipeline stage (exposed as current_agent in the API).
type Stage string

// Pipeline stages.
const (
	StagePlanner   Stage = "planner"
	StageDesigner  Stage = "designer"
	StageAuthor    Stage = "author"
	StageValidator Stage = "validator"
	StageRCA       Stage = "rca"
)

// Options are the immutable per-lab creation options.
type Options struct {
	// DryRun skips the Validator stage entirely.
	DryRun bool `json:"dry_run"`
	// EnableRCA allows the bounded retry loop on validation failure.
	EnableRCA bool `json:"enable_rca"`
}

// Lab is the single unit of work. ID, Prompt, and Options never change after
// creation; everything else is mutated only under the owning registry entry's
// lock (see pkg/registry).
type Lab struct {
	ID                string
	Prompt            string
	Options           Options
	Status            Status
	CurrentStage      *Stage // nil when no stage is active
	CreatedAt         time.Time
	UpdatedAt         time.Time
	Conversation      []Message
	AwaitingUserInput bool
	Progress          Progress
	Error             string
	RetryCount        int
}

// AppendMessage appends a conversation message stamped with the current time.
// Caller must hold the lab's lock.
func (l *Lab) AppendMessage(role Role, content string) {
	l.Conversation = append(l.Conversation, Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
}
