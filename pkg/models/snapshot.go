package models

import (
	"strings"
	"time"
)

// Conversation is the wire shape of a lab's dialog state.
type Conversation struct {
	Messages          []Message `json:"messages"`
	AwaitingUserInput bool      `json:"awaiting_user_input"`
}

// LabSnapshot is a stable, serialization-safe copy of a lab's public fields.
// The pending-message queue is deliberately absent.
type LabSnapshot struct {
	LabID        string       `json:"lab_id"`
	Status       Status       `json:"status"`
	CurrentAgent *Stage       `json:"current_agent"`
	Conversation Conversation `json:"conversation"`
	Progress     Progress     `json:"progress"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	Prompt       string       `json:"prompt"`
	Error        string       `json:"error,omitempty"`
}

// LabSummary is the list-endpoint projection of a lab.
type LabSummary struct {
	LabID     string    `json:"lab_id"`
	Title     string    `json:"title"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// maxSummaryTitleLen bounds the prompt-derived fallback title.
const maxSummaryTitleLen = 60

// Snapshot returns a deep-enough copy of the lab's visible fields: the
// message slice is copied, artifact pointers are re-pointed to fresh struct
// copies. Caller must hold the lab's lock.
func (l *Lab) Snapshot() LabSnapshot {
	msgs := make([]Message, len(l.Conversation))
	copy(msgs, l.Conversation)

	var stage *Stage
	if l.CurrentStage != nil {
		s := *l.CurrentStage
		stage = &s
	}

	return LabSnapshot{
		LabID:        l.ID,
		Status:       l.Status,
		CurrentAgent: stage,
		Conversation: Conversation{
			Messages:          msgs,
			AwaitingUserInput: l.AwaitingUserInput,
		},
		Progress:  l.Progress.copy(),
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
		Prompt:    l.Prompt,
		Error:     l.Error,
	}
}

// Summary returns the list projection. The title is the exercise spec title
// when the Planner has produced one, otherwise the truncated prompt.
// Caller must hold the lab's lock.
func (l *Lab) Summary() LabSummary {
	title := strings.TrimSpace(l.Prompt)
	if len(title) > maxSummaryTitleLen {
		title = title[:maxSummaryTitleLen] + "..."
	}
	if l.Progress.ExerciseSpec != nil && l.Progress.ExerciseSpec.Title != "" {
		title = l.Progress.ExerciseSpec.Title
	}
	return LabSummary{
		LabID:     l.ID,
		Title:     title,
		Status:    l.Status,
		CreatedAt: l.CreatedAt,
	}
}

// copy clones the progress struct one level deep. Artifacts themselves are
// immutable once stored, so sharing their inner slices is safe.
func (p Progress) copy() Progress {
	out := Progress{}
	if p.ExerciseSpec != nil {
		v := *p.ExerciseSpec
		out.ExerciseSpec = &v
	}
	if p.DesignOutput != nil {
		v := *p.DesignOutput
		out.DesignOutput = &v
	}
	if p.DraftLabGuide != nil {
		v := *p.DraftLabGuide
		out.DraftLabGuide = &v
	}
	if p.ValidationResult != nil {
		v := *p.ValidationResult
		out.ValidationResult = &v
	}
	if p.PatchPlan != nil {
		v := *p.PatchPlan
		out.PatchPlan = &v
	}
	return out
}
