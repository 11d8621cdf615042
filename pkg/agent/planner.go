package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/labforge/labforge/pkg/agent/prompt"
	"github.com/labforge/labforge/pkg/llm"
	"github.com/labforge/labforge/pkg/models"
	"github.com/labforge/labforge/pkg/registry"
)

// Planner conducts the multi-turn clarification dialog that refines the
// user's initial prompt into a complete exercise spec. The driver does not
// know about turns; Run returns only when a spec is produced, the dialog
// fails, or the pipeline is cancelled.
type Planner struct {
	llm          llm.Client
	registry     *registry.Registry
	maxTurns     int
	maxRetries   int
	replyTimeout time.Duration
}

// NewPlanner creates a Planner controller.
func NewPlanner(client llm.Client, reg *registry.Registry, maxTurns, maxRetries int, replyTimeout time.Duration) *Planner {
	return &Planner{
		llm:          client,
		registry:     reg,
		maxTurns:     maxTurns,
		maxRetries:   maxRetries,
		replyTimeout: replyTimeout,
	}
}

// Run executes the dialog loop for one lab. On success the extracted
// exercise spec is stored in the lab's progress; the driver owns the
// planner_running -> planner_complete transition.
func (p *Planner) Run(ctx context.Context, labID string) error {
	log := slog.With("lab_id", labID, "stage", "planner")

	for turn := 1; turn <= p.maxTurns; turn++ {
		snap, err := p.registry.Get(labID)
		if err != nil {
			return err
		}

		text, err := generateWithRetry(ctx, p.llm, prompt.PlannerSystem(),
			conversationToLLM(snap.Conversation.Messages), p.maxRetries)
		if err != nil {
			return fmt.Errorf("planner turn %d: %w", turn, err)
		}

		spec, complete := ExtractExerciseSpec(text)
		if err := p.registry.Mutate(labID, func(lab *models.Lab) {
			lab.AppendMessage(models.RoleAssistant, text)
			if complete {
				lab.Progress.ExerciseSpec = spec
			}
		}); err != nil {
			return err
		}

		if complete {
			log.Info("Planner produced exercise spec", "turns", turn, "title", spec.Title)
			return nil
		}

		log.Info("Planner asked a clarifying question, waiting for user", "turn", turn)
		if err := p.registry.Mutate(labID, func(lab *models.Lab) {
			lab.Status = models.StatusAwaitingUserInput
			lab.AwaitingUserInput = true
		}); err != nil {
			return err
		}

		msg, err := p.registry.WaitForMessage(ctx, labID, p.replyTimeout)
		if err != nil {
			_ = p.registry.Mutate(labID, func(lab *models.Lab) {
				lab.AwaitingUserInput = false
			})
			return fmt.Errorf("waiting for user reply: %w", err)
		}

		if err := p.registry.Mutate(labID, func(lab *models.Lab) {
			lab.AppendMessage(models.RoleUser, msg)
			lab.Status = models.StatusPlannerRunning
			lab.AwaitingUserInput = false
		}); err != nil {
			return err
		}
	}

	return fmt.Errorf("planner exceeded %d turns without producing an exercise spec", p.maxTurns)
}
