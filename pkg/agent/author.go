package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/labforge/labforge/pkg/agent/prompt"
	"github.com/labforge/labforge/pkg/linter"
	"github.com/labforge/labforge/pkg/llm"
	"github.com/labforge/labforge/pkg/models"
)

// Author writes the student-facing lab guide from the exercise spec and the
// design, linting each device section's command stream.
type Author struct {
	llm        llm.Client
	linter     linter.Client
	maxRetries int
	failOnLint bool
}

// NewAuthor creates an Author stage.
func NewAuthor(client llm.Client, lint linter.Client, maxRetries int, failOnLint bool) *Author {
	return &Author{
		llm:        client,
		linter:     lint,
		maxRetries: maxRetries,
		failOnLint: failOnLint,
	}
}

// Run executes the stage. patch carries RCA instructions on a rewind and may
// be nil.
func (a *Author) Run(ctx context.Context, spec *models.ExerciseSpec, design *models.DesignOutput, patch *models.PatchPlan) (*models.DraftLabGuide, error) {
	log := slog.With("stage", "author")

	var lintErrors []string
	for attempt := 0; ; attempt++ {
		guide, err := a.generate(ctx, prompt.AuthorUserMessage(spec, design, patch, lintErrors))
		if err != nil {
			return nil, err
		}

		findings, err := a.lint(ctx, guide)
		if err != nil {
			return nil, fmt.Errorf("author lint: %w", err)
		}
		if len(findings) == 0 {
			return guide, nil
		}

		log.Warn("Lab guide has lint errors", "attempt", attempt+1, "findings", len(findings))
		if attempt < a.maxRetries {
			lintErrors = findings
			continue
		}
		if a.failOnLint {
			return nil, fmt.Errorf("lab guide still has %d lint errors after %d retries", len(findings), a.maxRetries)
		}
		guide.LintFindings = findings
		return guide, nil
	}
}

func (a *Author) generate(ctx context.Context, userMessage string) (*models.DraftLabGuide, error) {
	conversation := []llm.Message{{Role: llm.RoleUser, Content: userMessage}}

	var lastErr error
	for attempt := 0; attempt <= a.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := a.llm.Generate(ctx, prompt.AuthorSystem(), conversation)
		if err != nil {
			lastErr = err
			continue
		}
		var guide models.DraftLabGuide
		if err := ExtractInto(text, &guide); err != nil {
			lastErr = err
			continue
		}
		if err := validateGuide(&guide); err != nil {
			lastErr = err
			continue
		}
		return &guide, nil
	}
	return nil, fmt.Errorf("author output after %d attempts: %w", a.maxRetries+1, lastErr)
}

func validateGuide(guide *models.DraftLabGuide) error {
	if guide.Title == "" {
		return fmt.Errorf("missing title")
	}
	if len(guide.Devices) == 0 {
		return fmt.Errorf("missing device sections")
	}
	for _, dev := range guide.Devices {
		if dev.Name == "" {
			return fmt.Errorf("device section with empty name")
		}
		if len(dev.Steps) == 0 {
			return fmt.Errorf("device %q has no steps", dev.Name)
		}
	}
	return nil
}

// lint checks each device section's command stream (cmd and verify steps).
func (a *Author) lint(ctx context.Context, guide *models.DraftLabGuide) ([]string, error) {
	var findings []string
	for _, dev := range guide.Devices {
		var commands []string
		for _, step := range dev.Steps {
			if step.Type == models.StepCmd || step.Type == models.StepVerify {
				commands = append(commands, step.Value)
			}
		}
		if len(commands) == 0 {
			continue
		}
		results, err := a.linter.LintCLI(ctx, dev.Platform, commands, linter.CLIOptions{})
		if err != nil {
			return nil, err
		}
		for _, r := range linter.FailedCommands(results) {
			findings = append(findings, fmt.Sprintf("%s: %q: %s", dev.Name, r.Command, r.Message))
		}
	}
	return findings, nil
}
