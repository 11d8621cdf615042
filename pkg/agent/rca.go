package agent

import (
	"context"
	"fmt"

	"github.com/labforge/labforge/pkg/agent/prompt"
	"github.com/labforge/labforge/pkg/llm"
	"github.com/labforge/labforge/pkg/models"
)

// Analyzer is the root-cause analysis stage. It is stateless across
// iterations: it consumes only the current progress artifacts plus the
// failing validation result; the retry count lives in the driver.
type Analyzer struct {
	llm        llm.Client
	maxRetries int
}

// NewAnalyzer creates the RCA stage.
func NewAnalyzer(client llm.Client, maxRetries int) *Analyzer {
	return &Analyzer{llm: client, maxRetries: maxRetries}
}

// Run classifies the validation failure and returns a patch plan naming the
// stage to rewind to. A structurally invalid response is retried within the
// stage budget; a plan tagged UNKNOWN is returned as-is for the driver to
// act on.
func (a *Analyzer) Run(ctx context.Context, spec *models.ExerciseSpec, design *models.DesignOutput, guide *models.DraftLabGuide, result *models.ValidationResult) (*models.PatchPlan, error) {
	conversation := []llm.Message{{
		Role:    llm.RoleUser,
		Content: prompt.RCAUserMessage(spec, design, guide, result),
	}}

	var lastErr error
	for attempt := 0; attempt <= a.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := a.llm.Generate(ctx, prompt.RCASystem(), conversation)
		if err != nil {
			lastErr = err
			continue
		}
		var plan models.PatchPlan
		if err := ExtractInto(text, &plan); err != nil {
			lastErr = err
			continue
		}
		if err := validatePatchPlan(&plan); err != nil {
			lastErr = err
			continue
		}
		return &plan, nil
	}
	return nil, fmt.Errorf("rca output after %d attempts: %w", a.maxRetries+1, lastErr)
}

func validatePatchPlan(plan *models.PatchPlan) error {
	switch plan.RootCauseType {
	case models.RootCauseDesign, models.RootCauseInstruction, models.RootCauseObjectives, models.RootCauseUnknown:
	default:
		return fmt.Errorf("invalid root_cause_type %q", plan.RootCauseType)
	}

	// UNKNOWN plans carry no usable target; the driver fails the lab.
	if plan.RootCauseType == models.RootCauseUnknown {
		return nil
	}

	switch plan.TargetAgent {
	case models.StageDesigner, models.StageAuthor, models.StagePlanner:
	default:
		return fmt.Errorf("invalid target_agent %q", plan.TargetAgent)
	}
	if plan.PatchInstructions == "" {
		return fmt.Errorf("missing patch_instructions")
	}
	return nil
}
