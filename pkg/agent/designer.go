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

// Designer turns an exercise spec into a topology and per-device command
// sequences, with a lint feedback loop against the external linter.
type Designer struct {
	llm        llm.Client
	linter     linter.Client
	maxRetries int
	failOnLint bool
}

// NewDesigner creates a Designer stage.
func NewDesigner(client llm.Client, lint linter.Client, maxRetries int, failOnLint bool) *Designer {
	return &Designer{
		llm:        client,
		linter:     lint,
		maxRetries: maxRetries,
		failOnLint: failOnLint,
	}
}

// Run executes the stage. patch carries RCA instructions on a rewind and may
// be nil.
func (d *Designer) Run(ctx context.Context, spec *models.ExerciseSpec, patch *models.PatchPlan) (*models.DesignOutput, error) {
	log := slog.With("stage", "designer")

	var lintErrors []string
	for attempt := 0; ; attempt++ {
		out, err := d.generate(ctx, prompt.DesignerUserMessage(spec, patch, lintErrors))
		if err != nil {
			return nil, err
		}

		findings, err := d.lint(ctx, out)
		if err != nil {
			return nil, fmt.Errorf("designer lint: %w", err)
		}
		if len(findings) == 0 {
			return out, nil
		}

		log.Warn("Design has lint errors", "attempt", attempt+1, "findings", len(findings))
		if attempt < d.maxRetries {
			lintErrors = findings
			continue
		}
		if d.failOnLint {
			return nil, fmt.Errorf("design still has %d lint errors after %d retries", len(findings), d.maxRetries)
		}
		out.LintFindings = findings
		return out, nil
	}
}

// generate calls the LLM and parses the design artifact, retrying transient
// call failures and malformed output within one budget.
func (d *Designer) generate(ctx context.Context, userMessage string) (*models.DesignOutput, error) {
	conversation := []llm.Message{{Role: llm.RoleUser, Content: userMessage}}

	var lastErr error
	for attempt := 0; attempt <= d.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := d.llm.Generate(ctx, prompt.DesignerSystem(), conversation)
		if err != nil {
			lastErr = err
			continue
		}
		var out models.DesignOutput
		if err := ExtractInto(text, &out); err != nil {
			lastErr = err
			continue
		}
		if err := validateDesign(&out); err != nil {
			lastErr = err
			continue
		}
		return &out, nil
	}
	return nil, fmt.Errorf("designer output after %d attempts: %w", d.maxRetries+1, lastErr)
}

func validateDesign(out *models.DesignOutput) error {
	if out.TopologyYAML == "" {
		return fmt.Errorf("missing topology_yaml")
	}
	if len(out.InitialConfigs) == 0 {
		return fmt.Errorf("missing initial_configs")
	}
	if len(out.Platforms) == 0 {
		return fmt.Errorf("missing platforms")
	}
	for device := range out.InitialConfigs {
		if _, ok := out.Platforms[device]; !ok {
			return fmt.Errorf("device %q has no platform tag", device)
		}
	}
	return nil
}

// lint checks the topology and each device's initial command sequence,
// returning human-readable findings for the retry prompt.
func (d *Designer) lint(ctx context.Context, out *models.DesignOutput) ([]string, error) {
	var findings []string

	issues, err := d.linter.LintTopology(ctx, out.TopologyYAML)
	if err != nil {
		return nil, err
	}
	for _, is := range linter.Errors(issues) {
		if is.Line > 0 {
			findings = append(findings, fmt.Sprintf("topology line %d: %s", is.Line, is.Message))
		} else {
			findings = append(findings, "topology: "+is.Message)
		}
	}

	for device, commands := range out.InitialConfigs {
		results, err := d.linter.LintCLI(ctx, out.Platforms[device], commands, linter.CLIOptions{})
		if err != nil {
			return nil, err
		}
		for _, r := range linter.FailedCommands(results) {
			findings = append(findings, fmt.Sprintf("%s: %q: %s", device, r.Command, r.Message))
		}
	}
	return findings, nil
}
