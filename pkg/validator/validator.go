// Package validator submits drafted labs to the external headless runner and
// collects their results through the artifact store.
package validator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/labforge/labforge/pkg/models"
	"github.com/labforge/labforge/pkg/runner"
)

// Validator converts a drafted lab into the runner's payload schema, hands
// it over through the artifact store, and polls the execution to completion.
type Validator struct {
	runner       runner.Client
	store        runner.ArtifactStore
	pollInterval time.Duration
}

// New creates a Validator.
func New(client runner.Client, store runner.ArtifactStore, pollInterval time.Duration) *Validator {
	return &Validator{
		runner:       client,
		store:        store,
		pollInterval: pollInterval,
	}
}

// Run validates one drafted lab. Missing inputs skip validation gracefully:
// the result carries skipped=true and the pipeline proceeds. The caller
// bounds the poll loop through ctx.
func (v *Validator) Run(ctx context.Context, labID string, spec *models.ExerciseSpec, design *models.DesignOutput, guide *models.DraftLabGuide) (*models.ValidationResult, error) {
	log := slog.With("lab_id", labID, "stage", "validator")

	if design == nil || guide == nil {
		log.Warn("Skipping validation, required inputs missing",
			"have_design", design != nil, "have_guide", guide != nil)
		return &models.ValidationResult{
			Skipped:      true,
			Success:      false,
			ErrorSummary: "validation skipped: design output or lab guide missing",
		}, nil
	}

	runID := uuid.New().String()
	payload := BuildPayload(labID, runID, spec, design, guide)

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode runner payload: %w", err)
	}

	pendingPath := "pending/" + labID + ".json"
	archivePath := payload.ArtifactPrefix + "/payload.json"
	for _, path := range []string{pendingPath, archivePath} {
		if err := v.store.Put(ctx, path, data); err != nil {
			return nil, fmt.Errorf("upload payload to %s: %w", path, err)
		}
	}

	execID, err := v.runner.Submit(ctx, pendingPath)
	if err != nil {
		return nil, fmt.Errorf("submit execution: %w", err)
	}
	log.Info("Submitted validation run", "run_id", runID, "execution_id", execID)

	status, err := v.poll(ctx, execID)
	if err != nil {
		return nil, err
	}

	result, err := v.collect(ctx, payload, status)
	if err != nil {
		return nil, err
	}
	log.Info("Validation run finished",
		"run_id", runID, "success", result.Success,
		"steps_passed", result.StepsPassed, "steps_total", result.StepsTotal)
	return result, nil
}

// poll checks execution status at the fixed interval until terminal or ctx
// expiry.
func (v *Validator) poll(ctx context.Context, execID string) (runner.ExecutionStatus, error) {
	ticker := time.NewTicker(v.pollInterval)
	defer ticker.Stop()

	for {
		status, err := v.runner.Status(ctx, execID)
		if err != nil {
			return runner.ExecutionStatus{}, fmt.Errorf("poll execution %s: %w", execID, err)
		}
		if status.Terminal() {
			return status, nil
		}

		select {
		case <-ctx.Done():
			return runner.ExecutionStatus{}, fmt.Errorf("validator poll: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// collect reads the runner's summary artifact and folds it into the
// validation result.
func (v *Validator) collect(ctx context.Context, payload runner.Payload, status runner.ExecutionStatus) (*models.ValidationResult, error) {
	summaryPath := payload.ArtifactPrefix + "/summary.json"
	artifacts := []string{payload.ArtifactPrefix + "/payload.json", summaryPath}

	data, err := v.store.Get(ctx, summaryPath)
	if err != nil {
		// A failed execution may die before writing its summary. Report the
		// failure from the execution status instead of erroring the pipeline.
		if status.State == runner.StateFailed {
			result := &models.ValidationResult{
				Success:      false,
				ErrorSummary: "execution failed without a summary artifact",
				Artifacts:    artifacts[:1],
			}
			if status.Stats != nil {
				result.StepsPassed = status.Stats.StepsPassed
				result.StepsTotal = status.Stats.StepsTotal
			}
			return result, nil
		}
		return nil, fmt.Errorf("read summary artifact: %w", err)
	}

	var summary runner.Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("decode summary artifact: %w", err)
	}

	return &models.ValidationResult{
		Success:      summary.Passed(),
		StepsPassed:  summary.StepsPassed,
		StepsTotal:   summary.StepsTotal,
		ErrorSummary: strings.Join(summary.Errors, "; "),
		Artifacts:    artifacts,
	}, nil
}
