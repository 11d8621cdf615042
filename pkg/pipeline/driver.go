// Package pipeline runs the stage sequence for one lab: Planner dialog,
// Designer, Author, Validator, and the bounded RCA retry loop.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/labforge/labforge/pkg/agent"
	"github.com/labforge/labforge/pkg/config"
	"github.com/labforge/labforge/pkg/models"
	"github.com/labforge/labforge/pkg/registry"
	"github.com/labforge/labforge/pkg/validator"
)

// Driver owns pipeline execution. One driver serves all labs; each Launch
// spawns an independent per-lab task. The driver is the single failure
// boundary: no stage error or panic escapes past it.
type Driver struct {
	registry  *registry.Registry
	planner   *agent.Planner
	designer  *agent.Designer
	author    *agent.Author
	analyzer  *agent.Analyzer
	validator *validator.Validator
	cfg       *config.Config
}

// NewDriver wires the stages into a driver.
func NewDriver(reg *registry.Registry, planner *agent.Planner, designer *agent.Designer, author *agent.Author, analyzer *agent.Analyzer, val *validator.Validator, cfg *config.Config) *Driver {
	return &Driver{
		registry:  reg,
		planner:   planner,
		designer:  designer,
		author:    author,
		analyzer:  analyzer,
		validator: val,
		cfg:       cfg,
	}
}

// Launch starts the pipeline task for a freshly created lab.
func (d *Driver) Launch(labID string, opts models.Options) {
	go d.run(labID, opts)
}

// run is the per-lab task body.
func (d *Driver) run(labID string, opts models.Options) {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.PipelineTimeout)
	defer cancel()
	d.registry.RegisterCancel(labID, cancel)

	log := slog.With("lab_id", labID)

	defer func() {
		if r := recover(); r != nil {
			log.Error("Pipeline panicked", "panic", r)
			d.fail(labID, fmt.Sprintf("internal error: %v", r))
		}
	}()

	log.Info("Pipeline started", "dry_run", opts.DryRun, "enable_rca", opts.EnableRCA)
	if err := d.execute(ctx, labID, opts); err != nil {
		msg := err.Error()
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			msg = fmt.Sprintf("pipeline timed out after %v", d.cfg.PipelineTimeout)
		case errors.Is(ctx.Err(), context.Canceled):
			msg = "pipeline cancelled"
		}
		log.Warn("Pipeline failed", "error", msg)
		d.fail(labID, msg)
		return
	}
	log.Info("Pipeline finished")
}

// execute walks the stage sequence, re-entering at the RCA-selected stage on
// a rewind. The loop terminates on completion, a stage error, or ctx expiry.
func (d *Driver) execute(ctx context.Context, labID string, opts models.Options) error {
	stage := models.StagePlanner

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		switch stage {
		case models.StagePlanner:
			if err := d.transition(labID, models.StatusPlannerRunning, models.StagePlanner); err != nil {
				return err
			}
			err := d.withBudget(ctx, d.cfg.PlannerTimeout, "planner dialog", func(stageCtx context.Context) error {
				return d.planner.Run(stageCtx, labID)
			})
			if err != nil {
				return err
			}
			if err := d.transition(labID, models.StatusPlannerComplete, models.StagePlanner); err != nil {
				return err
			}
			stage = models.StageDesigner

		case models.StageDesigner:
			if err := d.transition(labID, models.StatusDesignerRunning, models.StageDesigner); err != nil {
				return err
			}
			snap, err := d.registry.Get(labID)
			if err != nil {
				return err
			}
			var design *models.DesignOutput
			err = d.withBudget(ctx, d.cfg.StageTimeout, "designer stage", func(stageCtx context.Context) error {
				design, err = d.designer.Run(stageCtx, snap.Progress.ExerciseSpec, patchFor(snap, models.StageDesigner))
				return err
			})
			if err != nil {
				return err
			}
			if err := d.store(labID, models.StatusDesignerComplete, models.StageDesigner, func(lab *models.Lab) {
				lab.Progress.DesignOutput = design
			}); err != nil {
				return err
			}
			stage = models.StageAuthor

		case models.StageAuthor:
			if err := d.transition(labID, models.StatusAuthorRunning, models.StageAuthor); err != nil {
				return err
			}
			snap, err := d.registry.Get(labID)
			if err != nil {
				return err
			}
			var guide *models.DraftLabGuide
			err = d.withBudget(ctx, d.cfg.StageTimeout, "author stage", func(stageCtx context.Context) error {
				guide, err = d.author.Run(stageCtx, snap.Progress.ExerciseSpec, snap.Progress.DesignOutput, patchFor(snap, models.StageAuthor))
				return err
			})
			if err != nil {
				return err
			}
			if err := d.store(labID, models.StatusAuthorComplete, models.StageAuthor, func(lab *models.Lab) {
				lab.Progress.DraftLabGuide = guide
			}); err != nil {
				return err
			}
			if opts.DryRun {
				return d.complete(labID)
			}
			stage = models.StageValidator

		case models.StageValidator:
			if err := d.transition(labID, models.StatusValidatorRunning, models.StageValidator); err != nil {
				return err
			}
			snap, err := d.registry.Get(labID)
			if err != nil {
				return err
			}
			var result *models.ValidationResult
			err = d.withBudget(ctx, d.cfg.ValidatorTimeout, "validator stage", func(stageCtx context.Context) error {
				result, err = d.validator.Run(stageCtx, labID, snap.Progress.ExerciseSpec, snap.Progress.DesignOutput, snap.Progress.DraftLabGuide)
				return err
			})
			if err != nil {
				return err
			}
			if err := d.store(labID, models.StatusValidatorComplete, models.StageValidator, func(lab *models.Lab) {
				lab.Progress.ValidationResult = result
			}); err != nil {
				return err
			}

			if result.Success || result.Skipped {
				return d.complete(labID)
			}
			// Validation failed. Retry through RCA when allowed, otherwise
			// deliver the lab with the failing validation recorded.
			retries, err := d.retryCount(labID)
			if err != nil {
				return err
			}
			if !opts.EnableRCA || retries >= d.cfg.MaxRCARetries {
				return d.complete(labID)
			}
			stage = models.StageRCA

		case models.StageRCA:
			if err := d.transition(labID, models.StatusRCARunning, models.StageRCA); err != nil {
				return err
			}
			snap, err := d.registry.Get(labID)
			if err != nil {
				return err
			}
			var plan *models.PatchPlan
			err = d.withBudget(ctx, d.cfg.StageTimeout, "rca stage", func(stageCtx context.Context) error {
				plan, err = d.analyzer.Run(stageCtx, snap.Progress.ExerciseSpec, snap.Progress.DesignOutput, snap.Progress.DraftLabGuide, snap.Progress.ValidationResult)
				return err
			})
			if err != nil {
				return err
			}
			if err := d.store(labID, models.StatusRCAComplete, models.StageRCA, func(lab *models.Lab) {
				lab.Progress.PatchPlan = plan
			}); err != nil {
				return err
			}

			if plan.RootCauseType == models.RootCauseUnknown {
				return fmt.Errorf("rca could not attribute the validation failure: %s", plan.Analysis)
			}

			slog.Info("Rewinding pipeline",
				"lab_id", labID, "target", plan.TargetAgent, "root_cause", plan.RootCauseType)
			if err := d.registry.Mutate(labID, func(lab *models.Lab) {
				rewind(lab, plan)
			}); err != nil {
				return err
			}
			stage = plan.TargetAgent

		default:
			return fmt.Errorf("unknown pipeline stage %q", stage)
		}
	}
}

// withBudget runs fn under a stage timeout nested in the pipeline budget and
// names the scope when the stage deadline expires.
func (d *Driver) withBudget(ctx context.Context, budget time.Duration, name string, fn func(context.Context) error) error {
	stageCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	err := fn(stageCtx)
	if err != nil && errors.Is(stageCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("%s timed out after %v", name, budget)
	}
	return err
}

// transition moves the lab to the given status and stage.
func (d *Driver) transition(labID string, status models.Status, stage models.Stage) error {
	return d.registry.Mutate(labID, func(lab *models.Lab) {
		lab.Status = status
		lab.CurrentStage = &stage
	})
}

// store records a stage artifact together with its *_complete transition in
// one atomic mutation.
func (d *Driver) store(labID string, status models.Status, stage models.Stage, fn func(*models.Lab)) error {
	return d.registry.Mutate(labID, func(lab *models.Lab) {
		fn(lab)
		lab.Status = status
		lab.CurrentStage = &stage
	})
}

// complete moves the lab to its terminal completed state.
func (d *Driver) complete(labID string) error {
	return d.registry.Mutate(labID, func(lab *models.Lab) {
		lab.Status = models.StatusCompleted
		lab.CurrentStage = nil
	})
}

// fail moves the lab to its terminal failed state with the given reason.
func (d *Driver) fail(labID, reason string) {
	_ = d.registry.Mutate(labID, func(lab *models.Lab) {
		lab.Status = models.StatusFailed
		lab.CurrentStage = nil
		lab.Error = reason
		lab.AwaitingUserInput = false
	})
}

func (d *Driver) retryCount(labID string) (int, error) {
	count := 0
	err := d.registry.Mutate(labID, func(lab *models.Lab) {
		count = lab.RetryCount
	})
	return count, err
}

// patchFor returns the stored patch plan when it targets the given stage.
// Stages re-run for other reasons must not see stale patch instructions.
func patchFor(snap models.LabSnapshot, stage models.Stage) *models.PatchPlan {
	if snap.Progress.PatchPlan != nil && snap.Progress.PatchPlan.TargetAgent == stage {
		return snap.Progress.PatchPlan
	}
	return nil
}

// rewind prepares the lab for re-entry at the patch plan's target stage: the
// retry is counted and all artifacts from the target stage onward are
// discarded so the next pass recomputes them. A planner rewind additionally
// feeds the patch instructions into the dialog as a user message.
func rewind(lab *models.Lab, plan *models.PatchPlan) {
	lab.RetryCount++

	switch plan.TargetAgent {
	case models.StagePlanner:
		lab.Progress.ExerciseSpec = nil
		lab.Progress.DesignOutput = nil
		lab.Progress.DraftLabGuide = nil
		lab.Progress.ValidationResult = nil
		lab.AppendMessage(models.RoleUser,
			"The lab failed validation. Revise the exercise specification: "+plan.PatchInstructions)
	case models.StageDesigner:
		lab.Progress.DesignOutput = nil
		lab.Progress.DraftLabGuide = nil
		lab.Progress.ValidationResult = nil
	case models.StageAuthor:
		lab.Progress.DraftLabGuide = nil
		lab.Progress.ValidationResult = nil
	}
}
