package validator

import (
	"strings"

	"github.com/labforge/labforge/pkg/models"
	"github.com/labforge/labforge/pkg/runner"
)

// BuildPayload converts the design and guide into the runner's payload
// schema. Narrative steps (note, output) are dropped; only commands and
// verifications execute.
func BuildPayload(labID, runID string, spec *models.ExerciseSpec, design *models.DesignOutput, guide *models.DraftLabGuide) runner.Payload {
	devices := make(map[string]runner.DevicePlan, len(guide.Devices))
	for _, dev := range guide.Devices {
		platform := dev.Platform
		if platform == "" {
			platform = design.Platforms[dev.Name]
		}

		var steps []runner.PayloadStep
		for _, step := range dev.Steps {
			switch step.Type {
			case models.StepCmd:
				steps = append(steps, runner.PayloadStep{
					Type: runner.StepKindCmd, Value: step.Value, Description: step.Description,
				})
			case models.StepVerify:
				steps = append(steps, runner.PayloadStep{
					Type: runner.StepKindVerify, Value: step.Value, Description: step.Description,
				})
			}
		}

		devices[dev.Name] = runner.DevicePlan{
			Platform: platform,
			Initial:  design.InitialConfigs[dev.Name],
			Steps:    steps,
		}
	}

	options := runner.Options{StopOnFail: true}
	if guide.EstimatedMinutes > 0 {
		options.TimeoutS = guide.EstimatedMinutes * 60
	}

	return runner.Payload{
		ExerciseID:     exerciseID(spec, labID),
		ArtifactPrefix: "runs/" + runID,
		RunID:          runID,
		LabID:          labID,
		Topology:       design.TopologyYAML,
		Devices:        devices,
		Options:        options,
	}
}

// exerciseID derives a stable identifier from the spec title, falling back
// to the lab ID.
func exerciseID(spec *models.ExerciseSpec, labID string) string {
	if spec == nil || spec.Title == "" {
		return labID
	}
	slug := strings.ToLower(spec.Title)
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == ' ', r == '-', r == '_':
			return '-'
		default:
			return -1
		}
	}, slug)
	slug = strings.Trim(strings.Join(strings.FieldsFunc(slug, func(r rune) bool { return r == '-' }), "-"), "-")
	if slug == "" {
		return labID
	}
	return slug
}
