package models

// Progress holds the per-stage output artifacts, populated incrementally as
// the pipeline advances. Artifacts are treated as immutable once stored: the
// driver replaces whole pointers, never mutates in place, so snapshots can
// share them safely.
type Progress struct {
	ExerciseSpec     *ExerciseSpec     `json:"exercise_spec,omitempty"`
	DesignOutput     *DesignOutput     `json:"design_output,omitempty"`
	DraftLabGuide    *DraftLabGuide    `json:"draft_lab_guide,omitempty"`
	ValidationResult *ValidationResult `json:"validation_result,omitempty"`
	PatchPlan        *PatchPlan        `json:"patch_plan,omitempty"`
}

// ExerciseSpec is the Planner's artifact: structured lab requirements.
type ExerciseSpec struct {
	Title         string         `json:"title"`
	Objectives    []string       `json:"objectives"`
	Constraints   map[string]any `json:"constraints"` // e.g. device_count, time_minutes
	Level         string         `json:"level"`
	Prerequisites []string       `json:"prerequisites"`
}

// DesignOutput is the Designer's artifact: topology plus per-device configs.
type DesignOutput struct {
	TopologyYAML   string              `json:"topology_yaml"`
	InitialConfigs map[string][]string `json:"initial_configs"`
	TargetConfigs  map[string][]string `json:"target_configs"`
	Platforms      map[string]string   `json:"platforms"`
	// LintFindings carries unresolved linter issues when the stage proceeded
	// with best-effort output after exhausting lint retries.
	LintFindings []string `json:"lint_findings,omitempty"`
}

// StepType classifies a lab guide step.
type StepType string

// Guide step types.
const (
	StepCmd    StepType = "cmd"
	StepVerify StepType = "verify"
	StepNote   StepType = "note"
	StepOutput StepType = "output"
)

// GuideStep is one ordered step in a device section of the lab guide.
type GuideStep struct {
	Type        StepType `json:"type"`
	Value       string   `json:"value"`
	Description string   `json:"description"`
}

// GuideDevice is a per-device section of the lab guide.
type GuideDevice struct {
	Name       string            `json:"name"`
	Platform   string            `json:"platform"`
	Role       string            `json:"role,omitempty"`
	Interfaces map[string]string `json:"interfaces,omitempty"` // interface -> address
	Steps      []GuideStep       `json:"steps"`
}

// DraftLabGuide is the Author's artifact: the student-facing instructions.
type DraftLabGuide struct {
	Title               string        `json:"title"`
	EstimatedMinutes    int           `json:"estimated_minutes"`
	Devices             []GuideDevice `json:"devices"`
	Objectives          []string      `json:"objectives,omitempty"`
	Prerequisites       []string      `json:"prerequisites,omitempty"`
	TroubleshootingTips []string      `json:"troubleshooting_tips,omitempty"`
	LintFindings        []string      `json:"lint_findings,omitempty"`
}

// ValidationResult is the Validator's artifact: the outcome of the headless
// simulation run.
type ValidationResult struct {
	Success      bool     `json:"success"`
	StepsPassed  int      `json:"steps_passed"`
	StepsTotal   int      `json:"steps_total"`
	ErrorSummary string   `json:"error_summary,omitempty"`
	Artifacts    []string `json:"artifacts,omitempty"` // artifact store paths
	// Skipped marks validation that was skipped because required inputs were
	// missing. Skipped validation never fails the pipeline and never
	// triggers RCA.
	Skipped bool `json:"skipped,omitempty"`
}

// RootCause classifies a validation failure.
type RootCause string

// Root cause tags produced by the RCA stage.
const (
	RootCauseDesign      RootCause = "DESIGN"
	RootCauseInstruction RootCause = "INSTRUCTION"
	RootCauseObjectives  RootCause = "OBJECTIVES"
	RootCauseUnknown     RootCause = "UNKNOWN"
)

// PatchPlan is the RCA stage's artifact: the failure analysis and the
// concrete instructions for the stage being rewound to.
type PatchPlan struct {
	Analysis          string    `json:"analysis"`
	RootCauseType     RootCause `json:"root_cause_type"`
	TargetAgent       Stage     `json:"target_agent"`
	PatchInstructions string    `json:"patch_instructions"`
}
