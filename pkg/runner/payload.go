package runner

// The payload schema is the wire contract with the headless runner: one
// top-level object uploaded to the artifact store, referenced on submit.

// StepKind classifies an executable payload step.
type StepKind string

// Payload step kinds. Only commands and verifications are executable;
// narrative guide steps are dropped during conversion.
const (
	StepKindCmd    StepKind = "cmd"
	StepKindVerify StepKind = "verify"
)

// PayloadStep is one ordered step for a device.
type PayloadStep struct {
	Type        StepKind `json:"type"`
	Value       string   `json:"value"`
	Description string   `json:"description,omitempty"`
}

// DevicePlan is the per-device execution plan.
type DevicePlan struct {
	Platform string        `json:"platform"`
	Initial  []string      `json:"initial"`
	Steps    []PayloadStep `json:"steps"`
}

// Options tune a run.
type Options struct {
	StopOnFail bool `json:"stop_on_fail"`
	TimeoutS   int  `json:"timeout_s,omitempty"`
}

// Payload is the top-level object handed to the runner.
type Payload struct {
	ExerciseID     string                `json:"exercise_id"`
	ArtifactPrefix string                `json:"artifact_prefix"`
	RunID          string                `json:"run_id"`
	LabID          string                `json:"lab_id"`
	Topology       string                `json:"topology"`
	Devices        map[string]DevicePlan `json:"devices"`
	Options        Options               `json:"options"`
}

// Summary is the runner's result artifact, read from
// {artifact_prefix}/summary.json after a terminal execution.
type Summary struct {
	Result      string   `json:"result"` // "PASS" or "FAIL"
	StepsPassed int      `json:"steps_passed"`
	StepsTotal  int      `json:"steps_total"`
	Errors      []string `json:"errors,omitempty"`
}

// Passed reports whether the run passed.
func (s Summary) Passed() bool { return s.Result == "PASS" }
