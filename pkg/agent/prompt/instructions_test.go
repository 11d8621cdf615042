package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/labforge/labforge/pkg/models"
)

func testSpec() *models.ExerciseSpec {
	return &models.ExerciseSpec{
		Title:      "Static Routing Basics",
		Objectives: []string{"configure static routes"},
		Constraints: map[string]any{
			"device_count": 2,
			"time_minutes": 30,
		},
		Level:         "CCNA",
		Prerequisites: []string{"IP addressing"},
	}
}

func TestSystemInstructionsNameRequiredFields(t *testing.T) {
	for _, field := range []string{"title", "objectives", "constraints", "level", "prerequisites"} {
		assert.Contains(t, PlannerSystem(), field)
	}
	for _, field := range []string{"topology_yaml", "initial_configs", "target_configs", "platforms"} {
		assert.Contains(t, DesignerSystem(), field)
	}
	for _, field := range []string{"estimated_minutes", "devices", "steps"} {
		assert.Contains(t, AuthorSystem(), field)
	}
	for _, field := range []string{"analysis", "root_cause_type", "target_agent", "patch_instructions"} {
		assert.Contains(t, RCASystem(), field)
	}
	for _, tag := range []string{"DESIGN", "INSTRUCTION", "OBJECTIVES", "UNKNOWN"} {
		assert.Contains(t, RCASystem(), tag)
	}
}

func TestDesignerUserMessage(t *testing.T) {
	msg := DesignerUserMessage(testSpec(), nil, nil)

	assert.Contains(t, msg, "Exercise Specification")
	assert.Contains(t, msg, "Static Routing Basics")
	assert.NotContains(t, msg, "Patch Instructions")
	assert.NotContains(t, msg, "Lint Errors")
}

func TestDesignerUserMessageWithPatchAndLint(t *testing.T) {
	patch := &models.PatchPlan{
		Analysis:          "topology link missing",
		RootCauseType:     models.RootCauseDesign,
		TargetAgent:       models.StageDesigner,
		PatchInstructions: "add a link between r1 and r2",
	}

	msg := DesignerUserMessage(testSpec(), patch, []string{"line 3: unknown node ref"})

	assert.Contains(t, msg, "Patch Instructions")
	assert.Contains(t, msg, "add a link between r1 and r2")
	assert.Contains(t, msg, "Root cause: DESIGN")
	assert.Contains(t, msg, "Lint Errors")
	assert.Contains(t, msg, "- line 3: unknown node ref")
}

func TestAuthorUserMessageIncludesDesign(t *testing.T) {
	design := &models.DesignOutput{
		TopologyYAML:   "nodes:\n  - r1\n  - r2",
		InitialConfigs: map[string][]string{"r1": {"hostname r1"}},
		TargetConfigs:  map[string][]string{"r1": {"ip route 10.0.0.0 255.0.0.0 192.168.1.2"}},
		Platforms:      map[string]string{"r1": "ios"},
	}

	msg := AuthorUserMessage(testSpec(), design, nil, nil)

	assert.Contains(t, msg, "Network Design")
	assert.Contains(t, msg, "hostname r1")
}

func TestRCAUserMessageBundlesAllContext(t *testing.T) {
	design := &models.DesignOutput{TopologyYAML: "nodes: [r1]"}
	guide := &models.DraftLabGuide{Title: "Static Routing Basics", EstimatedMinutes: 30}
	result := &models.ValidationResult{Success: false, StepsPassed: 3, StepsTotal: 10, ErrorSummary: "verify step 4 failed"}

	msg := RCAUserMessage(testSpec(), design, guide, result)

	assert.Contains(t, msg, "Exercise Specification")
	assert.Contains(t, msg, "Network Design")
	assert.Contains(t, msg, "Lab Guide")
	assert.Contains(t, msg, "Validation Result")
	assert.Contains(t, msg, "verify step 4 failed")
}
