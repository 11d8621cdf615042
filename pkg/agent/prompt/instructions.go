// Package prompt builds all LLM instruction and message text for the
// pipeline stages. Stateless — all state comes from parameters.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/labforge/labforge/pkg/models"
)

// plannerInstructions is the system instruction for the interactive Planner.
const plannerInstructions = `## Lab Planner Instructions

You are an expert networking instructor planning a hands-on lab exercise.

Your job is to turn the instructor's request into a complete exercise
specification. Work through a short clarification dialog:
- If the request is missing information you need (device count, platform,
  difficulty level, time budget, specific objectives), ask ONE focused
  clarifying question and nothing else.
- Once you have enough information, respond with a single JSON object with
  exactly these fields and nothing else:
  - "title": short descriptive lab title
  - "objectives": list of concrete, verifiable learning objectives
  - "constraints": object with at least "device_count" and "time_minutes"
  - "level": difficulty tag such as "CCNA" or "CCNP"
  - "prerequisites": list of assumed prior knowledge

Do not emit partial specifications. Either ask a question or emit the
complete JSON object.`

// designerInstructions is the system instruction for the Designer stage.
const designerInstructions = `## Lab Designer Instructions

You are an expert network engineer designing the topology and device
configurations for a lab exercise.

Given the exercise specification, respond with a single JSON object with
exactly these fields:
- "topology_yaml": a textual topology description in YAML (nodes and links)
- "initial_configs": object mapping device name to the ordered list of CLI
  commands that bring the device to its starting state
- "target_configs": object mapping device name to the ordered list of CLI
  commands that bring the device to the exercise's goal state
- "platforms": object mapping device name to its platform tag

Every device named in the topology must appear in all three maps. Commands
must be valid for the declared platform. Respond with the JSON object only.`

// authorInstructions is the system instruction for the Author stage.
const authorInstructions = `## Lab Author Instructions

You are an expert technical writer producing a student-facing lab guide.

Given the exercise specification and the network design, respond with a
single JSON object with these fields:
- "title": the lab title
- "estimated_minutes": integer time estimate
- "devices": list of per-device sections, each with:
  - "name": device name matching the design
  - "platform": platform tag from the design
  - "role": optional short role description
  - "interfaces": optional object mapping interface name to address
  - "steps": ordered list of steps, each {"type", "value", "description"}
    where "type" is one of "cmd" (a command the student enters), "verify"
    (a command whose output confirms progress), "note" (guidance text), or
    "output" (expected output to compare against)
- "objectives", "prerequisites", "troubleshooting_tips": optional lists

Steps must take a student from the initial configuration to the target
configuration. Respond with the JSON object only.`

// rcaInstructions is the system instruction for the root-cause analyzer.
const rcaInstructions = `## Root-Cause Analysis Instructions

You are an expert network engineer triaging a failed lab validation run.

Given the exercise specification, the design, the lab guide, and the
validation result, determine why the headless run failed. Respond with a
single JSON object with exactly these fields:
- "analysis": short explanation of the failure
- "root_cause_type": one of "DESIGN" (topology or configs are wrong),
  "INSTRUCTION" (guide steps are wrong), "OBJECTIVES" (the exercise
  specification itself is unachievable), "UNKNOWN"
- "target_agent": the stage to rewind to, one of "designer", "author",
  "planner"
- "patch_instructions": concrete instructions for the target stage's rerun

Pick the most specific root cause supported by the evidence. Use "UNKNOWN"
only when the failure genuinely cannot be attributed. Respond with the JSON
object only.`

// PlannerSystem returns the Planner's system instruction.
func PlannerSystem() string { return plannerInstructions }

// DesignerSystem returns the Designer's system instruction.
func DesignerSystem() string { return designerInstructions }

// AuthorSystem returns the Author's system instruction.
func AuthorSystem() string { return authorInstructions }

// RCASystem returns the root-cause analyzer's system instruction.
func RCASystem() string { return rcaInstructions }

// DesignerUserMessage assembles the Designer's user message from the current
// lab progress. patch carries RCA patch instructions on a rewind; lintErrors
// carry linter feedback on a retry. Either may be nil/empty.
func DesignerUserMessage(spec *models.ExerciseSpec, patch *models.PatchPlan, lintErrors []string) string {
	sections := []string{
		"## Exercise Specification\n\n" + asJSON(spec),
	}
	sections = appendPatchSection(sections, patch)
	sections = appendLintSection(sections, lintErrors)
	return strings.Join(sections, "\n\n")
}

// AuthorUserMessage assembles the Author's user message.
func AuthorUserMessage(spec *models.ExerciseSpec, design *models.DesignOutput, patch *models.PatchPlan, lintErrors []string) string {
	sections := []string{
		"## Exercise Specification\n\n" + asJSON(spec),
		"## Network Design\n\n" + asJSON(design),
	}
	sections = appendPatchSection(sections, patch)
	sections = appendLintSection(sections, lintErrors)
	return strings.Join(sections, "\n\n")
}

// RCAUserMessage assembles the root-cause analyzer's user message: the full
// contextual bundle plus the failing validation result.
func RCAUserMessage(spec *models.ExerciseSpec, design *models.DesignOutput, guide *models.DraftLabGuide, result *models.ValidationResult) string {
	sections := []string{
		"## Exercise Specification\n\n" + asJSON(spec),
		"## Network Design\n\n" + asJSON(design),
		"## Lab Guide\n\n" + asJSON(guide),
		"## Validation Result\n\n" + asJSON(result),
	}
	return strings.Join(sections, "\n\n")
}

func appendPatchSection(sections []string, patch *models.PatchPlan) []string {
	if patch == nil {
		return sections
	}
	return append(sections,
		"## Patch Instructions (from failure analysis)\n\n"+
			fmt.Sprintf("Root cause: %s\n\n%s", patch.RootCauseType, patch.PatchInstructions))
}

func appendLintSection(sections []string, lintErrors []string) []string {
	if len(lintErrors) == 0 {
		return sections
	}
	return append(sections,
		"## Lint Errors (fix these in your next response)\n\n- "+
			strings.Join(lintErrors, "\n- "))
}

func asJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(data)
}
