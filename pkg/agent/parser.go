// Package agent implements the pipeline stages: the interactive Planner
// controller, the Designer and Author stages with their lint loops, and the
// RCA failure-triage stage.
package agent

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/labforge/labforge/pkg/models"
)

// ErrNoJSONObject indicates the LLM response contained no balanced JSON
// object.
var ErrNoJSONObject = errors.New("no JSON object found in response")

// ExtractJSONObject scans text for the outermost balanced {...} block and
// returns it. The scan is deliberately lenient because models may wrap JSON
// in prose; braces inside JSON strings (including escaped quotes) are
// handled correctly.
func ExtractJSONObject(text string) (string, error) {
	for start := 0; start < len(text); start++ {
		if text[start] != '{' {
			continue
		}
		if end, ok := matchBrace(text, start); ok {
			return text[start : end+1], nil
		}
		// Unbalanced from this position; later opens are nested inside it
		// and cannot be outermost candidates of a balanced block, but a
		// stray '{' in prose before the real object is. Keep scanning.
	}
	return "", ErrNoJSONObject
}

// matchBrace returns the index of the brace closing the object opened at
// start, tracking string literals and escapes.
func matchBrace(text string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// ExtractInto extracts the outermost JSON object from text and unmarshals it
// into v.
func ExtractInto(text string, v any) error {
	raw, err := ExtractJSONObject(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("unmarshal extracted JSON: %w", err)
	}
	return nil
}

// requiredSpecFields are the keys a Planner response must carry to qualify
// as a complete exercise spec.
var requiredSpecFields = []string{"title", "objectives", "constraints", "level", "prerequisites"}

// ExtractExerciseSpec attempts to read a complete exercise spec from a
// Planner response. It returns (nil, false) when the response is a
// clarifying question rather than a spec — i.e. when no JSON object with all
// required fields is present.
func ExtractExerciseSpec(text string) (*models.ExerciseSpec, bool) {
	raw, err := ExtractJSONObject(text)
	if err != nil {
		return nil, false
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		return nil, false
	}
	for _, field := range requiredSpecFields {
		if _, ok := keys[field]; !ok {
			return nil, false
		}
	}

	var spec models.ExerciseSpec
	if err := json.Unmarshal([]byte(raw), &spec); err != nil {
		return nil, false
	}
	if spec.Title == "" {
		return nil, false
	}
	return &spec, true
}
