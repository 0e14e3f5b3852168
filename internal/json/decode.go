// Package json decodes JSON objects produced by language models.
//
// Model output is often almost-JSON: wrapped in markdown fences, surrounded by
// commentary, or syntactically broken (trailing commas, single quotes,
// unbalanced brackets, Python literals). Decode tries progressively more
// lenient readings and reports which one succeeded.
package json

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ErrUndecodable is returned when no stage yields a JSON object.
var ErrUndecodable = errors.New("undecodable JSON object")

// Stage identifies the reading that produced the object.
type Stage int

const (
	StageNone      Stage = iota
	StageStrict          // the text is a JSON object as-is
	StageExtracted       // fences stripped, first '{' to last '}' sliced
	StageRepaired        // heuristic repair succeeded
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageStrict:
		return "strict"
	case StageExtracted:
		return "extracted"
	case StageRepaired:
		return "repaired"
	default:
		return "none"
	}
}

// Decode parses text into a JSON object.
func Decode(text string) (map[string]any, Stage, error) {
	raw, stage, err := objectText(text)
	if err != nil {
		return nil, StageNone, err
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, StageNone, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	return obj, stage, nil
}

// DecodeInto parses text into T using the same stages as Decode.
func DecodeInto[T any](text string) (T, Stage, error) {
	var result T
	raw, stage, err := objectText(text)
	if err != nil {
		return result, StageNone, err
	}
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return result, StageNone, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return result, stage, nil
}

// objectText returns a string holding exactly one JSON object.
func objectText(text string) (string, Stage, error) {
	if isObject(text) {
		return text, StageStrict, nil
	}

	stripped := StripCodeFences(text)
	if isObject(stripped) {
		return stripped, StageExtracted, nil
	}
	if sliced, ok := sliceObject(stripped); ok && isObject(sliced) {
		return sliced, StageExtracted, nil
	}

	candidate := stripped
	if start := strings.Index(candidate, "{"); start > 0 {
		candidate = candidate[start:]
	}
	if strings.TrimSpace(candidate) != "" {
		if repaired, err := jsonrepair.JSONRepair(candidate); err == nil && isObject(repaired) {
			return repaired, StageRepaired, nil
		}
	}

	return "", StageNone, fmt.Errorf("%w: %q", ErrUndecodable, preview(text))
}

// isObject reports whether s parses as a single JSON object.
func isObject(s string) bool {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") {
		return false
	}
	var obj map[string]json.RawMessage
	return json.Unmarshal([]byte(s), &obj) == nil
}

// sliceObject returns the text between the first '{' and the last '}'.
func sliceObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// StripCodeFences removes a surrounding markdown code fence such as
// ```json ... ``` from s. Text without a fence is returned trimmed.
func StripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```")
		// Drop an info string such as "json" up to the first newline.
		if nl := strings.IndexByte(trimmed, '\n'); nl != -1 && !strings.ContainsAny(trimmed[:nl], "{[") {
			trimmed = trimmed[nl+1:]
		} else {
			trimmed = strings.TrimPrefix(trimmed, "json")
		}
	}
	trimmed = strings.TrimSpace(trimmed)
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}

func preview(s string) string {
	if len(s) > 100 {
		return s[:100] + "..."
	}
	return s
}
