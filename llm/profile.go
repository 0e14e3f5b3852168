// Provider profiles.
//
// A Profile captures the per-model-family request overrides that the
// OpenAI-compatible endpoints in use expect. It is resolved once from the
// model identifier and base URL and then passed unchanged with every request.

package llm

import (
	"strings"
)

// Reasoning field names used by OpenAI-compatible endpoints.
const (
	ReasoningContent = "reasoning_content"
	ReasoningDetails = "reasoning_details"
)

// Family groups models that share request overrides.
type Family string

const (
	FamilyDefault Family = "default"
	FamilyKimi    Family = "kimi"
	FamilyGPT     Family = "gpt"
)

// ThinkingStyle selects how the thinking toggle is encoded in the request body.
type ThinkingStyle int

const (
	// ThinkingObject sends {"thinking": {"type": "enabled"|"disabled"}}.
	ThinkingObject ThinkingStyle = iota
	// ThinkingFlag sends {"enable_thinking": true} when enabled (DashScope).
	ThinkingFlag
)

// Profile is the resolved set of provider-specific request overrides.
type Profile struct {
	Family         Family
	ReasoningField string
	Thinking       ThinkingStyle

	// FixedTemperature replaces the configured temperature when set.
	FixedTemperature *float32
	// PresencePenalty is sent explicitly when set, including zero.
	PresencePenalty *float32
	// DisableParallelToolCalls sends parallel_tool_calls=false.
	DisableParallelToolCalls bool
	// CompletionTokens sends max_completion_tokens instead of max_tokens and
	// leaves temperature at the server default (OpenAI reasoning series).
	CompletionTokens bool
}

// ResolveProfile derives the profile for a model served from baseURL.
// Matching is case-insensitive substring matching on the identifiers.
func ResolveProfile(modelID, baseURL string) Profile {
	model := strings.ToLower(modelID)
	base := strings.ToLower(baseURL)

	p := Profile{
		Family:         FamilyDefault,
		ReasoningField: ReasoningContent,
		Thinking:       ThinkingObject,
	}

	switch {
	case strings.Contains(model, "kimi"):
		p.Family = FamilyKimi
		p.FixedTemperature = float32Ptr(1.0)
		p.PresencePenalty = float32Ptr(0)
	case strings.Contains(model, "gpt"):
		p.Family = FamilyGPT
		p.DisableParallelToolCalls = true
	}

	if isOpenAIReasoningModel(model) {
		p.CompletionTokens = true
	}
	if strings.Contains(base, "openrouter") {
		p.ReasoningField = ReasoningDetails
	}
	if strings.Contains(base, "dashscope") {
		p.Thinking = ThinkingFlag
	}
	return p
}

// Temperature returns the temperature to send for the configured value.
func (p Profile) Temperature(configured float32) float32 {
	if p.FixedTemperature != nil {
		return *p.FixedTemperature
	}
	return configured
}

// ThinkingBody returns the top-level body fields that toggle thinking.
func (p Profile) ThinkingBody(enabled bool) map[string]any {
	if !enabled {
		return map[string]any{"thinking": map[string]any{"type": "disabled"}}
	}
	if p.Thinking == ThinkingFlag {
		return map[string]any{"enable_thinking": true}
	}
	return map[string]any{"thinking": map[string]any{"type": "enabled"}}
}

// isOpenAIReasoningModel matches model ids that reject max_tokens and custom temperature.
func isOpenAIReasoningModel(model string) bool {
	// Strip a router prefix such as "openai/".
	if i := strings.LastIndex(model, "/"); i >= 0 {
		model = model[i+1:]
	}
	for _, prefix := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}

func float32Ptr(v float32) *float32 {
	return &v
}
