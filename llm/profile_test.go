package llm

import (
	"testing"
)

func TestResolveProfile(t *testing.T) {
	tests := []struct {
		name           string
		model          string
		baseURL        string
		family         Family
		reasoningField string
		thinking       ThinkingStyle
		parallelOff    bool
		completionToks bool
	}{
		{"kimi", "Kimi-K2-Thinking", "https://api.moonshot.ai/v1", FamilyKimi, ReasoningContent, ThinkingObject, false, false},
		{"gpt via openrouter", "openai/gpt-4o", "https://openrouter.ai/api/v1", FamilyGPT, ReasoningDetails, ThinkingObject, true, false},
		{"gpt-5 reasoning series", "gpt-5-mini", "", FamilyGPT, ReasoningContent, ThinkingObject, true, true},
		{"o3 behind router", "openai/o3-mini", "https://openrouter.ai/api/v1", FamilyDefault, ReasoningDetails, ThinkingObject, false, true},
		{"dashscope qwen", "qwen3-235b", "https://dashscope.aliyuncs.com/compatible-mode/v1", FamilyDefault, ReasoningContent, ThinkingFlag, false, false},
		{"deepseek", "deepseek-reasoner", "https://api.deepseek.com/v1", FamilyDefault, ReasoningContent, ThinkingObject, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ResolveProfile(tt.model, tt.baseURL)
			if p.Family != tt.family {
				t.Errorf("Family = %q, want %q", p.Family, tt.family)
			}
			if p.ReasoningField != tt.reasoningField {
				t.Errorf("ReasoningField = %q, want %q", p.ReasoningField, tt.reasoningField)
			}
			if p.Thinking != tt.thinking {
				t.Errorf("Thinking = %v, want %v", p.Thinking, tt.thinking)
			}
			if p.DisableParallelToolCalls != tt.parallelOff {
				t.Errorf("DisableParallelToolCalls = %v, want %v", p.DisableParallelToolCalls, tt.parallelOff)
			}
			if p.CompletionTokens != tt.completionToks {
				t.Errorf("CompletionTokens = %v, want %v", p.CompletionTokens, tt.completionToks)
			}
		})
	}
}

func TestProfileTemperature(t *testing.T) {
	kimi := ResolveProfile("kimi-k2", "")
	if got := kimi.Temperature(0.7); got != 1.0 {
		t.Errorf("kimi temperature = %v, want 1.0", got)
	}
	if kimi.PresencePenalty == nil || *kimi.PresencePenalty != 0 {
		t.Errorf("kimi presence penalty = %v, want explicit 0", kimi.PresencePenalty)
	}

	other := ResolveProfile("deepseek-chat", "")
	if got := other.Temperature(0.7); got != 0.7 {
		t.Errorf("default temperature = %v, want 0.7", got)
	}
	if other.PresencePenalty != nil {
		t.Errorf("default presence penalty should be unset")
	}
}

func TestProfileThinkingBody(t *testing.T) {
	object := ResolveProfile("deepseek-reasoner", "https://api.deepseek.com")
	flag := ResolveProfile("qwen3", "https://dashscope.aliyuncs.com")

	on := object.ThinkingBody(true)
	thinking, ok := on["thinking"].(map[string]any)
	if !ok || thinking["type"] != "enabled" {
		t.Errorf("object style enabled = %v", on)
	}

	on = flag.ThinkingBody(true)
	if on["enable_thinking"] != true {
		t.Errorf("flag style enabled = %v", on)
	}

	for _, p := range []Profile{object, flag} {
		off := p.ThinkingBody(false)
		thinking, ok := off["thinking"].(map[string]any)
		if !ok || thinking["type"] != "disabled" {
			t.Errorf("disabled body = %v", off)
		}
	}
}
