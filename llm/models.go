// Package llm provides shared data models for LLM providers.
package llm

import "encoding/json"

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ChatMessage represents a chat message with role and content.
type ChatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`  // For assistant messages with tool calls
	ToolCallID string     `json:"tool_call_id,omitempty"` // For tool result messages

	// Reasoning is the provider's raw reasoning payload (a JSON string or a
	// structured value). Adapters send it back under the profile's reasoning field.
	Reasoning json.RawMessage `json:"-"`
}

// ToolCall represents a tool call from the LLM.
// Arguments is kept as text: models do not always produce valid JSON.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolDefinition defines a tool that the LLM can call.
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"` // JSON Schema
}

// SystemMessage creates a system message.
func SystemMessage(content string) ChatMessage {
	return ChatMessage{
		Role:    RoleSystem,
		Content: content,
	}
}

// UserMessage creates a user message.
func UserMessage(content string) ChatMessage {
	return ChatMessage{
		Role:    RoleUser,
		Content: content,
	}
}

// AssistantMessage creates an assistant message.
func AssistantMessage(content string) ChatMessage {
	return ChatMessage{
		Role:    RoleAssistant,
		Content: content,
	}
}

// ToolMessage creates a tool result message answering the call with the given id.
func ToolMessage(callID, content string) ChatMessage {
	return ChatMessage{
		Role:       RoleTool,
		Content:    content,
		ToolCallID: callID,
	}
}

// Sampling holds per-request generation settings.
type Sampling struct {
	Temperature    float32
	MaxTokens      int
	EnableThinking bool
}

// DefaultSampling returns the settings used by the research loop.
func DefaultSampling() Sampling {
	return Sampling{
		Temperature:    0.7,
		MaxTokens:      8192,
		EnableThinking: true,
	}
}

// Request is one completion call.
type Request struct {
	Messages []ChatMessage
	Tools    []ToolDefinition
	Sampling Sampling
	Profile  Profile
}

// Completion is the assistant turn returned by a provider.
type Completion struct {
	Message ChatMessage
	Usage   TokenUsage
}

// TokenUsage contains token usage statistics.
type TokenUsage struct {
	PromptTokens     uint32
	CompletionTokens uint32
	TotalTokens      uint32
}

// Add accumulates other into u.
func (u *TokenUsage) Add(other TokenUsage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}
