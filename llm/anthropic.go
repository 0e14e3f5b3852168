// Anthropic Provider implementation using official anthropic-sdk-go.
//
// Information Hiding:
// - API endpoint and authentication
// - Request/response format for Anthropic Messages API
// - Extended thinking blocks, carried as the reasoning payload

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// minThinkingBudget is the smallest budget the Messages API accepts.
const minThinkingBudget = 1024

// AnthropicProvider implements the Provider interface for Anthropic Claude.
type AnthropicProvider struct {
	client anthropic.Client
	model  string
}

// NewAnthropicProvider creates a new Anthropic provider.
func NewAnthropicProvider(apiKey, baseURL, model string) *AnthropicProvider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &AnthropicProvider{
		client: anthropic.NewClient(opts...),
		model:  model,
	}
}

// Name returns the provider name.
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// Model returns the current model.
func (p *AnthropicProvider) Model() string {
	return p.model
}

// thinkingPart is one thinking block as stored in the reasoning payload.
type thinkingPart struct {
	Thinking  string `json:"thinking"`
	Signature string `json:"signature"`
}

// Complete sends a chat completion request with tool definitions.
func (p *AnthropicProvider) Complete(ctx context.Context, req Request) (Completion, error) {
	anthropicMessages, systemPrompt := convertToAnthropicMessagesWithTools(req.Messages)

	maxTokens := int64(req.Sampling.MaxTokens)
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: maxTokens,
		Messages:  anthropicMessages,
		Tools:     convertToAnthropicTools(req.Tools),
	}

	// Extended thinking requires the default temperature.
	budget := maxTokens / 2
	if req.Sampling.EnableThinking && budget >= minThinkingBudget {
		params.Thinking = anthropic.ThinkingConfigParamOfEnabled(budget)
	} else {
		params.Temperature = anthropic.Float(float64(req.Profile.Temperature(req.Sampling.Temperature)))
	}

	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: systemPrompt},
		}
	}

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return Completion{}, fmt.Errorf("chat completion failed: %w", err)
	}

	var content strings.Builder
	var thinking []thinkingPart
	result := ChatMessage{Role: RoleAssistant}
	for _, block := range message.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			content.WriteString(variant.Text)
		case anthropic.ThinkingBlock:
			thinking = append(thinking, thinkingPart{Thinking: variant.Thinking, Signature: variant.Signature})
		case anthropic.ToolUseBlock:
			inputJSON, _ := json.Marshal(variant.Input)
			result.ToolCalls = append(result.ToolCalls, ToolCall{
				ID:        variant.ID,
				Name:      variant.Name,
				Arguments: string(inputJSON),
			})
		}
	}
	result.Content = content.String()
	if len(thinking) > 0 {
		result.Reasoning, _ = json.Marshal(thinking)
	}

	usage := TokenUsage{
		PromptTokens:     uint32(message.Usage.InputTokens),
		CompletionTokens: uint32(message.Usage.OutputTokens),
		TotalTokens:      uint32(message.Usage.InputTokens + message.Usage.OutputTokens),
	}

	return Completion{Message: result, Usage: usage}, nil
}

// convertToAnthropicMessagesWithTools handles tool calls and tool responses.
// Consecutive tool results are merged into one user turn.
func convertToAnthropicMessagesWithTools(messages []ChatMessage) ([]anthropic.MessageParam, string) {
	var anthropicMessages []anthropic.MessageParam
	var systemPrompt string

	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			systemPrompt = msg.Content
		case RoleUser:
			anthropicMessages = append(anthropicMessages, anthropic.NewUserMessage(
				anthropic.NewTextBlock(msg.Content),
			))
		case RoleAssistant:
			content := anthropic.MessageParam{
				Role: anthropic.MessageParamRoleAssistant,
			}
			var thinking []thinkingPart
			if len(msg.Reasoning) > 0 && json.Unmarshal(msg.Reasoning, &thinking) == nil {
				for _, t := range thinking {
					content.Content = append(content.Content, anthropic.NewThinkingBlock(t.Signature, t.Thinking))
				}
			}
			if msg.Content != "" {
				content.Content = append(content.Content, anthropic.NewTextBlock(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				var input map[string]interface{}
				_ = json.Unmarshal([]byte(tc.Arguments), &input)
				if input == nil {
					input = map[string]interface{}{}
				}
				content.Content = append(content.Content, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						ID:    tc.ID,
						Name:  tc.Name,
						Input: input,
					},
				})
			}
			if len(content.Content) == 0 {
				content.Content = append(content.Content, anthropic.NewTextBlock(""))
			}
			anthropicMessages = append(anthropicMessages, content)
		case RoleTool:
			block := anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false)
			last := len(anthropicMessages) - 1
			if last >= 0 && anthropicMessages[last].Role == anthropic.MessageParamRoleUser && isToolResultTurn(anthropicMessages[last]) {
				anthropicMessages[last].Content = append(anthropicMessages[last].Content, block)
				continue
			}
			anthropicMessages = append(anthropicMessages, anthropic.NewUserMessage(block))
		}
	}

	return anthropicMessages, systemPrompt
}

func isToolResultTurn(msg anthropic.MessageParam) bool {
	for _, block := range msg.Content {
		if block.OfToolResult == nil {
			return false
		}
	}
	return len(msg.Content) > 0
}

// convertToAnthropicTools converts tool definitions to Anthropic format.
func convertToAnthropicTools(tools []ToolDefinition) []anthropic.ToolUnionParam {
	result := make([]anthropic.ToolUnionParam, len(tools))
	for i, t := range tools {
		properties, _ := t.Parameters["properties"].(map[string]interface{})
		required, _ := t.Parameters["required"].([]string)

		toolParam := anthropic.ToolParam{
			Name:        t.Name,
			Description: anthropic.String(t.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: properties,
				Required:   required,
			},
		}
		result[i] = anthropic.ToolUnionParam{OfTool: &toolParam}
	}
	return result
}

// Verify AnthropicProvider implements Provider
var _ Provider = (*AnthropicProvider)(nil)
