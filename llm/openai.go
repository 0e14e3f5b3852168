// OpenAI-compatible Provider implementation using go-openai library.
//
// Information Hiding:
// - API endpoint, base URL and authentication
// - Request/response format for the Chat Completions API
// - Profile overrides (thinking toggle, sampling fixes, reasoning round-trip)

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/tidwall/gjson"
)

// DefaultRequestTimeout bounds a single completion request.
const DefaultRequestTimeout = 600 * time.Second

// OpenAIProvider implements the Provider interface for any endpoint that
// speaks the OpenAI Chat Completions protocol (OpenAI, OpenRouter, DashScope,
// DeepSeek, Moonshot, vLLM).
type OpenAIProvider struct {
	client  *openai.Client
	model   string
	baseURL string
}

// NewOpenAIProvider creates a provider for model served at baseURL.
// An empty baseURL selects the official OpenAI endpoint.
func NewOpenAIProvider(apiKey, baseURL, model string) *OpenAIProvider {
	return newOpenAIProvider(apiKey, baseURL, model, &http.Client{Timeout: DefaultRequestTimeout})
}

func newOpenAIProvider(apiKey, baseURL, model string, httpClient openai.HTTPDoer) *OpenAIProvider {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	config.HTTPClient = patchingDoer{next: httpClient}

	return &OpenAIProvider{
		client:  openai.NewClientWithConfig(config),
		model:   model,
		baseURL: config.BaseURL,
	}
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Model returns the current model.
func (p *OpenAIProvider) Model() string {
	return p.model
}

// BaseURL returns the endpoint the provider talks to.
func (p *OpenAIProvider) BaseURL() string {
	return p.baseURL
}

// Complete sends a chat completion request with optional tool definitions.
func (p *OpenAIProvider) Complete(ctx context.Context, request Request) (Completion, error) {
	profile := request.Profile
	if profile.ReasoningField == "" {
		profile = ResolveProfile(p.model, p.baseURL)
	}

	req := openai.ChatCompletionRequest{
		Model:    p.model,
		Messages: convertMessagesWithTools(request.Messages),
		Tools:    convertTools(request.Tools),
	}
	if profile.CompletionTokens {
		req.MaxCompletionTokens = request.Sampling.MaxTokens
	} else {
		req.MaxTokens = request.Sampling.MaxTokens
		req.Temperature = profile.Temperature(request.Sampling.Temperature)
	}
	if profile.DisableParallelToolCalls && len(req.Tools) > 0 {
		req.ParallelToolCalls = false
	}

	ex, err := buildExchange(request, profile)
	if err != nil {
		return Completion{}, err
	}

	resp, err := p.client.CreateChatCompletion(withExchange(ctx, ex), req)
	if err != nil {
		return Completion{}, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Completion{}, fmt.Errorf("chat completion failed: response has no choices")
	}

	choice := resp.Choices[0].Message
	message := ChatMessage{
		Role:    RoleAssistant,
		Content: choice.Content,
	}
	for _, tc := range choice.ToolCalls {
		message.ToolCalls = append(message.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	message.Reasoning = extractReasoning(ex.response, profile.ReasoningField)

	usage := TokenUsage{
		PromptTokens:     uint32(resp.Usage.PromptTokens),
		CompletionTokens: uint32(resp.Usage.CompletionTokens),
		TotalTokens:      uint32(resp.Usage.TotalTokens),
	}

	return Completion{Message: message, Usage: usage}, nil
}

// buildExchange collects the body fields go-openai cannot express.
func buildExchange(request Request, profile Profile) (*exchange, error) {
	ex := &exchange{}
	for key, value := range profile.ThinkingBody(request.Sampling.EnableThinking) {
		if err := ex.set(key, value); err != nil {
			return nil, err
		}
	}
	if profile.PresencePenalty != nil {
		if err := ex.set("presence_penalty", *profile.PresencePenalty); err != nil {
			return nil, err
		}
	}
	for i, msg := range request.Messages {
		if len(msg.Reasoning) == 0 || !json.Valid(msg.Reasoning) {
			continue
		}
		ex.setRaw("messages."+strconv.Itoa(i)+"."+profile.ReasoningField, msg.Reasoning)
	}
	return ex, nil
}

// extractReasoning reads the reasoning payload of the first choice from a raw response.
func extractReasoning(body []byte, field string) json.RawMessage {
	if len(body) == 0 || field == "" {
		return nil
	}
	result := gjson.GetBytes(body, "choices.0.message."+field)
	if !result.Exists() || result.Type == gjson.Null {
		return nil
	}
	if result.Type == gjson.String && result.String() == "" {
		return nil
	}
	return json.RawMessage(result.Raw)
}

// convertMessagesWithTools handles tool calls and tool responses.
func convertMessagesWithTools(messages []ChatMessage) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		oaiMsg := openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
		for _, tc := range msg.ToolCalls {
			oaiMsg.ToolCalls = append(oaiMsg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		if msg.ToolCallID != "" {
			oaiMsg.ToolCallID = msg.ToolCallID
		}
		result[i] = oaiMsg
	}
	return result
}

// convertTools converts tool definitions to OpenAI format.
func convertTools(tools []ToolDefinition) []openai.Tool {
	if len(tools) == 0 {
		return nil
	}
	result := make([]openai.Tool, len(tools))
	for i, t := range tools {
		result[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		}
	}
	return result
}

// Verify OpenAIProvider implements Provider
var _ Provider = (*OpenAIProvider)(nil)
