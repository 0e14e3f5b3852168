package llm

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/tidwall/gjson"
)

const chatResponse = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1,
  "model": "test",
  "choices": [{
    "index": 0,
    "message": {
      "role": "assistant",
      "content": "",
      "reasoning_content": "I should search first.",
      "tool_calls": [{
        "id": "call_1",
        "type": "function",
        "function": {"name": "search", "arguments": "{\"query\": [\"super bowl 2024\"]}"}
      }]
    },
    "finish_reason": "tool_calls"
  }],
  "usage": {"prompt_tokens": 120, "completion_tokens": 30, "total_tokens": 150}
}`

// recordingServer answers every chat completion with body and keeps the last request.
type recordingServer struct {
	*httptest.Server
	mu   sync.Mutex
	last []byte
}

func newRecordingServer(t *testing.T, body string) *recordingServer {
	t.Helper()
	rs := &recordingServer{}
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		rs.mu.Lock()
		rs.last = data
		rs.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(rs.Close)
	return rs
}

func (rs *recordingServer) request() []byte {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.last
}

var searchTool = ToolDefinition{
	Name:        "search",
	Description: "web search",
	Parameters: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
		},
		"required": []string{"query"},
	},
}

func TestOpenAICompleteParsesToolCallsAndReasoning(t *testing.T) {
	srv := newRecordingServer(t, chatResponse)
	provider := NewOpenAIProvider("sk-test", srv.URL, "deepseek-reasoner")

	completion, err := provider.Complete(context.Background(), Request{
		Messages: []ChatMessage{UserMessage("Who won?")},
		Tools:    []ToolDefinition{searchTool},
		Sampling: DefaultSampling(),
		Profile:  ResolveProfile("deepseek-reasoner", srv.URL),
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	msg := completion.Message
	if len(msg.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(msg.ToolCalls))
	}
	if msg.ToolCalls[0].ID != "call_1" || msg.ToolCalls[0].Name != "search" {
		t.Errorf("unexpected tool call: %+v", msg.ToolCalls[0])
	}
	if !strings.Contains(msg.ToolCalls[0].Arguments, "super bowl 2024") {
		t.Errorf("arguments not preserved: %q", msg.ToolCalls[0].Arguments)
	}
	if string(msg.Reasoning) != `"I should search first."` {
		t.Errorf("Reasoning = %s", msg.Reasoning)
	}
	if completion.Usage.PromptTokens != 120 || completion.Usage.CompletionTokens != 30 {
		t.Errorf("Usage = %+v", completion.Usage)
	}

	body := srv.request()
	if got := gjson.GetBytes(body, "thinking.type").String(); got != "enabled" {
		t.Errorf("thinking.type = %q, want enabled", got)
	}
	if got := gjson.GetBytes(body, "max_tokens").Int(); got != 8192 {
		t.Errorf("max_tokens = %d, want 8192", got)
	}
	if gjson.GetBytes(body, "parallel_tool_calls").Exists() {
		t.Errorf("parallel_tool_calls should not be sent for this model")
	}
}

func TestOpenAICompleteSendsReasoningBack(t *testing.T) {
	srv := newRecordingServer(t, chatResponse)
	provider := NewOpenAIProvider("sk-test", srv.URL+"/openrouter", "deepseek/deepseek-r1")

	assistant := AssistantMessage("")
	assistant.ToolCalls = []ToolCall{{ID: "call_0", Name: "search", Arguments: `{"query":["x"]}`}}
	assistant.Reasoning = []byte(`[{"type":"reasoning.text","text":"plan"}]`)

	_, err := provider.Complete(context.Background(), Request{
		Messages: []ChatMessage{
			UserMessage("q"),
			assistant,
			ToolMessage("call_0", "results"),
		},
		Tools:    []ToolDefinition{searchTool},
		Sampling: Sampling{Temperature: 0.7, MaxTokens: 1024, EnableThinking: false},
		Profile:  ResolveProfile("deepseek/deepseek-r1", "https://openrouter.ai/api/v1"),
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	body := srv.request()
	details := gjson.GetBytes(body, "messages.1.reasoning_details")
	if !details.IsArray() || details.Get("0.text").String() != "plan" {
		t.Errorf("reasoning_details not sent back: %s", details.Raw)
	}
	if gjson.GetBytes(body, "messages.0.reasoning_details").Exists() {
		t.Errorf("reasoning attached to a message without one")
	}
	if got := gjson.GetBytes(body, "thinking.type").String(); got != "disabled" {
		t.Errorf("thinking.type = %q, want disabled", got)
	}
	if got := gjson.GetBytes(body, "messages.2.tool_call_id").String(); got != "call_0" {
		t.Errorf("tool_call_id = %q", got)
	}
}

func TestOpenAICompleteProfileOverrides(t *testing.T) {
	tests := []struct {
		name  string
		model string
		check func(t *testing.T, body []byte)
	}{
		{
			name:  "kimi forces temperature and presence penalty",
			model: "kimi-k2",
			check: func(t *testing.T, body []byte) {
				if got := gjson.GetBytes(body, "temperature").Float(); got != 1.0 {
					t.Errorf("temperature = %v, want 1.0", got)
				}
				pp := gjson.GetBytes(body, "presence_penalty")
				if !pp.Exists() || pp.Float() != 0 {
					t.Errorf("presence_penalty = %s, want explicit 0", pp.Raw)
				}
			},
		},
		{
			name:  "gpt disables parallel tool calls",
			model: "gpt-4o",
			check: func(t *testing.T, body []byte) {
				ptc := gjson.GetBytes(body, "parallel_tool_calls")
				if !ptc.Exists() || ptc.Bool() {
					t.Errorf("parallel_tool_calls = %s, want false", ptc.Raw)
				}
			},
		},
		{
			name:  "reasoning series uses max_completion_tokens",
			model: "gpt-5",
			check: func(t *testing.T, body []byte) {
				if gjson.GetBytes(body, "max_tokens").Exists() {
					t.Errorf("max_tokens should not be sent")
				}
				if got := gjson.GetBytes(body, "max_completion_tokens").Int(); got != 8192 {
					t.Errorf("max_completion_tokens = %d, want 8192", got)
				}
				if gjson.GetBytes(body, "temperature").Exists() {
					t.Errorf("temperature should not be sent")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newRecordingServer(t, chatResponse)
			provider := NewOpenAIProvider("sk-test", srv.URL, tt.model)
			_, err := provider.Complete(context.Background(), Request{
				Messages: []ChatMessage{UserMessage("q")},
				Tools:    []ToolDefinition{searchTool},
				Sampling: DefaultSampling(),
				Profile:  ResolveProfile(tt.model, srv.URL),
			})
			if err != nil {
				t.Fatalf("Complete failed: %v", err)
			}
			tt.check(t, srv.request())
		})
	}
}

func TestOpenAICompleteNoChoices(t *testing.T) {
	srv := newRecordingServer(t, `{"id":"x","object":"chat.completion","choices":[],"usage":{}}`)
	provider := NewOpenAIProvider("sk-test", srv.URL, "deepseek-chat")

	_, err := provider.Complete(context.Background(), Request{
		Messages: []ChatMessage{UserMessage("q")},
		Sampling: DefaultSampling(),
	})
	if err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestExtractReasoning(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
		want  string
	}{
		{"string", `{"choices":[{"message":{"reasoning_content":"x"}}]}`, ReasoningContent, `"x"`},
		{"structured", `{"choices":[{"message":{"reasoning_details":[{"a":1}]}}]}`, ReasoningDetails, `[{"a":1}]`},
		{"null", `{"choices":[{"message":{"reasoning_content":null}}]}`, ReasoningContent, ""},
		{"empty string", `{"choices":[{"message":{"reasoning_content":""}}]}`, ReasoningContent, ""},
		{"missing", `{"choices":[{"message":{}}]}`, ReasoningContent, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractReasoning([]byte(tt.body), tt.field)
			if string(got) != tt.want {
				t.Errorf("extractReasoning = %q, want %q", got, tt.want)
			}
		})
	}
}
