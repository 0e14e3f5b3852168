package agent

import (
	"encoding/json"

	"github.com/richinex/sleuth/llm"
	"github.com/richinex/sleuth/model"
)

// Sanitize flattens a conversation into plain transcript messages.
// Reasoning payloads are written under reasoningField; payloads that are not
// valid JSON are kept as JSON strings.
func Sanitize(messages []llm.ChatMessage, reasoningField string) []model.TranscriptMessage {
	out := make([]model.TranscriptMessage, 0, len(messages))
	for _, m := range messages {
		tm := model.TranscriptMessage{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		for _, call := range m.ToolCalls {
			tm.ToolCalls = append(tm.ToolCalls, model.TranscriptToolCall{
				Name:      call.Name,
				Arguments: call.Arguments,
				ID:        call.ID,
			})
		}
		if len(m.Reasoning) > 0 {
			tm.ReasoningField = reasoningField
			tm.Reasoning = reasoningJSON(m.Reasoning)
		}
		out = append(out, tm)
	}
	return out
}

func reasoningJSON(raw json.RawMessage) json.RawMessage {
	if json.Valid(raw) {
		return raw
	}
	quoted, err := json.Marshal(string(raw))
	if err != nil {
		return nil
	}
	return quoted
}
