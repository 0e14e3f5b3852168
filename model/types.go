// Package model provides domain types shared across packages.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// AnswerShape is the expected structure of a question's answer.
type AnswerShape string

const (
	ShapeItem  AnswerShape = "item"
	ShapeList  AnswerShape = "list"
	ShapeSet   AnswerShape = "set"
	ShapeTable AnswerShape = "table"
)

// Valid reports whether s is one of the known shapes. The empty shape is allowed.
func (s AnswerShape) Valid() bool {
	switch s {
	case "", ShapeItem, ShapeList, ShapeSet, ShapeTable:
		return true
	}
	return false
}

// Question is one benchmark input. Immutable once loaded.
type Question struct {
	ID          string          `json:"id"`
	Text        string          `json:"question"`
	AnswerShape AnswerShape     `json:"answer_type,omitempty"`
	Answer      json.RawMessage `json:"answer,omitempty"`

	// Raw is the input object as read, including fields not modeled here.
	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON accepts the id as either a JSON string or a number.
func (q *Question) UnmarshalJSON(data []byte) error {
	type questionAlias Question
	aux := &struct {
		ID json.RawMessage `json:"id"`
		*questionAlias
	}{
		questionAlias: (*questionAlias)(q),
	}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	id, err := parseID(aux.ID)
	if err != nil {
		return err
	}
	q.ID = id
	q.Raw = append(json.RawMessage(nil), bytes.TrimSpace(data)...)

	if !q.AnswerShape.Valid() {
		return fmt.Errorf("unknown answer shape %q", q.AnswerShape)
	}
	return nil
}

// Item returns the question as it should be recorded: the input object
// unchanged when it was decoded, otherwise the modeled fields.
func (q Question) Item() json.RawMessage {
	if len(q.Raw) > 0 {
		return q.Raw
	}
	data, err := json.Marshal(q)
	if err != nil {
		return nil
	}
	return data
}

func parseID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", fmt.Errorf("question id is missing")
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("invalid question id: %w", err)
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("invalid question id %s: %w", raw, err)
	}
	return n.String(), nil
}

// CompareIDs orders question ids: numeric ids numerically, then everything else lexically.
func CompareIDs(a, b string) int {
	ai, aErr := strconv.ParseInt(a, 10, 64)
	bi, bErr := strconv.ParseInt(b, 10, 64)
	switch {
	case aErr == nil && bErr == nil:
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		}
		return 0
	case aErr == nil:
		return -1
	case bErr == nil:
		return 1
	}
	return strings.Compare(a, b)
}

// CacheKey uniquely identifies a cached tool result.
// The namespace carries the schema version, e.g. "search_v1".
type CacheKey struct {
	Namespace string
	Value     string
}

// String returns the canonical "namespace:value" form stored in the cache.
func (k CacheKey) String() string {
	return k.Namespace + ":" + k.Value
}

// SearchKey creates the cache key for a search query.
func SearchKey(query string) CacheKey {
	return CacheKey{Namespace: "search_v1", Value: strings.TrimSpace(query)}
}

// VisitKey creates the cache key for a page fetch. The URL is used verbatim.
func VisitKey(url string) CacheKey {
	return CacheKey{Namespace: "visit_v1", Value: url}
}

// TerminationReason records why a solve loop stopped.
type TerminationReason string

const (
	TerminationAnswer   TerminationReason = "answer"
	TerminationMaxSteps TerminationReason = "max_steps"
)

// NoAnswer is the prediction recorded when the step budget runs out.
const NoAnswer = "No answer found"

// TokenStats accumulates token usage for one solve.
type TokenStats struct {
	TotalInputTokens    int   `json:"total_input_tokens"`
	TotalOutputTokens   int   `json:"total_output_tokens"`
	ToolInputTokenList  []int `json:"tool_input_token_list"`
	ToolOutputTokenList []int `json:"tool_output_token_list"`
	ToolInputTokens     int   `json:"tool_input_tokens"`
	ToolOutputTokens    int   `json:"tool_output_tokens"`
}

// NewTokenStats returns zeroed stats whose lists encode as [] rather than null.
func NewTokenStats() TokenStats {
	return TokenStats{
		ToolInputTokenList:  []int{},
		ToolOutputTokenList: []int{},
	}
}

// AddInference records usage of one orchestration-level model call.
func (s *TokenStats) AddInference(in, out int) {
	s.TotalInputTokens += in
	s.TotalOutputTokens += out
}

// AddTool records usage of one tool invocation, including summarization sub-calls.
func (s *TokenStats) AddTool(in, out int) {
	s.TotalInputTokens += in
	s.TotalOutputTokens += out
	s.ToolInputTokens += in
	s.ToolOutputTokens += out
	s.ToolInputTokenList = append(s.ToolInputTokenList, in)
	s.ToolOutputTokenList = append(s.ToolOutputTokenList, out)
}

// TranscriptToolCall is a tool call flattened to plain fields.
type TranscriptToolCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
	ID        string `json:"id"`
}

// TranscriptMessage is one sanitized conversation message.
// The reasoning payload is written under ReasoningField, which depends on the provider.
type TranscriptMessage struct {
	Role           string
	Content        string
	ToolCalls      []TranscriptToolCall
	ToolCallID     string
	ReasoningField string
	Reasoning      json.RawMessage
}

// Known reasoning field names.
var reasoningFields = []string{"reasoning_content", "reasoning_details"}

// MarshalJSON writes only the fields that are set, with the reasoning payload
// under its provider-specific key.
func (m TranscriptMessage) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"role":    m.Role,
		"content": m.Content,
	}
	if len(m.ToolCalls) > 0 {
		out["tool_calls"] = m.ToolCalls
	}
	if m.ToolCallID != "" {
		out["tool_call_id"] = m.ToolCallID
	}
	if m.ReasoningField != "" && len(m.Reasoning) > 0 {
		out[m.ReasoningField] = m.Reasoning
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores a message written by MarshalJSON.
func (m *TranscriptMessage) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*m = TranscriptMessage{}
	if v, ok := raw["role"]; ok {
		if err := json.Unmarshal(v, &m.Role); err != nil {
			return fmt.Errorf("role: %w", err)
		}
	}
	if v, ok := raw["content"]; ok && !bytes.Equal(v, []byte("null")) {
		if err := json.Unmarshal(v, &m.Content); err != nil {
			return fmt.Errorf("content: %w", err)
		}
	}
	if v, ok := raw["tool_calls"]; ok {
		if err := json.Unmarshal(v, &m.ToolCalls); err != nil {
			return fmt.Errorf("tool_calls: %w", err)
		}
	}
	if v, ok := raw["tool_call_id"]; ok {
		if err := json.Unmarshal(v, &m.ToolCallID); err != nil {
			return fmt.Errorf("tool_call_id: %w", err)
		}
	}
	for _, field := range reasoningFields {
		if v, ok := raw[field]; ok {
			m.ReasoningField = field
			m.Reasoning = append(json.RawMessage(nil), v...)
			break
		}
	}
	return nil
}

// RunRecord is the persisted outcome of solving one question.
type RunRecord struct {
	Question          string              `json:"question"`
	Prediction        string              `json:"prediction"`
	Messages          []TranscriptMessage `json:"messages"`
	StepsTaken        int                 `json:"steps_taken"`
	TerminationReason TerminationReason   `json:"termination_reason"`
	TokenStats        TokenStats          `json:"token_stats"`

	// Set by the runner, absent from a bare solve.
	Idx              string          `json:"idx,omitempty"`
	QuestionItem     json.RawMessage `json:"question_item,omitempty"`
	TotalTimeSeconds float64         `json:"total_time_seconds,omitempty"`
	AgentType        string          `json:"agent_type,omitempty"`
	ModelName        string          `json:"model_name,omitempty"`
}

// SearchHit is one organic web search result.
type SearchHit struct {
	Title   string
	Link    string
	Date    string
	Source  string
	Snippet string
}

// SearchResults is the response of a search backend for one query.
// HasOrganic is false when the backend returned no organic section at all.
type SearchResults struct {
	Organic    []SearchHit
	HasOrganic bool
}
