// Package tools provides the capabilities the research loop can invoke.
//
// Information Hiding:
// - Tool execution details hidden behind interface
// - Tool parameters and schemas hidden in implementations
// - Recoverable failures are encoded as result text, never as errors
package tools

import (
	"context"

	"github.com/richinex/sleuth/llm"
)

// Result is the outcome of one tool invocation. Token counts cover any
// model calls the tool made internally.
type Result struct {
	Text         string
	InputTokens  int
	OutputTokens int

	// Invalid is set by the registry when the call never reached a tool.
	Invalid bool
}

// Tool is the interface that all tools must implement.
type Tool interface {
	// Definition returns the schema advertised to the model.
	Definition() llm.ToolDefinition

	// Invoke runs the tool with decoded arguments.
	Invoke(ctx context.Context, args map[string]any) Result
}

// JoinSeparator separates per-item results of batched tools.
const JoinSeparator = "\n=======\n"

// stringList accepts a string or an array of strings.
// ok is false for any other shape.
func stringList(v any) (values []string, ok bool) {
	switch t := v.(type) {
	case string:
		return []string{t}, true
	case []string:
		return t, true
	case []any:
		values = make([]string, 0, len(t))
		for _, item := range t {
			s, isString := item.(string)
			if !isString {
				return nil, false
			}
			values = append(values, s)
		}
		return values, true
	default:
		return nil, false
	}
}
