// Tool registry and dispatch.
//
// Information Hiding:
// - Name to implementation table, fixed at construction
// - Argument decoding (strict, extracted, repaired)
// - Conversion of every dispatch failure into the invalid-call message

package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	jsonutil "github.com/richinex/sleuth/internal/json"
	"github.com/richinex/sleuth/llm"
	"github.com/richinex/sleuth/metrics"
)

// InvalidCallMessage is returned to the model when a call cannot be dispatched.
const InvalidCallMessage = `Error: Tool call is not a valid JSON. Tool call must contain a valid "name" and "arguments" field.`

// Registry maps tool names to implementations. It is immutable after
// construction and safe for concurrent use.
type Registry struct {
	tools  map[string]Tool
	order  []string
	logger *slog.Logger
}

// NewRegistry builds a registry from tools.
// Returns error if two tools share a name.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{
		tools:  make(map[string]Tool, len(tools)),
		logger: slog.Default(),
	}
	for _, tool := range tools {
		name := tool.Definition().Name
		if name == "" {
			return nil, fmt.Errorf("tool %T has no name", tool)
		}
		if _, exists := r.tools[name]; exists {
			return nil, fmt.Errorf("tool '%s' already registered", name)
		}
		r.tools[name] = tool
		r.order = append(r.order, name)
	}
	return r, nil
}

// WithLogger sets the logger used for dispatch diagnostics.
func (r *Registry) WithLogger(l *slog.Logger) *Registry {
	if l != nil {
		r.logger = l
	}
	return r
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	tool, exists := r.tools[name]
	return tool, exists
}

// Names returns all registered tool names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	sort.Strings(names)
	return names
}

// Definitions returns tool schemas in registration order.
func (r *Registry) Definitions() []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Dispatch decodes the call's arguments and invokes the named tool.
// It never fails: unknown tools, undecodable arguments and panics all
// produce InvalidCallMessage with zero tokens.
func (r *Registry) Dispatch(ctx context.Context, call llm.ToolCall) (result Result) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("tool panicked", "tool", call.Name, "call_id", call.ID, "panic", p)
			metrics.ToolInvocations.WithLabelValues(call.Name, "panic").Inc()
			result = invalidCall()
		}
	}()

	tool, ok := r.tools[call.Name]
	if !ok {
		r.logger.Warn("unknown tool", "tool", call.Name, "call_id", call.ID)
		metrics.ToolInvocations.WithLabelValues("unknown", "invalid").Inc()
		return invalidCall()
	}

	args, stage, err := jsonutil.Decode(call.Arguments)
	if err != nil {
		r.logger.Warn("undecodable tool arguments", "tool", call.Name, "call_id", call.ID, "error", err)
		metrics.ToolInvocations.WithLabelValues(call.Name, "invalid").Inc()
		return invalidCall()
	}
	if stage != jsonutil.StageStrict {
		r.logger.Debug("tool arguments recovered", "tool", call.Name, "stage", stage.String())
	}

	result = tool.Invoke(ctx, args)
	result.Invalid = false
	metrics.ToolInvocations.WithLabelValues(call.Name, "ok").Inc()
	return result
}

func invalidCall() Result {
	return Result{Text: InvalidCallMessage, Invalid: true}
}
