// Package agent provides the ReAct research loop.
//
// Contains the loop states and the message texts the loop injects.
package agent

// State is a phase of the solve loop.
type State int

const (
	StateRunning State = iota
	StateAwaitingToolResults
	StateAnswered
	StateExhausted
)

// String returns the state name used in logs.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateAwaitingToolResults:
		return "awaiting_tool_results"
	case StateAnswered:
		return "answered"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Terminal reports whether the loop stops in s.
func (s State) Terminal() bool {
	return s == StateAnswered || s == StateExhausted
}

// LastStepMessage answers every tool call made when no step is left to use the result.
const LastStepMessage = "Sorry, the number of llm calls exceeds the limit. You have no chance to call tools. Please directly give the final answer."

// AgentType is recorded in every run artifact.
const AgentType = "ReActAgent"
