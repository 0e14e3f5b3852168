// ReAct (Reason + Act) loop implementation.
//
// Information Hiding:
// - Step budget accounting and last-step tool suppression
// - Conversation state, owned by one Solve call
// - Token bookkeeping split between inference and tools
// - Transcript sanitizing on termination

package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/richinex/sleuth/llm"
	"github.com/richinex/sleuth/metrics"
	"github.com/richinex/sleuth/model"
	"github.com/richinex/sleuth/tools"
)

// Agent answers questions by alternating inference with tool calls.
type Agent struct {
	config   Config
	provider llm.Provider
	registry *tools.Registry
	profile  llm.Profile
	logger   *slog.Logger
}

// New creates an agent. Inference calls go through a retry wrapper sized by
// config.MaxTries; the provider profile is resolved here once.
func New(config Config, provider llm.Provider, registry *tools.Registry, logger *slog.Logger) (*Agent, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid agent config: %w", err)
	}
	if provider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("tool registry is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	opts := []llm.RetryOption{llm.RetryMaxAttempts(config.MaxTries), llm.RetryLogger(logger)}
	if config.RetryBaseDelay > 0 {
		opts = append(opts, llm.RetryBaseDelay(config.RetryBaseDelay))
	}

	return &Agent{
		config:   config,
		provider: llm.WithRetry(provider, opts...),
		registry: registry,
		profile:  llm.ResolveProfile(provider.Model(), config.BaseURL),
		logger:   logger,
	}, nil
}

// Model returns the inference model name.
func (a *Agent) Model() string {
	return a.provider.Model()
}

// Profile returns the resolved provider profile.
func (a *Agent) Profile() llm.Profile {
	return a.profile
}

// Solve runs the loop for one question. The only error is an inference
// failure that survived every retry, or context cancellation.
func (a *Agent) Solve(ctx context.Context, question string) (model.RunRecord, error) {
	start := time.Now()
	messages := []llm.ChatMessage{
		llm.UserMessage(ResearchPrompt(question, a.config.Now(), a.config.MaxSteps)),
	}
	definitions := a.registry.Definitions()

	stats := model.NewTokenStats()
	prediction := model.NoAnswer
	reason := model.TerminationMaxSteps
	state := StateRunning

	step := 0
	for step < a.config.MaxSteps {
		step++

		completion, err := a.provider.Complete(ctx, llm.Request{
			Messages: messages,
			Tools:    definitions,
			Sampling: a.config.Sampling,
			Profile:  a.profile,
		})
		if err != nil {
			return model.RunRecord{}, fmt.Errorf("inference failed at step %d: %w", step, err)
		}

		reply := completion.Message
		assistant := llm.ChatMessage{
			Role:      llm.RoleAssistant,
			Content:   reply.Content,
			ToolCalls: reply.ToolCalls,
		}
		if a.config.Sampling.EnableThinking {
			assistant.Reasoning = reply.Reasoning
		}
		messages = append(messages, assistant)
		stats.AddInference(int(completion.Usage.PromptTokens), int(completion.Usage.CompletionTokens))

		if len(reply.ToolCalls) == 0 {
			state = StateAnswered
			reason = model.TerminationAnswer
			prediction = reply.Content
			break
		}

		state = StateAwaitingToolResults
		a.logger.Debug("tool calls requested",
			"step", step,
			"state", state.String(),
			"calls", len(reply.ToolCalls))

		if a.config.MaxSteps-step <= 1 {
			for _, call := range reply.ToolCalls {
				messages = append(messages, llm.ToolMessage(call.ID, LastStepMessage))
			}
			state = StateRunning
			continue
		}

		for _, call := range reply.ToolCalls {
			result := a.registry.Dispatch(ctx, call)
			if !result.Invalid {
				stats.AddTool(result.InputTokens, result.OutputTokens)
			}
			messages = append(messages, llm.ToolMessage(call.ID, result.Text))
		}
		state = StateRunning
	}
	if !state.Terminal() {
		state = StateExhausted
	}

	a.logger.Info("solve finished",
		"state", state.String(),
		"termination_reason", string(reason),
		"steps", step,
		"input_tokens", stats.TotalInputTokens,
		"output_tokens", stats.TotalOutputTokens)
	metrics.Since(metrics.RunDuration.WithLabelValues(string(reason)), start)

	return model.RunRecord{
		Question:          question,
		Prediction:        prediction,
		Messages:          Sanitize(messages, a.profile.ReasoningField),
		StepsTaken:        step,
		TerminationReason: reason,
		TokenStats:        stats,
	}, nil
}
