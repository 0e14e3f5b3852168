// Agent builder for fluent configuration.
//
// Information Hiding:
// - Builder state management hidden
// - Default value application hidden
// - Registry construction from the added tools

package agent

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/richinex/sleuth/llm"
	"github.com/richinex/sleuth/tools"
)

// Builder assembles an Agent.
// Usage: agent.NewBuilder(provider).MaxSteps(30).Tool(search).Build()
type Builder struct {
	provider llm.Provider
	config   Config
	tools    []tools.Tool
	logger   *slog.Logger
}

// NewBuilder starts a builder with default configuration.
func NewBuilder(provider llm.Provider) *Builder {
	return &Builder{
		provider: provider,
		config:   DefaultConfig(),
	}
}

// MaxSteps sets the inference budget.
func (b *Builder) MaxSteps(n int) *Builder {
	b.config.MaxSteps = n
	return b
}

// Sampling sets generation settings.
func (b *Builder) Sampling(s llm.Sampling) *Builder {
	b.config.Sampling = s
	return b
}

// BaseURL sets the endpoint used to resolve the provider profile.
func (b *Builder) BaseURL(url string) *Builder {
	b.config.BaseURL = url
	return b
}

// MaxTries sets the attempt budget per inference call.
func (b *Builder) MaxTries(n int) *Builder {
	b.config.MaxTries = n
	return b
}

// RetryBaseDelay sets the first backoff pause.
func (b *Builder) RetryBaseDelay(d time.Duration) *Builder {
	b.config.RetryBaseDelay = d
	return b
}

// Clock sets the time source for the prompt date.
func (b *Builder) Clock(now func() time.Time) *Builder {
	b.config.Now = now
	return b
}

// Tool adds a tool to the agent.
func (b *Builder) Tool(tool tools.Tool) *Builder {
	b.tools = append(b.tools, tool)
	return b
}

// Tools adds multiple tools at once.
func (b *Builder) Tools(toolList []tools.Tool) *Builder {
	b.tools = append(b.tools, toolList...)
	return b
}

// Logger sets the logger.
func (b *Builder) Logger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// Config returns the configuration built so far.
func (b *Builder) Config() Config {
	return b.config
}

// Build creates the agent.
func (b *Builder) Build() (*Agent, error) {
	registry, err := tools.NewRegistry(b.tools...)
	if err != nil {
		return nil, fmt.Errorf("failed to build tool registry: %w", err)
	}
	if b.logger != nil {
		registry.WithLogger(b.logger)
	}
	return New(b.config, b.provider, registry, b.logger)
}
