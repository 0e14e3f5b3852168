// Page summarizer.
//
// Information Hiding:
// - Secondary provider, its profile and fixed sampling settings
// - Retry budget for summarization calls
// - Failures collapse to empty output; callers only see text and usage

package tools

import (
	"context"
	"log/slog"

	"github.com/richinex/sleuth/llm"
)

// DefaultSummaryRetries is the attempt budget for one summarization call.
const DefaultSummaryRetries = 1

// Summarizer turns an extraction prompt into model output.
type Summarizer struct {
	inner    llm.Provider
	attempts int
	provider llm.Provider
	profile  llm.Profile
	sampling llm.Sampling
	logger   *slog.Logger
}

// NewSummarizer wraps provider with attempts retries and no pause between them.
// baseURL selects the provider profile.
func NewSummarizer(provider llm.Provider, baseURL string, attempts int) *Summarizer {
	if attempts <= 0 {
		attempts = DefaultSummaryRetries
	}
	s := &Summarizer{
		inner:    provider,
		attempts: attempts,
		profile:  llm.ResolveProfile(provider.Model(), baseURL),
		sampling: llm.Sampling{
			Temperature:    0.7,
			MaxTokens:      8192,
			EnableThinking: false,
		},
		logger: slog.Default(),
	}
	s.wrap()
	return s
}

// WithLogger sets the logger for failures and retry attempts.
func (s *Summarizer) WithLogger(l *slog.Logger) *Summarizer {
	if l != nil {
		s.logger = l
		s.wrap()
	}
	return s
}

func (s *Summarizer) wrap() {
	s.provider = llm.WithRetry(s.inner,
		llm.RetryMaxAttempts(s.attempts),
		llm.RetryBaseDelay(0),
		llm.RetryLogger(s.logger))
}

// Summarize sends prompt as a single user message. On failure it returns
// empty text and zero usage.
func (s *Summarizer) Summarize(ctx context.Context, prompt string) (string, llm.TokenUsage) {
	completion, err := s.provider.Complete(ctx, llm.Request{
		Messages: []llm.ChatMessage{llm.UserMessage(prompt)},
		Sampling: s.sampling,
		Profile:  s.profile,
	})
	if err != nil {
		s.logger.Warn("summarization failed", "model", s.provider.Model(), "error", err)
		return "", llm.TokenUsage{}
	}
	return completion.Message.Content, completion.Usage
}
