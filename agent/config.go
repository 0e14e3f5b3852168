// Agent configuration types.
//
// Information Hiding:
// - Configuration validation logic hidden
// - Default values hidden

package agent

import (
	"fmt"
	"time"

	"github.com/richinex/sleuth/llm"
)

// Defaults for the research loop.
const (
	DefaultMaxSteps = 30
	DefaultMaxTries = 5
)

// Config holds agent configuration.
type Config struct {
	// MaxSteps is the inference budget for one question.
	MaxSteps int

	// Sampling is sent with every inference call.
	Sampling llm.Sampling

	// BaseURL of the inference endpoint; it selects the provider profile.
	BaseURL string

	// MaxTries bounds attempts per inference call.
	MaxTries int

	// RetryBaseDelay is the first backoff pause. Zero uses the retry default.
	RetryBaseDelay time.Duration

	// Now supplies the date written into the research prompt.
	Now func() time.Time
}

// DefaultConfig returns the research loop defaults.
func DefaultConfig() Config {
	return Config{
		MaxSteps: DefaultMaxSteps,
		Sampling: llm.DefaultSampling(),
		MaxTries: DefaultMaxTries,
		Now:      time.Now,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.MaxSteps < 1 {
		return fmt.Errorf("max steps must be at least 1, got %d", c.MaxSteps)
	}
	if c.MaxTries < 1 {
		return fmt.Errorf("max tries must be at least 1, got %d", c.MaxTries)
	}
	if c.Sampling.MaxTokens < 1 {
		return fmt.Errorf("max tokens must be positive, got %d", c.Sampling.MaxTokens)
	}
	return nil
}
