// Package llm provides LLM provider abstractions.
//
// LLM Provider interface - the abstract interface for LLM providers.
// Each provider implementation hides:
// - API client initialization and authentication
// - Request/response format conversion
// - Vendor request extensions selected by the Profile
//
// Providers never retry. Wrap them with WithRetry.

package llm

import (
	"context"
)

// Provider defines the abstract interface for LLM providers.
type Provider interface {
	// Name returns the provider name (for logging/debugging).
	Name() string

	// Model returns the current model being used.
	Model() string

	// Complete sends one chat completion request with optional tool definitions.
	// The returned message may carry tool calls and a reasoning payload.
	Complete(ctx context.Context, req Request) (Completion, error)
}
