// Retry wrapper around a Provider.
//
// Information Hiding:
// - Attempt budget and capped exponential backoff schedule
// - Per-attempt logging and retry metrics
// - Exhaustion reported as ErrRetriesExhausted wrapping the last cause

package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/richinex/sleuth/metrics"
)

// ErrRetriesExhausted is returned when every attempt failed.
var ErrRetriesExhausted = errors.New("inference retries exhausted")

// Retry defaults.
const (
	DefaultRetryMaxAttempts = 5
	DefaultRetryBaseDelay   = time.Second
	DefaultRetryMaxDelay    = 30 * time.Second
)

// retryProvider wraps a Provider and retries every failed Complete call.
type retryProvider struct {
	inner       Provider
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	logger      *slog.Logger
}

// RetryOption configures WithRetry.
type RetryOption func(*retryProvider)

// RetryMaxAttempts sets the total number of attempts (default 5).
func RetryMaxAttempts(n int) RetryOption {
	return func(r *retryProvider) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// RetryBaseDelay sets the pause after the first failed attempt (default 1s).
// Each later pause doubles until RetryMaxDelay.
func RetryBaseDelay(d time.Duration) RetryOption {
	return func(r *retryProvider) { r.baseDelay = d }
}

// RetryMaxDelay caps a single pause (default 30s).
func RetryMaxDelay(d time.Duration) RetryOption {
	return func(r *retryProvider) { r.maxDelay = d }
}

// RetryLogger sets the logger for failed attempts (default slog.Default()).
func RetryLogger(l *slog.Logger) RetryOption {
	return func(r *retryProvider) { r.logger = l }
}

// WithRetry wraps p so that failed calls are retried with capped exponential
// backoff. No pause follows the last attempt.
//
//	provider = llm.WithRetry(llm.NewOpenAIProvider(key, baseURL, model))
//	provider = llm.WithRetry(provider, llm.RetryMaxAttempts(2))
func WithRetry(p Provider, opts ...RetryOption) Provider {
	r := &retryProvider{
		inner:       p,
		maxAttempts: DefaultRetryMaxAttempts,
		baseDelay:   DefaultRetryBaseDelay,
		maxDelay:    DefaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Name delegates to the inner provider.
func (r *retryProvider) Name() string { return r.inner.Name() }

// Model delegates to the inner provider.
func (r *retryProvider) Model() string { return r.inner.Model() }

// Complete implements Provider with retry.
func (r *retryProvider) Complete(ctx context.Context, req Request) (Completion, error) {
	var last error
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		start := time.Now()
		completion, err := r.inner.Complete(ctx, req)
		metrics.Since(metrics.InferenceDuration.WithLabelValues(r.inner.Name()), start)
		if err == nil {
			metrics.InferenceRequests.WithLabelValues(r.inner.Name(), "ok").Inc()
			return completion, nil
		}
		metrics.InferenceRequests.WithLabelValues(r.inner.Name(), "error").Inc()
		metrics.RetryAttempts.WithLabelValues(r.inner.Name()).Inc()

		if ctxErr := ctx.Err(); ctxErr != nil {
			return Completion{}, ctxErr
		}

		last = err
		r.logger.Warn("inference attempt failed",
			"provider", r.inner.Name(),
			"model", r.inner.Model(),
			"attempt", attempt+1,
			"max_attempts", r.maxAttempts,
			"error", err)

		if attempt < r.maxAttempts-1 {
			timer := time.NewTimer(r.backoff(attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				return Completion{}, ctx.Err()
			case <-timer.C:
			}
		}
	}

	r.logger.Error("all inference attempts failed",
		"provider", r.inner.Name(),
		"attempts", r.maxAttempts,
		"error", last)
	return Completion{}, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, r.maxAttempts, last)
}

// backoff returns min(baseDelay * 2^attempt, maxDelay).
func (r *retryProvider) backoff(attempt int) time.Duration {
	delay := r.baseDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= r.maxDelay {
			return r.maxDelay
		}
	}
	if delay > r.maxDelay {
		return r.maxDelay
	}
	return delay
}

// Verify retryProvider implements Provider
var _ Provider = (*retryProvider)(nil)
