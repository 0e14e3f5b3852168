// Token-budget truncation.
//
// Information Hiding:
// - Tokenizer choice (cl100k_base) and lazy loading
// - Character-based approximation when the tokenizer cannot be loaded

package tools

import (
	"log/slog"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultPageTokenLimit bounds page content handed to the summarizer.
const DefaultPageTokenLimit = 95000

// approxRunesPerToken is used when no tokenizer is available.
const approxRunesPerToken = 4

// TokenCounter counts and truncates text by tokens.
type TokenCounter interface {
	Truncate(text string, maxTokens int) string
}

// Tiktoken truncates using a tiktoken encoding, loaded on first use.
type Tiktoken struct {
	encoding string
	logger   *slog.Logger

	once sync.Once
	enc  *tiktoken.Tiktoken
}

// NewTiktoken returns a counter for the named encoding (e.g. "cl100k_base").
func NewTiktoken(encoding string) *Tiktoken {
	return &Tiktoken{encoding: encoding, logger: slog.Default()}
}

func (t *Tiktoken) load() *tiktoken.Tiktoken {
	t.once.Do(func() {
		enc, err := tiktoken.GetEncoding(t.encoding)
		if err != nil {
			t.logger.Warn("tokenizer unavailable, approximating by characters",
				"encoding", t.encoding, "error", err)
			return
		}
		t.enc = enc
	})
	return t.enc
}

// Truncate returns text cut to at most maxTokens tokens.
func (t *Tiktoken) Truncate(text string, maxTokens int) string {
	enc := t.load()
	if enc == nil {
		return truncateRunes(text, maxTokens*approxRunesPerToken)
	}
	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	return enc.Decode(tokens[:maxTokens])
}

// RuneCounter approximates tokens by characters. Used in tests and offline runs.
type RuneCounter struct{}

// Truncate implements TokenCounter.
func (RuneCounter) Truncate(text string, maxTokens int) string {
	return truncateRunes(text, maxTokens*approxRunesPerToken)
}

// truncateRunes keeps the first n characters of s.
func truncateRunes(s string, n int) string {
	if n < 0 {
		n = 0
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
