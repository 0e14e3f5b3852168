package tools

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/richinex/sleuth/internal/logging"
	"github.com/richinex/sleuth/llm"
	"github.com/richinex/sleuth/model"
	"github.com/richinex/sleuth/storage"
)

type fakeReader struct {
	mu    sync.Mutex
	pages map[string]string
	errs  map[string]error
	calls map[string]int
}

func newFakeReader() *fakeReader {
	return &fakeReader{
		pages: make(map[string]string),
		errs:  make(map[string]error),
		calls: make(map[string]int),
	}
}

func (f *fakeReader) Read(ctx context.Context, url string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[url]++
	if err, ok := f.errs[url]; ok {
		return "", err
	}
	return f.pages[url], nil
}

func (f *fakeReader) callCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

const extraction = `{"rational": "r", "evidence": "the evidence", "summary": "the summary"}`

func newTestVisit(reader PageReader, provider llm.Provider, cache *storage.ResultCache) *Visit {
	return NewVisit(reader, NewSummarizer(provider, "", 1).WithLogger(logging.Discard()), cache, newTestBatch(3, 5*time.Second)).
		WithLogger(logging.Discard()).
		WithTokenCounter(RuneCounter{}, DefaultPageTokenLimit)
}

func TestVisitSummarizesPage(t *testing.T) {
	reader := newFakeReader()
	reader.pages["https://a"] = "page body"
	provider := &scriptedProvider{
		replies: []string{"```json\n" + extraction + "\n```"},
		usage:   llm.TokenUsage{PromptTokens: 100, CompletionTokens: 20},
	}

	got := newTestVisit(reader, provider, nil).Invoke(context.Background(),
		map[string]any{"url": "https://a", "goal": "find facts"})

	want := "The useful information in https://a for user goal find facts as follows: \n\n" +
		"Evidence in page: \nthe evidence\n\n" +
		"Summary: \nthe summary"
	if got.Text != want {
		t.Errorf("Invoke() =\n%q\nwant\n%q", got.Text, want)
	}
	if got.InputTokens != 100 || got.OutputTokens != 20 {
		t.Errorf("tokens = %d/%d, want 100/20", got.InputTokens, got.OutputTokens)
	}
	if !strings.Contains(provider.prompt(0), "page body") || !strings.Contains(provider.prompt(0), "find facts") {
		t.Errorf("prompt missing content or goal: %q", provider.prompt(0))
	}
}

func TestVisitSummarizerSampling(t *testing.T) {
	reader := newFakeReader()
	reader.pages["https://a"] = "page body"
	provider := &scriptedProvider{replies: []string{extraction}}

	newTestVisit(reader, provider, nil).Invoke(context.Background(),
		map[string]any{"url": "https://a", "goal": "g"})

	req := provider.requests[0]
	if req.Sampling.Temperature != 0.7 || req.Sampling.MaxTokens != 8192 || req.Sampling.EnableThinking {
		t.Errorf("sampling = %+v, want temperature 0.7, 8192 tokens, thinking off", req.Sampling)
	}
	if len(req.Tools) != 0 {
		t.Errorf("summarizer sent %d tools, want none", len(req.Tools))
	}
}

func TestVisitUnreadablePage(t *testing.T) {
	reader := newFakeReader()
	reader.errs["https://down"] = errors.New("status 500")
	provider := &scriptedProvider{replies: []string{extraction}}

	got := newTestVisit(reader, provider, nil).Invoke(context.Background(),
		map[string]any{"url": "https://down", "goal": "g"})

	if !strings.Contains(got.Text, "Evidence in page: \n"+UnreadableEvidence) ||
		!strings.Contains(got.Text, "Summary: \n"+UnreadableSummary) {
		t.Errorf("Invoke() = %q, want placeholder text", got.Text)
	}
	if provider.calls() != 0 {
		t.Errorf("summarizer called %d times for unreadable page", provider.calls())
	}
}

func TestVisitShrinksPageOnShortSummary(t *testing.T) {
	reader := newFakeReader()
	reader.pages["https://a"] = "abcdefghij"
	provider := &scriptedProvider{replies: []string{"", "short", extraction}}

	got := newTestVisit(reader, provider, nil).Invoke(context.Background(),
		map[string]any{"url": "https://a", "goal": "g"})

	if provider.calls() != 3 {
		t.Fatalf("summarizer calls = %d, want 3", provider.calls())
	}
	if p := provider.prompt(1); !strings.Contains(p, "abcdefg\n") || strings.Contains(p, "abcdefgh") {
		t.Errorf("second prompt not cut to 70%%: %q", p)
	}
	if p := provider.prompt(2); !strings.Contains(p, "abcd\n") || strings.Contains(p, "abcde") {
		t.Errorf("third prompt not cut to 70%% again: %q", p)
	}
	if !strings.Contains(got.Text, "the evidence") {
		t.Errorf("Invoke() = %q, want extracted evidence", got.Text)
	}
}

func TestVisitGivesUpAfterParseRetries(t *testing.T) {
	reader := newFakeReader()
	reader.pages["https://a"] = "page body"
	provider := &scriptedProvider{replies: []string{"this is not json at all"}}

	got := newTestVisit(reader, provider, nil).Invoke(context.Background(),
		map[string]any{"url": "https://a", "goal": "g"})

	if provider.calls() != 1+parseRetries {
		t.Errorf("summarizer calls = %d, want %d", provider.calls(), 1+parseRetries)
	}
	if !strings.Contains(got.Text, UnreadableSummary) {
		t.Errorf("Invoke() = %q, want placeholder", got.Text)
	}
}

func TestVisitRequiresEvidenceAndSummary(t *testing.T) {
	reader := newFakeReader()
	reader.pages["https://a"] = "page body"
	provider := &scriptedProvider{replies: []string{
		`{"summary": "only a summary"}`,
		`{"evidence": ["e1", "e2"], "summary": "s"}`,
	}}

	got := newTestVisit(reader, provider, nil).Invoke(context.Background(),
		map[string]any{"url": "https://a", "goal": "g"})

	if provider.calls() != 2 {
		t.Errorf("summarizer calls = %d, want 2", provider.calls())
	}
	if !strings.Contains(got.Text, "Evidence in page: \n[\"e1\",\"e2\"]\n\n") {
		t.Errorf("Invoke() = %q, want JSON-rendered evidence", got.Text)
	}
}

func TestVisitSummarizerFailure(t *testing.T) {
	reader := newFakeReader()
	reader.pages["https://a"] = "page body"
	provider := &scriptedProvider{err: errors.New("model overloaded")}

	got := newTestVisit(reader, provider, nil).Invoke(context.Background(),
		map[string]any{"url": "https://a", "goal": "g"})

	// initial call, four shrink attempts and three parse retries
	if provider.calls() != 8 {
		t.Errorf("summarizer calls = %d, want 8", provider.calls())
	}
	if !strings.Contains(got.Text, UnreadableEvidence) || got.InputTokens != 0 {
		t.Errorf("Invoke() = %+v, want placeholder with zero tokens", got)
	}
}

func TestVisitMultipleURLs(t *testing.T) {
	reader := newFakeReader()
	reader.pages["https://a"] = "page a"
	reader.pages["https://b"] = "page b"
	provider := &scriptedProvider{
		replies: []string{extraction},
		usage:   llm.TokenUsage{PromptTokens: 10, CompletionTokens: 5},
	}

	got := newTestVisit(reader, provider, nil).Invoke(context.Background(),
		map[string]any{"url": []any{"https://a", "https://b"}, "goal": "g"})

	parts := strings.Split(got.Text, JoinSeparator)
	if len(parts) != 2 {
		t.Fatalf("Invoke() returned %d parts, want 2", len(parts))
	}
	if !strings.HasPrefix(parts[0], "The useful information in https://a ") ||
		!strings.HasPrefix(parts[1], "The useful information in https://b ") {
		t.Errorf("parts out of order: %q", parts)
	}
	if got.InputTokens != 20 || got.OutputTokens != 10 {
		t.Errorf("tokens = %d/%d, want 20/10", got.InputTokens, got.OutputTokens)
	}
	if strings.HasSuffix(got.Text, "\n") {
		t.Error("result not trimmed")
	}
}

func TestVisitInvalidArguments(t *testing.T) {
	v := newTestVisit(newFakeReader(), &scriptedProvider{}, nil)

	tests := []struct {
		name string
		args map[string]any
	}{
		{"missing goal", map[string]any{"url": "https://a"}},
		{"missing url", map[string]any{"goal": "g"}},
		{"numeric url", map[string]any{"url": 1.0, "goal": "g"}},
		{"empty list", map[string]any{"url": []any{}, "goal": "g"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.Invoke(context.Background(), tt.args)
			if !strings.HasPrefix(got.Text, "[Visit] Invalid request format") {
				t.Errorf("Invoke() = %q, want invalid request text", got.Text)
			}
		})
	}
}

func TestVisitCachesSuccessfulReads(t *testing.T) {
	reader := newFakeReader()
	reader.pages["https://a"] = "page body"
	reader.errs["https://down"] = errors.New("refused")
	cache := newTestCache(t)
	v := newTestVisit(reader, &scriptedProvider{replies: []string{extraction}}, cache)

	for i := 0; i < 2; i++ {
		v.Invoke(context.Background(), map[string]any{"url": "https://a", "goal": "g"})
		v.Invoke(context.Background(), map[string]any{"url": "https://down", "goal": "g"})
	}

	if n := reader.callCount("https://a"); n != 1 {
		t.Errorf("reads of cached page = %d, want 1", n)
	}
	if n := reader.callCount("https://down"); n != 2 {
		t.Errorf("reads of failing page = %d, want 2", n)
	}
	if value, ok := cache.Get(context.Background(), model.VisitKey("https://a")); !ok || value != "page body" {
		t.Errorf("cache holds %q, %v; want raw page text", value, ok)
	}
}
