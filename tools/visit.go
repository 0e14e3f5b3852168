// Visit tool.
//
// Information Hiding:
// - Page reading through a PageReader, cached by URL
// - Token truncation and the shrink-and-retry loop for short summaries
// - Lenient decoding of the summarizer's JSON and the fixed fallback text

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	jsonutil "github.com/richinex/sleuth/internal/json"
	"github.com/richinex/sleuth/llm"
	"github.com/richinex/sleuth/model"
	"github.com/richinex/sleuth/storage"
)

// Fixed texts used when a page yields nothing useful.
const (
	UnreadableEvidence = "The provided webpage content could not be accessed. Please check the URL or file format."
	UnreadableSummary  = "The webpage content could not be processed, and therefore, no information is available."
)

const (
	invalidVisitRequest = "[Visit] Invalid request format: Input must be a JSON object containing 'url' and 'goal' fields"

	// minSummaryLength is the shortest summarizer output taken as an answer.
	minSummaryLength = 10
	// shrinkRetries is the number of 70% shrinks before the final cut.
	shrinkRetries = 3
	// finalCutRunes is the content length used for the last summarization try.
	finalCutRunes = 25000
	// parseRetries is the number of re-summarizations after undecodable output.
	parseRetries = 3
)

// PageReader fetches the readable text of a web page.
type PageReader interface {
	Read(ctx context.Context, url string) (string, error)
}

// Visit reads pages and summarizes them toward a goal.
type Visit struct {
	reader     PageReader
	summarizer *Summarizer
	cache      *storage.ResultCache
	batch      *BatchExecutor
	counter    TokenCounter
	tokenLimit int
	logger     *slog.Logger
}

// NewVisit creates the visit tool. cache may be nil.
func NewVisit(reader PageReader, summarizer *Summarizer, cache *storage.ResultCache, batch *BatchExecutor) *Visit {
	if batch == nil {
		batch = NewBatchExecutor()
	}
	return &Visit{
		reader:     reader,
		summarizer: summarizer,
		cache:      cache,
		batch:      batch,
		counter:    NewTiktoken("cl100k_base"),
		tokenLimit: DefaultPageTokenLimit,
		logger:     slog.Default(),
	}
}

// WithLogger sets the logger.
func (v *Visit) WithLogger(l *slog.Logger) *Visit {
	if l != nil {
		v.logger = l
	}
	return v
}

// WithTokenCounter replaces the tokenizer and the page token limit.
func (v *Visit) WithTokenCounter(c TokenCounter, limit int) *Visit {
	if c != nil {
		v.counter = c
	}
	if limit > 0 {
		v.tokenLimit = limit
	}
	return v
}

// Definition implements Tool.
func (v *Visit) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        "visit",
		Description: "Visit webpage(s) and return the summary of the content.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"url": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"minItems":    1,
					"description": "The URL(s) of the webpage(s) to visit. Can be a single URL or an array of URLs.",
				},
				"goal": map[string]interface{}{
					"type":        "string",
					"description": "The goal of the visit for webpage(s).",
				},
			},
			"required": []string{"url", "goal"},
		},
	}
}

// Invoke implements Tool. Tokens are the summarizer's usage.
func (v *Visit) Invoke(ctx context.Context, args map[string]any) Result {
	goal, ok := args["goal"].(string)
	if !ok {
		return Result{Text: invalidVisitRequest}
	}
	rawURL, present := args["url"]
	if !present {
		return Result{Text: invalidVisitRequest}
	}

	if single, isString := rawURL.(string); isString {
		r := v.visitOne(ctx, single, goal)
		r.Text = strings.TrimSpace(r.Text)
		return r
	}

	urls, ok := stringList(rawURL)
	if !ok || len(urls) == 0 {
		return Result{Text: invalidVisitRequest}
	}

	tasks := make([]Task, len(urls))
	for i, u := range urls {
		tasks[i] = func(ctx context.Context) (Result, error) {
			return v.visitOne(ctx, u, goal), nil
		}
	}
	results := v.batch.Run(ctx, tasks, Fallbacks{
		OnError: func(i int, err error) string {
			return fmt.Sprintf("Error fetching %s: %v", urls[i], err)
		},
		OnTimeout: func(i int) string {
			return unreadable(urls[i], goal)
		},
	})

	var total Result
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Text
		total.InputTokens += r.InputTokens
		total.OutputTokens += r.OutputTokens
	}
	total.Text = strings.TrimSpace(strings.Join(texts, JoinSeparator))
	return total
}

func (v *Visit) visitOne(ctx context.Context, url, goal string) Result {
	content := v.readPage(ctx, url)
	if content == "" {
		return Result{Text: unreadable(url, goal)}
	}

	var usage llm.TokenUsage
	summarize := func(prompt string) string {
		text, u := v.summarizer.Summarize(ctx, prompt)
		usage.Add(u)
		return text
	}

	content = v.counter.Truncate(content, v.tokenLimit)
	prompt := ExtractorPrompt(content, goal)
	raw := summarize(prompt)

	for retries := shrinkRetries; utf8.RuneCountInString(raw) < minSummaryLength && retries >= 0; retries-- {
		cut := finalCutRunes
		if retries > 0 {
			cut = int(0.7 * float64(utf8.RuneCountInString(content)))
		}
		v.logger.Debug("summary too short, shrinking page",
			"url", url, "retries_left", retries, "cut", cut)
		content = truncateRunes(content, cut)
		prompt = ExtractorPrompt(content, goal)
		raw = summarize(prompt)
	}

	evidence, summary, ok := parseExtraction(raw)
	for attempt := 0; !ok && attempt < parseRetries; attempt++ {
		v.logger.Debug("summary not decodable, retrying", "url", url, "attempt", attempt+1)
		raw = summarize(prompt)
		evidence, summary, ok = parseExtraction(raw)
	}

	result := Result{
		InputTokens:  int(usage.PromptTokens),
		OutputTokens: int(usage.CompletionTokens),
	}
	if !ok {
		v.logger.Warn("could not extract page summary", "url", url)
		result.Text = unreadable(url, goal)
		return result
	}
	result.Text = usefulInformation(url, goal, evidence, summary)
	return result
}

// readPage returns cached or freshly read page text, or "" when unreadable.
func (v *Visit) readPage(ctx context.Context, url string) string {
	fetch := func(ctx context.Context) (string, bool) {
		content, err := v.reader.Read(ctx, url)
		if err != nil {
			v.logger.Warn("page read failed", "url", url, "error", err)
			return "", false
		}
		return content, content != ""
	}
	if v.cache == nil {
		content, _ := fetch(ctx)
		return content
	}
	return v.cache.Resolve(ctx, model.VisitKey(url), fetch)
}

// parseExtraction decodes the summarizer output and pulls evidence and summary.
// Both keys are required.
func parseExtraction(raw string) (evidence, summary string, ok bool) {
	raw = strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(raw, "```json", ""), "```", ""))
	if raw == "" {
		return "", "", false
	}
	fields, _, err := jsonutil.Decode(raw)
	if err != nil {
		return "", "", false
	}
	e, hasEvidence := fields["evidence"]
	s, hasSummary := fields["summary"]
	if !hasEvidence || !hasSummary {
		return "", "", false
	}
	return render(e), render(s), true
}

// render prints strings as-is and anything else as JSON.
func render(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func usefulInformation(url, goal, evidence, summary string) string {
	return fmt.Sprintf("The useful information in %s for user goal %s as follows: \n\n", url, goal) +
		"Evidence in page: \n" + evidence + "\n\n" +
		"Summary: \n" + summary + "\n\n"
}

func unreadable(url, goal string) string {
	return usefulInformation(url, goal, UnreadableEvidence, UnreadableSummary)
}
