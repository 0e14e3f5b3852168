// Search tool.
//
// Information Hiding:
// - Query validation and batching
// - Result formatting for the model
// - Cache keys and the rule that only successful searches are cached

package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/richinex/sleuth/llm"
	"github.com/richinex/sleuth/model"
	"github.com/richinex/sleuth/storage"
)

// SearchBackend runs one web search.
type SearchBackend interface {
	Search(ctx context.Context, query string) (model.SearchResults, error)
}

// Search performs batched web searches.
type Search struct {
	backend SearchBackend
	cache   *storage.ResultCache
	batch   *BatchExecutor
	logger  *slog.Logger
}

// NewSearch creates the search tool. cache may be nil.
func NewSearch(backend SearchBackend, cache *storage.ResultCache, batch *BatchExecutor) *Search {
	if batch == nil {
		batch = NewBatchExecutor()
	}
	return &Search{
		backend: backend,
		cache:   cache,
		batch:   batch,
		logger:  slog.Default(),
	}
}

// WithLogger sets the logger.
func (s *Search) WithLogger(l *slog.Logger) *Search {
	if l != nil {
		s.logger = l
	}
	return s
}

// Definition implements Tool.
func (s *Search) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        "search",
		Description: "Performs batched web searches: supply an array 'query'; the tool retrieves the top 10 results for each query in one call.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Array of query strings. Include multiple complementary search queries in a single call.",
				},
			},
			"required": []string{"query"},
		},
	}
}

// Invoke implements Tool. Search never reports model tokens.
func (s *Search) Invoke(ctx context.Context, args map[string]any) Result {
	raw, present := args["query"]
	if !present || isEmpty(raw) {
		return Result{Text: "[Search] Invalid request: 'query' is missing."}
	}
	queries, ok := stringList(raw)
	if !ok {
		return Result{Text: "[Search] Invalid query format."}
	}

	tasks := make([]Task, len(queries))
	for i, q := range queries {
		tasks[i] = func(ctx context.Context) (Result, error) {
			return Result{Text: s.searchOne(ctx, q)}, nil
		}
	}

	results := s.batch.Run(ctx, tasks, Fallbacks{
		OnError: func(i int, err error) string {
			return fmt.Sprintf("Search generated an exception: %v", err)
		},
		OnTimeout: func(i int) string {
			return "Error retrieval"
		},
	})

	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Text
	}
	return Result{Text: strings.Join(texts, JoinSeparator)}
}

func (s *Search) searchOne(ctx context.Context, query string) string {
	fetch := func(ctx context.Context) (string, bool) {
		results, err := s.backend.Search(ctx, query)
		if err != nil {
			s.logger.Warn("search failed", "query", query, "error", err)
			return fmt.Sprintf("Google search failed for '%s'. Error: %v", query, err), false
		}
		if !results.HasOrganic {
			return fmt.Sprintf("No organic results found for query: '%s'.", query), false
		}
		return FormatSearchResults(query, results.Organic), true
	}

	if s.cache == nil {
		text, _ := fetch(ctx)
		return text
	}
	return s.cache.Resolve(ctx, model.SearchKey(query), fetch)
}

// FormatSearchResults renders organic hits the way the model sees them.
func FormatSearchResults(query string, hits []model.SearchHit) string {
	snippets := make([]string, len(hits))
	for i, hit := range hits {
		var b strings.Builder
		title := hit.Title
		if title == "" {
			title = "No Title"
		}
		fmt.Fprintf(&b, "%d. [%s](%s)", i+1, title, hit.Link)
		if hit.Date != "" {
			b.WriteString("\nDate published: " + hit.Date)
		}
		if hit.Source != "" {
			b.WriteString("\nSource: " + hit.Source)
		}
		b.WriteString("\n")
		if hit.Snippet != "" {
			b.WriteString("\n" + hit.Snippet)
		}
		snippets[i] = strings.ReplaceAll(b.String(), "Your browser can't play this video.", "")
	}
	return fmt.Sprintf("A Google search for '%s' found %d results:\n\n## Web Results\n", query, len(hits)) +
		strings.Join(snippets, "\n\n")
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	default:
		return false
	}
}
