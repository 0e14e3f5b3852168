// Package web provides the network collaborators of the research tools:
// a Serper search backend and page readers.
//
// Information Hiding:
// - Endpoint URLs, authentication headers and locale selection
// - Response parsing into model types
// - Rate limiting and per-request timeouts
package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/richinex/sleuth/model"
	"github.com/richinex/sleuth/tools"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

// DefaultSerperURL is the Serper search endpoint.
const DefaultSerperURL = "https://google.serper.dev/search"

// Serper queries Google through serper.dev.
type Serper struct {
	apiKey   string
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
}

// NewSerper creates a search backend. qps <= 0 disables rate limiting.
func NewSerper(apiKey string, qps float64) *Serper {
	limit := rate.Inf
	if qps > 0 {
		limit = rate.Limit(qps)
	}
	return &Serper{
		apiKey:   apiKey,
		endpoint: DefaultSerperURL,
		client:   &http.Client{Timeout: 10 * time.Second},
		limiter:  rate.NewLimiter(limit, 1),
	}
}

// WithEndpoint overrides the search URL.
func (s *Serper) WithEndpoint(endpoint string) *Serper {
	s.endpoint = endpoint
	return s
}

type serperRequest struct {
	Q        string `json:"q"`
	Location string `json:"location"`
	GL       string `json:"gl"`
	HL       string `json:"hl"`
}

// Search runs one query.
func (s *Serper) Search(ctx context.Context, query string) (model.SearchResults, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return model.SearchResults{}, fmt.Errorf("rate limiter: %w", err)
	}

	payload := serperRequest{Q: query, Location: "United States", GL: "us", HL: "en"}
	if containsCJK(query) {
		payload.Location, payload.GL, payload.HL = "China", "cn", "zh-cn"
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return model.SearchResults{}, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return model.SearchResults{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-API-KEY", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return model.SearchResults{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.SearchResults{}, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return model.SearchResults{}, fmt.Errorf("HTTP error: %s", resp.Status)
	}
	if !gjson.ValidBytes(data) {
		return model.SearchResults{}, fmt.Errorf("invalid JSON response")
	}
	return parseSerper(data), nil
}

// parseSerper reads the organic results. Optional fields stay empty when absent.
func parseSerper(data []byte) model.SearchResults {
	organic := gjson.GetBytes(data, "organic")
	if !organic.Exists() {
		return model.SearchResults{}
	}
	results := model.SearchResults{HasOrganic: true}
	organic.ForEach(func(_, page gjson.Result) bool {
		results.Organic = append(results.Organic, model.SearchHit{
			Title:   page.Get("title").String(),
			Link:    page.Get("link").String(),
			Date:    page.Get("date").String(),
			Source:  page.Get("source").String(),
			Snippet: page.Get("snippet").String(),
		})
		return true
	})
	return results
}

// containsCJK reports whether s has a character in U+4E00..U+9FFF.
func containsCJK(s string) bool {
	for _, r := range s {
		if r >= '\u4e00' && r <= '\u9fff' {
			return true
		}
	}
	return false
}

// Verify Serper implements tools.SearchBackend
var _ tools.SearchBackend = (*Serper)(nil)
