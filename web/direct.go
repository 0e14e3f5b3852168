// Direct page reader.
//
// Information Hiding:
// - Download size cap and user agent
// - Readability extraction with a plain-text fallback

package web

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
	"github.com/richinex/sleuth/tools"
	"golang.org/x/net/html"
)

// maxPageBytes caps a downloaded document.
const maxPageBytes = 1 << 20

// Direct fetches pages itself and extracts the readable article text.
type Direct struct {
	client    *http.Client
	userAgent string
}

// NewDirect creates a reader with the given request timeout.
func NewDirect(timeout time.Duration) *Direct {
	return &Direct{
		client:    &http.Client{Timeout: timeout},
		userAgent: "Mozilla/5.0 (compatible; sleuth/1.0)",
	}
}

// Read downloads rawURL and returns its text.
func (d *Direct) Read(ctx context.Context, rawURL string) (string, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("HTTP %d from %s", resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("read error: %w", err)
	}

	text := extractText(body, pageURL)
	if text == "" {
		return "", ErrEmptyPage
	}
	return text, nil
}

// extractText prefers the readability article and falls back to all visible text.
func extractText(body []byte, pageURL *url.URL) string {
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err == nil {
		if text := strings.TrimSpace(article.TextContent); text != "" {
			return text
		}
	}
	return stripHTML(body)
}

// stripHTML returns the text nodes of an HTML document, skipping scripts and styles.
func stripHTML(body []byte) string {
	z := html.NewTokenizer(bytes.NewReader(body))
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.StartTagToken:
			if name, _ := z.TagName(); isHiddenTag(name) {
				skip++
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); isHiddenTag(name) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
				b.WriteByte(' ')
			}
		}
	}
}

func isHiddenTag(name []byte) bool {
	switch string(name) {
	case "script", "style", "noscript":
		return true
	}
	return false
}

// Verify Direct implements tools.PageReader
var _ tools.PageReader = (*Direct)(nil)
