// Jina reader.
//
// Information Hiding:
// - r.jina.ai URL scheme and bearer authentication
// - Attempt budget, per-attempt timeout and pause between attempts

package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/richinex/sleuth/tools"
)

// DefaultJinaURL is the prefix prepended to every page URL.
const DefaultJinaURL = "https://r.jina.ai/"

// Jina defaults.
const (
	DefaultJinaAttempts = 3
	DefaultJinaTimeout  = 50 * time.Second
	DefaultJinaPause    = 500 * time.Millisecond
)

// ErrEmptyPage is returned when a reader gets an empty document.
var ErrEmptyPage = errors.New("empty page content")

// Jina reads pages through the r.jina.ai markdown proxy.
type Jina struct {
	apiKey   string
	prefix   string
	attempts int
	pause    time.Duration
	client   *http.Client
	logger   *slog.Logger
}

// NewJina creates a Jina reader with default retry settings.
func NewJina(apiKey string) *Jina {
	return &Jina{
		apiKey:   apiKey,
		prefix:   DefaultJinaURL,
		attempts: DefaultJinaAttempts,
		pause:    DefaultJinaPause,
		client:   &http.Client{Timeout: DefaultJinaTimeout},
		logger:   slog.Default(),
	}
}

// WithPrefix overrides the proxy URL prefix.
func (j *Jina) WithPrefix(prefix string) *Jina {
	j.prefix = prefix
	return j
}

// WithPause sets the pause between attempts.
func (j *Jina) WithPause(d time.Duration) *Jina {
	j.pause = d
	return j
}

// WithLogger sets the logger.
func (j *Jina) WithLogger(l *slog.Logger) *Jina {
	if l != nil {
		j.logger = l
	}
	return j
}

// Read fetches url through the proxy, retrying failed attempts.
func (j *Jina) Read(ctx context.Context, url string) (string, error) {
	var last error
	for attempt := 1; attempt <= j.attempts; attempt++ {
		content, err := j.readOnce(ctx, url)
		if err == nil {
			return content, nil
		}
		last = err
		j.logger.Debug("jina read failed", "url", url, "attempt", attempt, "error", err)
		if attempt == j.attempts {
			break
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(j.pause):
		}
	}
	return "", fmt.Errorf("jina: %d attempts failed: %w", j.attempts, last)
}

func (j *Jina) readOnce(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.prefix+url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+j.apiKey)

	resp, err := j.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP error: %s", resp.Status)
	}
	if len(body) == 0 {
		return "", ErrEmptyPage
	}
	return string(body), nil
}

// Verify Jina implements tools.PageReader
var _ tools.PageReader = (*Jina)(nil)
