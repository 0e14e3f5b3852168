package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/richinex/sleuth/internal/logging"
)

func TestSerperSearch(t *testing.T) {
	var got serperRequest
	var apiKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey = r.Header.Get("X-API-KEY")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(`{"organic": [
			{"title": "Chiefs win", "link": "https://a", "snippet": "25-22 in overtime", "date": "Feb 12, 2024"},
			{"link": "https://b", "source": "ESPN"}
		]}`))
	}))
	defer server.Close()

	s := NewSerper("secret", 0).WithEndpoint(server.URL)
	results, err := s.Search(context.Background(), "super bowl 2024")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if apiKey != "secret" {
		t.Errorf("X-API-KEY = %q, want secret", apiKey)
	}
	if got.Q != "super bowl 2024" || got.GL != "us" || got.HL != "en" || got.Location != "United States" {
		t.Errorf("request = %+v, want US locale", got)
	}
	if !results.HasOrganic || len(results.Organic) != 2 {
		t.Fatalf("results = %+v, want 2 organic hits", results)
	}
	first := results.Organic[0]
	if first.Title != "Chiefs win" || first.Date != "Feb 12, 2024" || first.Snippet != "25-22 in overtime" {
		t.Errorf("first hit = %+v", first)
	}
	if second := results.Organic[1]; second.Title != "" || second.Source != "ESPN" {
		t.Errorf("second hit = %+v", second)
	}
}

func TestSerperChineseLocale(t *testing.T) {
	var got serperRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	results, err := NewSerper("k", 0).WithEndpoint(server.URL).Search(context.Background(), "超级碗 2024")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if got.GL != "cn" || got.HL != "zh-cn" || got.Location != "China" {
		t.Errorf("request = %+v, want China locale", got)
	}
	if results.HasOrganic {
		t.Error("HasOrganic = true for a response without organic results")
	}
}

func TestSerperHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusForbidden)
	}))
	defer server.Close()

	if _, err := NewSerper("k", 0).WithEndpoint(server.URL).Search(context.Background(), "q"); err == nil {
		t.Fatal("Search() expected error on 403")
	}
}

func TestContainsCJK(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"hello", false},
		{"東京 weather", true},
		{"こんにちは", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := containsCJK(tt.in); got != tt.want {
			t.Errorf("containsCJK(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func newTestJina(prefix string) *Jina {
	return NewJina("jina-key").WithPrefix(prefix).WithPause(time.Millisecond).WithLogger(logging.Discard())
}

func TestJinaRead(t *testing.T) {
	var path, auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		w.Write([]byte("# Title\n\nBody"))
	}))
	defer server.Close()

	content, err := newTestJina(server.URL+"/").Read(context.Background(), "https://example.com/page")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if content != "# Title\n\nBody" {
		t.Errorf("Read() = %q", content)
	}
	if auth != "Bearer jina-key" {
		t.Errorf("Authorization = %q", auth)
	}
	if !strings.HasSuffix(path, "example.com/page") {
		t.Errorf("path = %q, want the page URL appended", path)
	}
}

func TestJinaRetriesThenFails(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "upstream", http.StatusBadGateway)
	}))
	defer server.Close()

	if _, err := newTestJina(server.URL+"/").Read(context.Background(), "https://x"); err == nil {
		t.Fatal("Read() expected error")
	}
	if n := calls.Load(); n != DefaultJinaAttempts {
		t.Errorf("attempts = %d, want %d", n, DefaultJinaAttempts)
	}
}

func TestJinaRecoversOnRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "busy", http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	content, err := newTestJina(server.URL+"/").Read(context.Background(), "https://x")
	if err != nil || content != "ok" {
		t.Fatalf("Read() = %q, %v; want ok", content, err)
	}
}

func TestDirectRead(t *testing.T) {
	page := `<html><head><title>Report</title><style>p{}</style></head><body>
<article><h1>Annual report</h1>
<p>The company reported revenue of 12 million dollars in 2023, up from 9 million dollars the year before.</p>
<p>Growth came mostly from the new subscription business, which doubled its customer base during the year.</p>
<p>Management expects similar growth next year and plans to hire forty additional engineers.</p>
</article><script>var tracking = 1;</script></body></html>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(page))
	}))
	defer server.Close()

	content, err := NewDirect(5*time.Second).Read(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !strings.Contains(content, "revenue of 12 million dollars") {
		t.Errorf("Read() = %q, want article text", content)
	}
	if strings.Contains(content, "tracking") {
		t.Errorf("Read() = %q, script leaked into text", content)
	}
}

func TestDirectHTTPError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	if _, err := NewDirect(5*time.Second).Read(context.Background(), server.URL); err == nil {
		t.Fatal("Read() expected error on 404")
	}
}

func TestStripHTML(t *testing.T) {
	got := stripHTML([]byte(`<div>Hello <b>world</b><script>alert(1)</script><style>.x{}</style></div>`))
	if got != "Hello world" {
		t.Errorf("stripHTML() = %q, want %q", got, "Hello world")
	}
}

type stubReader struct {
	content string
	err     error
	calls   int
}

func (s *stubReader) Read(ctx context.Context, url string) (string, error) {
	s.calls++
	return s.content, s.err
}

func TestFallbackRead(t *testing.T) {
	failing := &stubReader{err: errors.New("proxy down")}
	empty := &stubReader{}
	working := &stubReader{content: "page"}

	content, err := NewFallback(failing, nil, empty, working).Read(context.Background(), "https://x")
	if err != nil || content != "page" {
		t.Fatalf("Read() = %q, %v; want page", content, err)
	}
	if failing.calls != 1 || empty.calls != 1 || working.calls != 1 {
		t.Errorf("calls = %d/%d/%d, want 1/1/1", failing.calls, empty.calls, working.calls)
	}

	_, err = NewFallback(failing, empty).Read(context.Background(), "https://x")
	if !errors.Is(err, ErrEmptyPage) {
		t.Errorf("Read() error = %v, want joined errors including ErrEmptyPage", err)
	}
}
