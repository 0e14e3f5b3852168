package tools

import (
	"context"
	"sync"
	"testing"

	"github.com/richinex/sleuth/llm"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	// genai's dependencies start an opencensus worker in init.
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

// scriptedProvider replies with canned contents in order and records every request.
// The last reply repeats once the script runs out.
type scriptedProvider struct {
	mu       sync.Mutex
	replies  []string
	usage    llm.TokenUsage
	err      error
	requests []llm.Request
}

func (p *scriptedProvider) Name() string  { return "scripted" }
func (p *scriptedProvider) Model() string { return "scripted-model" }

func (p *scriptedProvider) Complete(ctx context.Context, req llm.Request) (llm.Completion, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if p.err != nil {
		return llm.Completion{}, p.err
	}
	reply := ""
	if n := len(p.requests); n <= len(p.replies) {
		reply = p.replies[n-1]
	} else if len(p.replies) > 0 {
		reply = p.replies[len(p.replies)-1]
	}
	return llm.Completion{Message: llm.AssistantMessage(reply), Usage: p.usage}, nil
}

func (p *scriptedProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

func (p *scriptedProvider) prompt(i int) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests[i].Messages[0].Content
}
