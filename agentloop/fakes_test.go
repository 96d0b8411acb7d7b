package agentloop

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/martinemde/notionagent/notion"
	"github.com/martinemde/notionagent/richtext"
	"github.com/martinemde/notionagent/unifiedllm"
)

// scriptedCompleter returns the scripted responses in order. Once the script
// is exhausted it keeps returning the last entry.
type scriptedCompleter struct {
	mu        sync.Mutex
	responses []*unifiedllm.Response
	err       error
	requests  []unifiedllm.Request
}

func (c *scriptedCompleter) Complete(ctx context.Context, req unifiedllm.Request) (*unifiedllm.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	if c.err != nil {
		return nil, c.err
	}
	if len(c.responses) == 0 {
		return textResponse("done"), nil
	}
	idx := len(c.requests) - 1
	if idx >= len(c.responses) {
		idx = len(c.responses) - 1
	}
	return c.responses[idx], nil
}

func (c *scriptedCompleter) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

func textResponse(text string) *unifiedllm.Response {
	return &unifiedllm.Response{
		ID: "resp_text",
		Message: unifiedllm.Message{
			Role:    unifiedllm.RoleAssistant,
			Content: []unifiedllm.ContentPart{unifiedllm.TextPart(text)},
		},
		FinishReason: unifiedllm.FinishReason{Reason: "stop"},
		Usage:        unifiedllm.Usage{InputTokens: 5, OutputTokens: 5, TotalTokens: 10},
	}
}

type call struct {
	name string
	args string
}

func toolResponse(calls ...call) *unifiedllm.Response {
	msg := unifiedllm.Message{Role: unifiedllm.RoleAssistant}
	for i, c := range calls {
		msg.Content = append(msg.Content, unifiedllm.ToolCallPart(
			fmt.Sprintf("call_%d", i+1), c.name, unifiedllm.ArgumentsJSON(c.args)))
	}
	return &unifiedllm.Response{
		ID:           "resp_tools",
		Message:      msg,
		FinishReason: unifiedllm.FinishReason{Reason: "tool_calls"},
		Usage:        unifiedllm.Usage{InputTokens: 10, OutputTokens: 10, TotalTokens: 20},
	}
}

// fakeDocs records every call in order.
type fakeDocs struct {
	mu       sync.Mutex
	log      []string
	lastQ    notion.SearchQuery
	results  []notion.SearchResult
	recent   []string
	props    map[string]any
	blocks   []notion.Block
	err      error
	blockCtx bool // Children waits for the context to end
}

func (f *fakeDocs) record(entry string) {
	f.mu.Lock()
	f.log = append(f.log, entry)
	f.mu.Unlock()
}

func (f *fakeDocs) Search(ctx context.Context, q notion.SearchQuery) ([]notion.SearchResult, error) {
	f.record("search:" + q.Keyword)
	f.mu.Lock()
	f.lastQ = q
	f.mu.Unlock()
	return f.results, f.err
}

func (f *fakeDocs) RecentChanges(ctx context.Context, count int) ([]string, error) {
	f.record(fmt.Sprintf("recent:%d", count))
	if f.err != nil {
		return nil, f.err
	}
	if count < len(f.recent) {
		return f.recent[:count], nil
	}
	return f.recent, nil
}

func (f *fakeDocs) PageProperties(ctx context.Context, pageID string) (map[string]any, error) {
	f.record("page:" + pageID)
	return f.props, f.err
}

func (f *fakeDocs) Children(ctx context.Context, blockID string, recursive bool) ([]notion.Block, error) {
	f.record(fmt.Sprintf("children:%s:%v", blockID, recursive))
	if f.blockCtx {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.blocks, f.err
}

func (f *fakeDocs) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.log...)
}

// recordingWriter captures WriteTarget calls.
type recordingWriter struct {
	mu     sync.Mutex
	writes [][]richtext.Segment
	err    error
}

func (w *recordingWriter) WriteTarget(ctx context.Context, segments []richtext.Segment) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writes = append(w.writes, segments)
	return w.err
}

// toolMessages returns the tool result messages of a request in order.
func toolMessages(req unifiedllm.Request) []*unifiedllm.ToolResultData {
	var out []*unifiedllm.ToolResultData
	for _, m := range req.Messages {
		if m.Role == unifiedllm.RoleTool {
			out = append(out, m.ToolResult())
		}
	}
	return out
}

func testProfile() Profile {
	return ProfileFor("openai", "gpt-4o-mini")
}

func testConfig() *SessionConfig {
	cfg := DefaultSessionConfig()
	cfg.ToolTimeout = time.Second
	return &cfg
}
