package unifiedllm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tidwall/gjson"
)

func newAnthropicTestServer(t *testing.T, status int, reply string, captured *[]byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if captured != nil {
			*captured = body
		}
		w.Header().Set("Content-Type", "application/json")
		if status == http.StatusTooManyRequests {
			w.Header().Set("Retry-After", "2")
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAnthropicAdapterToolUse(t *testing.T) {
	reply := `{
		"id": "msg_1",
		"type": "message",
		"role": "assistant",
		"model": "claude-sonnet-4-5",
		"stop_reason": "tool_use",
		"content": [
			{"type": "text", "text": "Searching."},
			{"type": "tool_use", "id": "toolu_1", "name": "search_pages", "input": {"keyword": "roadmap"}}
		],
		"usage": {"input_tokens": 30, "output_tokens": 10}
	}`
	var body []byte
	srv := newAnthropicTestServer(t, http.StatusOK, reply, &body)
	adapter := NewAnthropicAdapter("key", WithAnthropicBaseURL(srv.URL))

	resp, err := adapter.Complete(context.Background(), Request{
		Messages: []Message{SystemMessage("You are a Notion assistant."), UserMessage("find the roadmap")},
		ToolDefs: []ToolDefinition{{
			Name:        "search_pages",
			Description: "search",
			Parameters: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{"keyword": map[string]interface{}{"type": "string"}},
				"required":   []string{"keyword"},
			},
		}},
		ToolChoice: &ToolChoice{Mode: "auto"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := gjson.GetBytes(body, "system.0.text").String(); got != "You are a Notion assistant." {
		t.Errorf("expected system prompt in system field, got %q", got)
	}
	if got := gjson.GetBytes(body, "model").String(); got != "claude-sonnet-4-5" {
		t.Errorf("expected default model, got %q", got)
	}
	if got := gjson.GetBytes(body, "tools.0.input_schema.required.0").String(); got != "keyword" {
		t.Errorf("expected required keyword, got %q", got)
	}
	if got := gjson.GetBytes(body, "tool_choice.type").String(); got != "auto" {
		t.Errorf("expected auto tool choice, got %q", got)
	}

	if resp.Text() != "Searching." {
		t.Errorf("unexpected text %q", resp.Text())
	}
	calls := resp.ToolCallsFromResponse()
	if len(calls) != 1 || calls[0].ID != "toolu_1" || calls[0].Name != "search_pages" {
		t.Fatalf("unexpected tool calls %+v", calls)
	}
	if gjson.GetBytes(calls[0].Arguments, "keyword").String() != "roadmap" {
		t.Errorf("unexpected arguments %s", calls[0].Arguments)
	}
	if resp.FinishReason.Reason != "tool_calls" {
		t.Errorf("expected tool_calls, got %q", resp.FinishReason.Reason)
	}
	if resp.Usage.TotalTokens != 40 {
		t.Errorf("expected 40 total tokens, got %d", resp.Usage.TotalTokens)
	}
}

func TestAnthropicAdapterGroupsToolResults(t *testing.T) {
	reply := `{"id":"msg_2","type":"message","role":"assistant","model":"m","stop_reason":"end_turn","content":[{"type":"text","text":"ok"}],"usage":{"input_tokens":1,"output_tokens":1}}`
	var body []byte
	srv := newAnthropicTestServer(t, http.StatusOK, reply, &body)
	adapter := NewAnthropicAdapter("key", WithAnthropicBaseURL(srv.URL))

	assistant := Message{Role: RoleAssistant, Content: []ContentPart{
		ToolCallPart("t1", "append_text", json.RawMessage(`{"content":"Header"}`)),
		ToolCallPart("t2", "finish_rich_text", json.RawMessage(`{}`)),
	}}
	_, err := adapter.Complete(context.Background(), Request{
		Model: "m",
		Messages: []Message{
			SystemMessage("sys"),
			UserMessage("go"),
			assistant,
			ToolResultMessage("t1", "ok", false),
			ToolResultMessage("t2", "Unknown tool: x", true),
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msgs := gjson.GetBytes(body, "messages").Array()
	if len(msgs) != 3 {
		t.Fatalf("expected user, assistant, user; got %d messages: %s", len(msgs), body)
	}
	results := msgs[2].Get("content").Array()
	if len(results) != 2 {
		t.Fatalf("expected both tool results in one user message, got %d", len(results))
	}
	if results[1].Get("tool_use_id").String() != "t2" || !results[1].Get("is_error").Bool() {
		t.Errorf("unexpected second tool result %s", results[1].Raw)
	}
	if msgs[1].Get("content.0.input.content").String() != "Header" {
		t.Errorf("expected tool_use input echoed, got %s", msgs[1].Raw)
	}
}

func TestAnthropicAdapterErrorMapping(t *testing.T) {
	srv := newAnthropicTestServer(t, http.StatusTooManyRequests,
		`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`, nil)
	adapter := NewAnthropicAdapter("key", WithAnthropicBaseURL(srv.URL))

	_, err := adapter.Complete(context.Background(), Request{Model: "m", Messages: []Message{UserMessage("hi")}})
	var rateErr *RateLimitError
	if !errors.As(err, &rateErr) {
		t.Fatalf("expected RateLimitError, got %T: %v", err, err)
	}
	if !IsRetryable(err) {
		t.Error("rate limit errors should be retryable")
	}
	if rateErr.RetryAfter != 2*time.Second {
		t.Errorf("expected Retry-After of 2s, got %v", rateErr.RetryAfter)
	}
}
