package unifiedllm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tidwall/gjson"
)

func newOpenAITestServer(t *testing.T, status int, reply string, captured *[]byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if captured != nil {
			*captured = body
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNormalizeBaseURL(t *testing.T) {
	tests := map[string]string{
		"https://api.example.com/v1/chat/completions":  "https://api.example.com/v1",
		"https://api.example.com/v1/chat/completions/": "https://api.example.com/v1",
		" https://api.example.com/v1 ":                 "https://api.example.com/v1",
	}
	for in, want := range tests {
		if got := NormalizeBaseURL(in); got != want {
			t.Errorf("NormalizeBaseURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOpenAIAdapterToolCalls(t *testing.T) {
	reply := `{
		"id": "chatcmpl-1",
		"object": "chat.completion",
		"created": 1,
		"model": "gpt-4.1-mini",
		"choices": [{
			"index": 0,
			"finish_reason": "tool_calls",
			"message": {
				"role": "assistant",
				"content": null,
				"tool_calls": [
					{"id": "call_a", "type": "function", "function": {"name": "append_text", "arguments": "{\"content\":\"Header\",\"bold\":true}"}},
					{"id": "call_b", "type": "function", "function": {"name": "append_page_mention", "arguments": "{\"page_id\":\"p1\"}"}}
				]
			}
		}],
		"usage": {"prompt_tokens": 12, "completion_tokens": 8, "total_tokens": 20}
	}`
	var body []byte
	srv := newOpenAITestServer(t, http.StatusOK, reply, &body)
	adapter := NewOpenAIAdapter("sk-test", WithOpenAIBaseURL(srv.URL+"/chat/completions"))

	resp, err := adapter.Complete(context.Background(), Request{
		Model:      "gpt-4.1-mini",
		Messages:   []Message{SystemMessage("sys"), UserMessage("write a header")},
		ToolDefs:   []ToolDefinition{{Name: "append_text", Description: "append", Parameters: map[string]interface{}{"type": "object"}}},
		ToolChoice: &ToolChoice{Mode: "auto"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := gjson.GetBytes(body, "tool_choice").String(); got != "auto" {
		t.Errorf("expected tool_choice auto, got %q", got)
	}
	if got := gjson.GetBytes(body, "tools.0.function.name").String(); got != "append_text" {
		t.Errorf("expected tool definition in request, got %q", got)
	}
	if got := gjson.GetBytes(body, "messages.0.role").String(); got != "system" {
		t.Errorf("expected system message first, got %q", got)
	}

	calls := resp.ToolCallsFromResponse()
	if len(calls) != 2 {
		t.Fatalf("expected 2 tool calls, got %d", len(calls))
	}
	if calls[0].ID != "call_a" || calls[1].Name != "append_page_mention" {
		t.Errorf("tool calls out of order: %+v", calls)
	}
	var args struct {
		Content string `json:"content"`
		Bold    bool   `json:"bold"`
	}
	if err := json.Unmarshal(calls[0].Arguments, &args); err != nil || args.Content != "Header" || !args.Bold {
		t.Errorf("unexpected arguments %s (%v)", calls[0].Arguments, err)
	}
	if resp.FinishReason.Reason != "tool_calls" {
		t.Errorf("expected finish reason tool_calls, got %q", resp.FinishReason.Reason)
	}
	if resp.Usage.TotalTokens != 20 {
		t.Errorf("expected 20 total tokens, got %d", resp.Usage.TotalTokens)
	}
}

func TestOpenAIAdapterEchoesToolTurns(t *testing.T) {
	reply := `{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"done"}}]}`
	var body []byte
	srv := newOpenAITestServer(t, http.StatusOK, reply, &body)
	adapter := NewOpenAIAdapter("sk-test", WithOpenAIBaseURL(srv.URL))

	assistant := Message{Role: RoleAssistant, Content: []ContentPart{
		ToolCallPart("call_1", "append_text", json.RawMessage(`{"content":"Header"}`)),
	}}
	resp, err := adapter.Complete(context.Background(), Request{
		Model: "m",
		Messages: []Message{
			SystemMessage("sys"),
			UserMessage("go"),
			assistant,
			ToolResultMessage("call_1", `{"status":"success"}`, false),
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() != "done" {
		t.Errorf("expected text done, got %q", resp.Text())
	}
	if got := gjson.GetBytes(body, "messages.2.tool_calls.0.id").String(); got != "call_1" {
		t.Errorf("expected assistant tool call echoed, got %q", got)
	}
	if got := gjson.GetBytes(body, "messages.2.tool_calls.0.function.arguments").String(); got != `{"content":"Header"}` {
		t.Errorf("expected raw arguments echoed, got %q", got)
	}
	if got := gjson.GetBytes(body, "messages.3.role").String(); got != "tool" {
		t.Errorf("expected tool message, got %q", got)
	}
	if got := gjson.GetBytes(body, "messages.3.tool_call_id").String(); got != "call_1" {
		t.Errorf("expected tool_call_id call_1, got %q", got)
	}
	if gjson.GetBytes(body, "tools").Exists() {
		t.Error("expected no tools when none are defined")
	}
}

func TestOpenAIAdapterErrorMapping(t *testing.T) {
	srv := newOpenAITestServer(t, http.StatusUnauthorized,
		`{"error":{"message":"bad key","type":"invalid_request_error","code":"invalid_api_key"}}`, nil)
	adapter := NewOpenAIAdapter("sk-bad", WithOpenAIBaseURL(srv.URL))

	_, err := adapter.Complete(context.Background(), Request{Model: "m", Messages: []Message{UserMessage("hi")}})
	var authErr *AuthenticationError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthenticationError, got %T: %v", err, err)
	}
	if IsRetryable(err) {
		t.Error("authentication errors must not be retryable")
	}
}
