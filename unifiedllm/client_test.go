package unifiedllm

import (
	"context"
	"strings"
	"testing"
)

// mockAdapter is a test double for ProviderAdapter.
type mockAdapter struct {
	name     string
	response *Response
	err      error
	calls    int
	lastReq  Request
}

func (m *mockAdapter) Name() string { return m.name }

func (m *mockAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	m.calls++
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func newMockAdapter(name, text string) *mockAdapter {
	return &mockAdapter{
		name: name,
		response: &Response{
			ID:       "test_resp",
			Model:    "test-model",
			Provider: name,
			Message: Message{
				Role:    RoleAssistant,
				Content: []ContentPart{TextPart(text)},
			},
			FinishReason: FinishReason{Reason: "stop"},
			Usage:        Usage{InputTokens: 10, OutputTokens: 20, TotalTokens: 30},
		},
	}
}

func hi() []Message { return []Message{UserMessage("Hi")} }

func TestClientRouting(t *testing.T) {
	openai := newMockAdapter("openai", "from openai")
	anthropic := newMockAdapter("anthropic", "from anthropic")

	tests := []struct {
		name    string
		opts    []ClientOption
		req     Request
		want    string
		wantErr bool
	}{
		{
			name: "explicit provider wins over default",
			opts: []ClientOption{WithProvider("openai", openai), WithProvider("anthropic", anthropic), WithDefaultProvider("openai")},
			req:  Request{Provider: "anthropic", Model: "gpt-4o", Messages: hi()},
			want: "from anthropic",
		},
		{
			name: "default provider",
			opts: []ClientOption{WithProvider("openai", openai), WithProvider("anthropic", anthropic), WithDefaultProvider("openai")},
			req:  Request{Model: "claude-sonnet-4-5", Messages: hi()},
			want: "from openai",
		},
		{
			name: "single provider becomes the default",
			opts: []ClientOption{WithProvider("only", openai)},
			req:  Request{Model: "anything", Messages: hi()},
			want: "from openai",
		},
		{
			name: "registered under another key",
			opts: []ClientOption{WithProvider("primary", anthropic), WithProvider("backup", openai), WithDefaultProvider("primary")},
			req:  Request{Messages: hi()},
			want: "from anthropic",
		},
		{
			name:    "nothing registered",
			req:     Request{Model: "test-model", Messages: hi()},
			wantErr: true,
		},
		{
			name:    "unregistered provider",
			opts:    []ClientOption{WithProvider("openai", openai)},
			req:     Request{Provider: "mistral", Messages: hi()},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := NewClient(tt.opts...).Complete(context.Background(), tt.req)
			if tt.wantErr {
				if _, ok := err.(*ConfigurationError); !ok {
					t.Fatalf("expected ConfigurationError, got %T (%v)", err, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resp.Text() != tt.want {
				t.Errorf("got %q, want %q", resp.Text(), tt.want)
			}
		})
	}
}

func TestClientSetsProviderOnRequest(t *testing.T) {
	mock := newMockAdapter("openai", "ok")
	client := NewClient(WithProvider("default", mock))

	if _, err := client.Complete(context.Background(), Request{Model: "gpt-4.1-mini"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.lastReq.Provider != "openai" {
		t.Errorf("expected the adapter name on the request, got %q", mock.lastReq.Provider)
	}
}

func TestClientMiddlewareOnion(t *testing.T) {
	var trace []string
	tracer := func(name string) Middleware {
		return func(ctx context.Context, req Request, next func(context.Context, Request) (*Response, error)) (*Response, error) {
			trace = append(trace, name+">")
			resp, err := next(ctx, req)
			trace = append(trace, "<"+name)
			return resp, err
		}
	}
	client := NewClient(WithProvider("test", newMockAdapter("test", "ok")), WithMiddleware(tracer("a"), tracer("b")))

	for range 2 {
		if _, err := client.Complete(context.Background(), Request{Messages: hi()}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	want := "a> b> <b <a a> b> <b <a"
	if got := strings.Join(trace, " "); got != want {
		t.Errorf("trace = %q, want %q", got, want)
	}
}

type choosyAdapter struct {
	mockAdapter
}

func (c *choosyAdapter) SupportsToolChoice(mode string) bool { return mode == "auto" }

func TestClientRejectsUnsupportedToolChoice(t *testing.T) {
	adapter := &choosyAdapter{mockAdapter: *newMockAdapter("choosy", "ok")}
	client := NewClient(WithProvider("choosy", adapter))

	_, err := client.Complete(context.Background(), Request{ToolChoice: &ToolChoice{Mode: "required"}})
	if _, ok := err.(*InvalidRequestError); !ok {
		t.Fatalf("expected InvalidRequestError, got %T", err)
	}
	if adapter.calls != 0 {
		t.Error("adapter should not be called for an unsupported tool choice")
	}

	if _, err := client.Complete(context.Background(), Request{ToolChoice: &ToolChoice{Mode: "auto"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClientResolvesModelAlias(t *testing.T) {
	mock := newMockAdapter("anthropic", "ok")
	var seen string
	mw := func(ctx context.Context, req Request, next func(context.Context, Request) (*Response, error)) (*Response, error) {
		seen = req.Model
		return next(ctx, req)
	}
	client := NewClient(WithProvider("anthropic", mock), WithMiddleware(mw))

	if _, err := client.Complete(context.Background(), Request{Model: "sonnet"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen != "claude-sonnet-4-5" || mock.lastReq.Model != "claude-sonnet-4-5" {
		t.Errorf("alias not resolved: middleware saw %q, adapter saw %q", seen, mock.lastReq.Model)
	}

	if _, err := client.Complete(context.Background(), Request{Model: "my-local-model"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.lastReq.Model != "my-local-model" {
		t.Errorf("unknown model should pass through, got %q", mock.lastReq.Model)
	}
}

func TestClientInfersProviderFromCatalog(t *testing.T) {
	openai := newMockAdapter("openai", "from openai")
	anthropic := newMockAdapter("anthropic", "from anthropic")
	client := NewClient(WithProvider("openai", openai), WithProvider("anthropic", anthropic))

	resp, err := client.Complete(context.Background(), Request{Model: "haiku"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() != "from anthropic" {
		t.Errorf("expected the anthropic adapter, got %q", resp.Text())
	}
}
