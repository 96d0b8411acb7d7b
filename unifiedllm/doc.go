// Package unifiedllm provides a provider-agnostic chat completion client
// with tool calling.
//
// # Layout
//
// Adapters translate Request and Response to one vendor SDK each. Client
// picks an adapter per request, resolves model aliases from the catalog and
// runs a fixed middleware chain (logging, retry, per-call timeout) around it.
//
// # Adapters
//
// OpenAIAdapter speaks to any OpenAI-compatible endpoint through
// github.com/openai/openai-go/v3. AnthropicAdapter uses
// github.com/anthropics/anthropic-sdk-go. GollmAdapter wraps
// github.com/teilomillet/gollm for the remaining providers.
//
//	adapter := unifiedllm.NewOpenAIAdapter(apiKey, unifiedllm.WithOpenAIBaseURL(baseURL))
//	client := unifiedllm.NewClient(
//	    unifiedllm.WithProvider("openai", adapter),
//	    unifiedllm.WithMiddleware(
//	        unifiedllm.RetryMiddleware(unifiedllm.DefaultRetryPolicy()),
//	        unifiedllm.TimeoutMiddleware(60*time.Second),
//	    ),
//	)
//
//	resp, _ := client.Complete(ctx, unifiedllm.Request{
//	    Messages: []unifiedllm.Message{unifiedllm.UserMessage("Hello")},
//	})
//	fmt.Println(resp.Text())
//
// # Errors
//
// Provider failures are mapped onto a typed hierarchy (AuthenticationError,
// RateLimitError, ServerError, RequestTimeoutError and so on). IsRetryable
// classifies them; RetryMiddleware only re-issues retryable failures, and the
// default policy makes a single attempt.
package unifiedllm
