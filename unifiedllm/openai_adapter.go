package unifiedllm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIAdapter talks to any OpenAI-compatible chat completions endpoint.
type OpenAIAdapter struct {
	client openai.Client
	model  string
}

// OpenAIOption configures an OpenAIAdapter.
type OpenAIOption func(*openAIConfig)

type openAIConfig struct {
	baseURL string
	model   string
	opts    []option.RequestOption
}

// WithOpenAIBaseURL points the adapter at a compatible endpoint. A trailing
// "/chat/completions" is stripped since the SDK appends it.
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(c *openAIConfig) {
		c.baseURL = NormalizeBaseURL(url)
	}
}

// WithOpenAIModel sets the model used when a request names none.
func WithOpenAIModel(model string) OpenAIOption {
	return func(c *openAIConfig) {
		c.model = model
	}
}

// WithOpenAIRequestOptions adds raw SDK request options.
func WithOpenAIRequestOptions(opts ...option.RequestOption) OpenAIOption {
	return func(c *openAIConfig) {
		c.opts = append(c.opts, opts...)
	}
}

// NormalizeBaseURL trims whitespace, trailing slashes and a trailing
// "/chat/completions" path.
func NormalizeBaseURL(url string) string {
	url = strings.TrimRight(strings.TrimSpace(url), "/")
	url = strings.TrimSuffix(url, "/chat/completions")
	return url
}

// NewOpenAIAdapter creates an adapter. Retries are disabled in the SDK;
// RetryMiddleware owns that policy.
func NewOpenAIAdapter(apiKey string, opts ...OpenAIOption) *OpenAIAdapter {
	cfg := &openAIConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL+"/"))
	}
	reqOpts = append(reqOpts, cfg.opts...)

	model := cfg.model
	if model == "" {
		model = DefaultModel("openai")
	}

	return &OpenAIAdapter{
		client: openai.NewClient(reqOpts...),
		model:  model,
	}
}

// Name returns the provider identifier.
func (a *OpenAIAdapter) Name() string { return "openai" }

// SupportsToolChoice reports whether the adapter supports a tool choice mode.
func (a *OpenAIAdapter) SupportsToolChoice(mode string) bool {
	switch mode {
	case "auto", "none", "required":
		return true
	default:
		return false
	}
}

// Complete sends one chat completion request.
func (a *OpenAIAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = a.model
	}
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: toOpenAIMessages(req.Messages),
	}
	if len(req.ToolDefs) > 0 {
		params.Tools = toOpenAITools(req.ToolDefs)
		if req.ToolChoice != nil && req.ToolChoice.Mode != "" {
			params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
				OfAuto: openai.String(req.ToolChoice.Mode),
			}
		}
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.MaxTokens != nil {
		params.MaxTokens = openai.Int(int64(*req.MaxTokens))
	}

	resp, err := a.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, a.translateError(ctx, err)
	}
	return a.buildResponse(model, resp), nil
}

func toOpenAIMessages(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(msg.TextContent()))
		case RoleUser:
			out = append(out, openai.UserMessage(msg.TextContent()))
		case RoleTool:
			if res := msg.ToolResult(); res != nil {
				out = append(out, openai.ToolMessage(res.ResultText(), res.ToolCallID))
			}
		case RoleAssistant:
			calls := msg.ToolCalls()
			if len(calls) == 0 {
				out = append(out, openai.AssistantMessage(msg.TextContent()))
				continue
			}
			toolCalls := make([]openai.ChatCompletionMessageToolCallUnionParam, 0, len(calls))
			for _, call := range calls {
				toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: call.ID,
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      call.Name,
							Arguments: ArgumentsText(call.Arguments),
						},
					},
				})
			}
			assistant := openai.ChatCompletionAssistantMessageParam{ToolCalls: toolCalls}
			if text := msg.TextContent(); text != "" {
				assistant.Content = openai.ChatCompletionAssistantMessageParamContentUnion{OfString: openai.String(text)}
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
		}
	}
	return out
}

func toOpenAITools(defs []ToolDefinition) []openai.ChatCompletionToolUnionParam {
	tools := make([]openai.ChatCompletionToolUnionParam, 0, len(defs))
	for _, def := range defs {
		tools = append(tools, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        def.Name,
			Description: openai.String(def.Description),
			Parameters:  openai.FunctionParameters(def.Parameters),
		}))
	}
	return tools
}

func (a *OpenAIAdapter) buildResponse(model string, resp *openai.ChatCompletion) *Response {
	out := &Response{
		ID:       resp.ID,
		Model:    resp.Model,
		Provider: a.Name(),
		Message:  Message{Role: RoleAssistant},
		Usage: Usage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:  int(resp.Usage.TotalTokens),
		},
	}
	if out.ID == "" {
		out.ID = "resp_" + uuid.NewString()[:8]
	}
	if out.Model == "" {
		out.Model = model
	}
	if len(resp.Choices) == 0 {
		out.FinishReason = FinishReason{Reason: "other", Raw: ""}
		return out
	}

	choice := resp.Choices[0]
	if choice.Message.Content != "" {
		out.Message.Content = append(out.Message.Content, TextPart(choice.Message.Content))
	}
	for _, tc := range choice.Message.ToolCalls {
		id := tc.ID
		if id == "" {
			id = "call_" + uuid.NewString()[:8]
		}
		out.Message.Content = append(out.Message.Content,
			ToolCallPart(id, tc.Function.Name, ArgumentsJSON(tc.Function.Arguments)))
	}
	out.FinishReason = mapOpenAIFinishReason(choice.FinishReason)
	if len(choice.Message.ToolCalls) > 0 {
		out.FinishReason.Reason = "tool_calls"
	}
	return out
}

func mapOpenAIFinishReason(raw string) FinishReason {
	switch raw {
	case "stop", "length", "tool_calls", "content_filter":
		return FinishReason{Reason: raw, Raw: raw}
	case "function_call":
		return FinishReason{Reason: "tool_calls", Raw: raw}
	default:
		return FinishReason{Reason: "other", Raw: raw}
	}
}

func (a *OpenAIAdapter) translateError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return FromContextError(ctx.Err())
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return HTTPFailure{
			Provider: a.Name(),
			Status:   apiErr.StatusCode,
			Message:  apiErr.Message,
			Code:     apiErr.Code,
			Response: apiErr.Response,
			Cause:    err,
		}.Classify()
	}
	return &NetworkError{SDKError: SDKError{Message: fmt.Sprintf("openai request failed: %v", err), Cause: err}}
}
