package unifiedllm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const anthropicDefaultMaxTokens = 4096

// AnthropicAdapter talks to the Anthropic Messages API.
type AnthropicAdapter struct {
	client anthropic.Client
	model  string
}

// AnthropicOption configures an AnthropicAdapter.
type AnthropicOption func(*anthropicConfig)

type anthropicConfig struct {
	baseURL string
	model   string
	opts    []option.RequestOption
}

// WithAnthropicBaseURL overrides the API base URL.
func WithAnthropicBaseURL(url string) AnthropicOption {
	return func(c *anthropicConfig) {
		c.baseURL = NormalizeBaseURL(url)
	}
}

// WithAnthropicModel sets the model used when a request names none.
func WithAnthropicModel(model string) AnthropicOption {
	return func(c *anthropicConfig) {
		c.model = model
	}
}

// WithAnthropicRequestOptions adds raw SDK request options.
func WithAnthropicRequestOptions(opts ...option.RequestOption) AnthropicOption {
	return func(c *anthropicConfig) {
		c.opts = append(c.opts, opts...)
	}
}

// NewAnthropicAdapter creates an adapter. SDK retries are disabled.
func NewAnthropicAdapter(apiKey string, opts ...AnthropicOption) *AnthropicAdapter {
	cfg := &anthropicConfig{}
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
		model = DefaultModel("anthropic")
	}
	return &AnthropicAdapter{
		client: anthropic.NewClient(reqOpts...),
		model:  ResolveModel(model),
	}
}

// Name returns the provider identifier.
func (a *AnthropicAdapter) Name() string { return "anthropic" }

// SupportsToolChoice reports whether the adapter supports a tool choice mode.
func (a *AnthropicAdapter) SupportsToolChoice(mode string) bool {
	switch mode {
	case "auto", "none", "required":
		return true
	default:
		return false
	}
}

// Complete sends one Messages API request.
func (a *AnthropicAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = a.model
	}
	params := buildAnthropicParams(model, req)

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, a.translateError(ctx, err)
	}
	return a.buildResponse(resp), nil
}

func buildAnthropicParams(model string, req Request) anthropic.MessageNewParams {
	var system []anthropic.TextBlockParam
	var msgs []anthropic.MessageParam
	// Tool results answering one assistant turn must share a single user message.
	var pendingResults []anthropic.ContentBlockParamUnion

	flushResults := func() {
		if len(pendingResults) > 0 {
			msgs = append(msgs, anthropic.NewUserMessage(pendingResults...))
			pendingResults = nil
		}
	}

	for _, msg := range req.Messages {
		if msg.Role != RoleTool {
			flushResults()
		}
		switch msg.Role {
		case RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: msg.TextContent()})
		case RoleUser:
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.TextContent())))
		case RoleTool:
			if res := msg.ToolResult(); res != nil {
				pendingResults = append(pendingResults,
					anthropic.NewToolResultBlock(res.ToolCallID, res.ResultText(), res.IsError))
			}
		case RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if text := msg.TextContent(); text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(text))
			}
			for _, call := range msg.ToolCalls() {
				blocks = append(blocks, anthropic.NewToolUseBlock(call.ID, toolUseInput(call.Arguments), call.Name))
			}
			if len(blocks) > 0 {
				msgs = append(msgs, anthropic.NewAssistantMessage(blocks...))
			}
		}
	}
	flushResults()

	maxTokens := int64(anthropicDefaultMaxTokens)
	if req.MaxTokens != nil {
		maxTokens = int64(*req.MaxTokens)
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		Messages:  msgs,
		MaxTokens: maxTokens,
	}
	if len(system) > 0 {
		params.System = system
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}
	if len(req.ToolDefs) > 0 {
		params.Tools = toAnthropicTools(req.ToolDefs)
		if req.ToolChoice != nil && req.ToolChoice.Mode == "auto" {
			params.ToolChoice = anthropic.ToolChoiceUnionParam{OfAuto: &anthropic.ToolChoiceAutoParam{}}
		}
	}
	return params
}

// toolUseInput echoes arguments as an object; anything else becomes {}.
func toolUseInput(args json.RawMessage) any {
	var obj map[string]any
	if err := json.Unmarshal(args, &obj); err != nil || obj == nil {
		return map[string]any{}
	}
	return obj
}

func toAnthropicTools(defs []ToolDefinition) []anthropic.ToolUnionParam {
	tools := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		tool := anthropic.ToolParam{
			Name: def.Name,
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: def.Parameters["properties"],
			},
		}
		if def.Description != "" {
			tool.Description = anthropic.String(def.Description)
		}
		switch req := def.Parameters["required"].(type) {
		case []string:
			tool.InputSchema.Required = req
		case []any:
			for _, r := range req {
				if s, ok := r.(string); ok {
					tool.InputSchema.Required = append(tool.InputSchema.Required, s)
				}
			}
		}
		tools = append(tools, anthropic.ToolUnionParam{OfTool: &tool})
	}
	return tools
}

func (a *AnthropicAdapter) buildResponse(resp *anthropic.Message) *Response {
	out := &Response{
		ID:       resp.ID,
		Model:    string(resp.Model),
		Provider: a.Name(),
		Message:  Message{Role: RoleAssistant},
		Usage: Usage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
			TotalTokens:  int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}
	hasToolUse := false
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			out.Message.Content = append(out.Message.Content, TextPart(block.AsText().Text))
		case "tool_use":
			tu := block.AsToolUse()
			hasToolUse = true
			out.Message.Content = append(out.Message.Content,
				ToolCallPart(tu.ID, tu.Name, ArgumentsJSON(string(tu.Input))))
		}
	}

	raw := string(resp.StopReason)
	switch {
	case hasToolUse || resp.StopReason == anthropic.StopReasonToolUse:
		out.FinishReason = FinishReason{Reason: "tool_calls", Raw: raw}
	case resp.StopReason == anthropic.StopReasonMaxTokens:
		out.FinishReason = FinishReason{Reason: "length", Raw: raw}
	case resp.StopReason == anthropic.StopReasonEndTurn, resp.StopReason == anthropic.StopReasonStopSequence:
		out.FinishReason = FinishReason{Reason: "stop", Raw: raw}
	default:
		out.FinishReason = FinishReason{Reason: "other", Raw: raw}
	}
	return out
}

func (a *AnthropicAdapter) translateError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return FromContextError(ctx.Err())
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return HTTPFailure{
			Provider: a.Name(),
			Status:   apiErr.StatusCode,
			Message:  apiErr.Error(),
			Response: apiErr.Response,
			Cause:    err,
		}.Classify()
	}
	return &NetworkError{SDKError: SDKError{Message: fmt.Sprintf("anthropic request failed: %v", err), Cause: err}}
}
