package unifiedllm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/teilomillet/gollm"
)

// GollmAdapter serves providers without a native adapter (ollama, groq,
// mistral and the rest of gollm's registry). gollm exchanges plain text, so
// the adapter renders the conversation as a transcript, describes the
// tool-call reply format in the system prompt, and recovers tool calls from
// the JSON the model writes back.
type GollmAdapter struct {
	provider string
	model    string
	llm      gollm.LLM
	mu       sync.Mutex // gollm options are shared state
}

// GollmAdapterOption configures a GollmAdapter.
type GollmAdapterOption func(*gollmAdapterConfig)

type gollmAdapterConfig struct {
	model       string
	maxTokens   int
	temperature float64
	extraOpts   []gollm.ConfigOption
}

// WithModel sets the default model for the adapter.
func WithModel(model string) GollmAdapterOption {
	return func(c *gollmAdapterConfig) { c.model = model }
}

// WithMaxTokens sets the default max tokens.
func WithMaxTokens(n int) GollmAdapterOption {
	return func(c *gollmAdapterConfig) { c.maxTokens = n }
}

// WithTemperature sets the default temperature.
func WithTemperature(t float64) GollmAdapterOption {
	return func(c *gollmAdapterConfig) { c.temperature = t }
}

// WithGollmOptions adds extra gollm configuration options.
func WithGollmOptions(opts ...gollm.ConfigOption) GollmAdapterOption {
	return func(c *gollmAdapterConfig) { c.extraOpts = append(c.extraOpts, opts...) }
}

// NewGollmAdapter creates an adapter for provider. An empty apiKey lets gollm
// read the provider's usual environment variable. Without WithModel the
// catalog default for the provider is used; providers absent from the catalog
// must name a model.
func NewGollmAdapter(provider string, apiKey string, opts ...GollmAdapterOption) (*GollmAdapter, error) {
	cfg := &gollmAdapterConfig{maxTokens: 4096, temperature: 0.2}
	for _, opt := range opts {
		opt(cfg)
	}

	model := cfg.model
	if model == "" {
		model = DefaultModel(provider)
	}
	if model == "" {
		return nil, &ConfigurationError{SDKError: SDKError{
			Message: fmt.Sprintf("no model configured for provider %q", provider),
		}}
	}

	gollmOpts := []gollm.ConfigOption{
		gollm.SetProvider(provider),
		gollm.SetModel(model),
		gollm.SetMaxTokens(cfg.maxTokens),
		gollm.SetTemperature(cfg.temperature),
		gollm.SetMaxRetries(0), // RetryMiddleware owns retries
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}
	if apiKey != "" {
		gollmOpts = append(gollmOpts, gollm.SetAPIKey(apiKey))
	}
	gollmOpts = append(gollmOpts, cfg.extraOpts...)

	llm, err := gollm.NewLLM(gollmOpts...)
	if err != nil {
		return nil, &ConfigurationError{SDKError: SDKError{
			Message: fmt.Sprintf("create gollm client for provider %s", provider),
			Cause:   err,
		}}
	}
	return &GollmAdapter{provider: provider, model: model, llm: llm}, nil
}

// NewGollmAdapterFromLLM wraps an existing gollm.LLM instance.
func NewGollmAdapterFromLLM(provider, model string, llm gollm.LLM) *GollmAdapter {
	return &GollmAdapter{provider: provider, model: model, llm: llm}
}

// Name returns the provider identifier.
func (a *GollmAdapter) Name() string { return a.provider }

// SupportsToolChoice reports the modes the text protocol can honor. A named
// tool cannot be forced through free text.
func (a *GollmAdapter) SupportsToolChoice(mode string) bool {
	return mode == "auto" || mode == "none"
}

// Complete renders req as a prompt, generates a reply and parses it.
func (a *GollmAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	prompt := a.buildPrompt(req)

	a.mu.Lock()
	if req.Model != "" {
		a.llm.SetOption("model", req.Model)
	}
	if req.Temperature != nil {
		a.llm.SetOption("temperature", *req.Temperature)
	}
	if req.MaxTokens != nil {
		a.llm.SetOption("max_tokens", *req.MaxTokens)
	}
	text, err := a.llm.Generate(ctx, prompt)
	a.mu.Unlock()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, FromContextError(ctxErr)
		}
		return nil, a.translateError(err)
	}
	return a.buildResponse(req, text), nil
}

// buildPrompt wraps the rendered conversation in a gollm prompt.
func (a *GollmAdapter) buildPrompt(req Request) *gollm.Prompt {
	system, body := renderConversation(req)

	var opts []gollm.PromptOption
	if system != "" {
		opts = append(opts, gollm.WithSystemPrompt(system, gollm.CacheTypeEphemeral))
	}
	if req.MaxTokens != nil {
		opts = append(opts, gollm.WithMaxLength(*req.MaxTokens))
	}
	if offersTools(req) {
		tools := make([]gollm.Tool, 0, len(req.ToolDefs))
		for _, t := range req.ToolDefs {
			tools = append(tools, gollm.Tool{
				Type: "function",
				Function: gollm.Function{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.Parameters,
				},
			})
		}
		opts = append(opts, gollm.WithTools(tools), gollm.WithToolChoice("auto"))
	}
	return gollm.NewPrompt(body, opts...)
}

func offersTools(req Request) bool {
	return len(req.ToolDefs) > 0 && (req.ToolChoice == nil || req.ToolChoice.Mode != "none")
}

// renderConversation flattens the conversation. System text plus the tool
// protocol become the system prompt; everything else becomes a labeled
// transcript.
func renderConversation(req Request) (system, body string) {
	var sys strings.Builder
	toolNames := map[string]string{} // call id -> tool name
	var transcript []string

	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			sys.WriteString(msg.TextContent())
			sys.WriteString("\n")
		case RoleUser:
			transcript = append(transcript, "[User]: "+msg.TextContent())
		case RoleAssistant:
			if text := msg.TextContent(); text != "" {
				transcript = append(transcript, "[Assistant]: "+text)
			}
			for _, call := range msg.ToolCalls() {
				toolNames[call.ID] = call.Name
				transcript = append(transcript, fmt.Sprintf("[Tool call %s]: %s %s", call.ID, call.Name, ArgumentsText(call.Arguments)))
			}
		case RoleTool:
			if res := msg.ToolResult(); res != nil {
				label := "Tool result"
				if res.IsError {
					label = "Tool error"
				}
				transcript = append(transcript, fmt.Sprintf("[%s %s (%s)]: %s", label, res.ToolCallID, toolNames[res.ToolCallID], res.ResultText()))
			}
		}
	}

	if offersTools(req) {
		sys.WriteString("\n")
		sys.WriteString(toolProtocol(req.ToolDefs))
	}

	body = strings.Join(transcript, "\n")
	if body == "" {
		body = "[User]: (no input)"
	}
	return strings.TrimSpace(sys.String()), body
}

// toolProtocol describes the JSON reply format the parser understands.
func toolProtocol(defs []ToolDefinition) string {
	var sb strings.Builder
	sb.WriteString("# Tool calls\n\n")
	sb.WriteString("To call tools, reply with one JSON object and nothing after it:\n")
	sb.WriteString(`{"tool_calls":[{"name":"<tool>","arguments":{...}}]}` + "\n")
	sb.WriteString("Calls run in the order listed. Reply with plain text and no JSON when you are done.\n\n")
	sb.WriteString("Tools and their JSON Schema parameters:\n")
	for _, d := range defs {
		params, err := json.Marshal(d.Parameters)
		if err != nil {
			params = []byte("{}")
		}
		fmt.Fprintf(&sb, "- %s: %s\n  parameters: %s\n", d.Name, d.Description, params)
	}
	return sb.String()
}

func (a *GollmAdapter) buildResponse(req Request, text string) *Response {
	model := req.Model
	if model == "" {
		model = a.model
	}

	calls, rest := parseToolCalls(text)
	var parts []ContentPart
	if rest != "" {
		parts = append(parts, TextPart(rest))
	}
	for i := range calls {
		parts = append(parts, ContentPart{Kind: ContentToolCall, ToolCall: &calls[i]})
	}
	if len(parts) == 0 {
		parts = []ContentPart{TextPart(text)}
	}

	finish := FinishReason{Reason: "stop", Raw: "stop"}
	if len(calls) > 0 {
		finish = FinishReason{Reason: "tool_calls", Raw: "tool_calls"}
	}

	// gollm does not report usage; estimate at four characters per token.
	in, out := estimateTokens(req), len(text)/4
	return &Response{
		ID:           "resp_" + uuid.New().String()[:8],
		Model:        model,
		Provider:     a.provider,
		Message:      Message{Role: RoleAssistant, Content: parts},
		FinishReason: finish,
		Usage:        Usage{InputTokens: in, OutputTokens: out, TotalTokens: in + out},
	}
}

// parseToolCalls finds tool calls written as {"tool_calls":[...]} or as a
// bare [{"name":...}] array, optionally inside a ```json fence. It returns
// the calls and the text preceding the JSON.
func parseToolCalls(text string) ([]ToolCallData, string) {
	type rawCall struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}

	var (
		raw   []rawCall
		start = -1
	)
	if i := strings.Index(text, `{"tool_calls"`); i != -1 {
		var wrapper struct {
			ToolCalls []rawCall `json:"tool_calls"`
		}
		if err := json.NewDecoder(strings.NewReader(text[i:])).Decode(&wrapper); err == nil {
			raw, start = wrapper.ToolCalls, i
		}
	} else if i := strings.Index(text, `[{"name"`); i != -1 {
		if err := json.NewDecoder(strings.NewReader(text[i:])).Decode(&raw); err == nil {
			start = i
		}
	}

	var calls []ToolCallData
	for _, rc := range raw {
		if rc.Name == "" {
			continue
		}
		args := rc.Arguments
		switch {
		case len(args) == 0 || string(args) == "null":
			args = json.RawMessage("{}")
		case args[0] == '"':
			// Some models double-encode arguments as a string.
			args = ArgumentsJSON(ArgumentsText(args))
		}
		calls = append(calls, ToolCallData{
			ID:        "call_" + uuid.New().String()[:8],
			Name:      rc.Name,
			Arguments: args,
			Type:      "function",
		})
	}
	if len(calls) == 0 {
		return nil, strings.TrimSpace(text)
	}

	rest := strings.TrimSpace(text[:start])
	rest = strings.TrimSpace(strings.TrimSuffix(strings.TrimSuffix(rest, "```json"), "```"))
	return calls, rest
}

// errorRule maps message fragments to an error constructor.
type errorRule struct {
	needles []string
	build   func(pe ProviderError) error
}

var gollmErrorRules = []errorRule{
	{[]string{"401", "unauthorized", "invalid key", "invalid api key"}, func(pe ProviderError) error {
		pe.StatusCode = 401
		return &AuthenticationError{ProviderError: pe}
	}},
	{[]string{"403", "forbidden"}, func(pe ProviderError) error {
		pe.StatusCode = 403
		return &AccessDeniedError{ProviderError: pe}
	}},
	{[]string{"404", "not found"}, func(pe ProviderError) error {
		pe.StatusCode = 404
		return &NotFoundError{ProviderError: pe}
	}},
	{[]string{"429", "rate limit"}, func(pe ProviderError) error {
		pe.StatusCode, pe.Retryable = 429, true
		return &RateLimitError{ProviderError: pe}
	}},
	{[]string{"context length", "too many tokens"}, func(pe ProviderError) error {
		pe.StatusCode = 413
		return &ContextLengthError{ProviderError: pe}
	}},
	{[]string{"500", "502", "503", "internal server", "bad gateway", "unavailable"}, func(pe ProviderError) error {
		pe.StatusCode, pe.Retryable = 500, true
		return &ServerError{ProviderError: pe}
	}},
	{[]string{"timeout", "deadline exceeded"}, func(pe ProviderError) error {
		return &RequestTimeoutError{SDKError: pe.SDKError}
	}},
	{[]string{"content filter", "safety"}, func(pe ProviderError) error {
		return &ContentFilterError{ProviderError: pe}
	}},
	{[]string{"connection refused", "no such host", "connection reset"}, func(pe ProviderError) error {
		return &NetworkError{SDKError: pe.SDKError}
	}},
}

// translateError classifies a gollm error by its message; gollm does not
// expose status codes.
func (a *GollmAdapter) translateError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	lower := strings.ToLower(msg)
	base := ProviderError{SDKError: SDKError{Message: msg, Cause: err}, Provider: a.provider}
	for _, rule := range gollmErrorRules {
		for _, needle := range rule.needles {
			if strings.Contains(lower, needle) {
				return rule.build(base)
			}
		}
	}
	base.Retryable = true
	return &base
}

// estimateTokens approximates prompt size from text and tool results.
func estimateTokens(req Request) int {
	total := 0
	for _, msg := range req.Messages {
		for _, part := range msg.Content {
			switch part.Kind {
			case ContentText:
				total += len(part.Text) / 4
			case ContentToolResult:
				if part.ToolResult != nil {
					total += len(part.ToolResult.Content) / 4
				}
			case ContentToolCall:
				if part.ToolCall != nil {
					total += len(part.ToolCall.Arguments) / 4
				}
			}
		}
	}
	if total == 0 {
		total = 10
	}
	return total
}
