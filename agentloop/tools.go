package agentloop

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cast"

	"github.com/martinemde/notionagent/unifiedllm"
)

// ErrUnknownTool is returned when the model names a tool that is not registered.
var ErrUnknownTool = errors.New("unknown tool")

// ToolName identifies one member of the closed tool set.
type ToolName string

const (
	ToolSearchPages       ToolName = "search_pages"
	ToolRecentPages       ToolName = "get_lasted_change_page_id"
	ToolPageProperties    ToolName = "get_page_properties"
	ToolGetBlocks         ToolName = "get_blocks"
	ToolAppendText        ToolName = "append_text"
	ToolAppendPageMention ToolName = "append_page_mention"
	ToolFinishRichText    ToolName = "finish_rich_text"
)

// Invocation is a decoded tool call. The implementations are the argument
// structs below; Toolbox.Execute switches over them.
type Invocation interface {
	Tool() ToolName
	invocation()
}

// SearchPages searches the workspace by keyword.
type SearchPages struct {
	Keyword    string
	ObjectType string
	Limit      int
}

// RecentPages lists recently edited page ids.
type RecentPages struct {
	PageSize int
}

// PageProperties reads one page object.
type PageProperties struct {
	PageID string
}

// GetBlocks reads the children of a page or block.
type GetBlocks struct {
	BlockID   string
	Recursive bool
}

// AppendText appends a text segment to the session buffer.
type AppendText struct {
	Content string
	Bold    bool
}

// AppendPageMention appends a page mention to the session buffer.
type AppendPageMention struct {
	PageID string
}

// FinishRichText snapshots the session buffer as the final output.
type FinishRichText struct{}

func (SearchPages) Tool() ToolName       { return ToolSearchPages }
func (RecentPages) Tool() ToolName       { return ToolRecentPages }
func (PageProperties) Tool() ToolName    { return ToolPageProperties }
func (GetBlocks) Tool() ToolName         { return ToolGetBlocks }
func (AppendText) Tool() ToolName        { return ToolAppendText }
func (AppendPageMention) Tool() ToolName { return ToolAppendPageMention }
func (FinishRichText) Tool() ToolName    { return ToolFinishRichText }

func (SearchPages) invocation()       {}
func (RecentPages) invocation()       {}
func (PageProperties) invocation()    {}
func (GetBlocks) invocation()         {}
func (AppendText) invocation()        {}
func (AppendPageMention) invocation() {}
func (FinishRichText) invocation()    {}

// ToolDecoder turns parsed arguments into a typed Invocation.
type ToolDecoder func(args map[string]interface{}) (Invocation, error)

// ToolDefinition describes a tool for the LLM (serializable metadata).
type ToolDefinition struct {
	Name        ToolName               `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// RegisteredTool pairs a tool definition with its argument decoder.
type RegisteredTool struct {
	Definition ToolDefinition
	Decode     ToolDecoder
}

// ToolRegistry manages tool registration and lookup. Definitions are returned
// in registration order so requests are deterministic.
type ToolRegistry struct {
	tools map[ToolName]*RegisteredTool
	order []ToolName
	mu    sync.RWMutex
}

// NewToolRegistry creates an empty ToolRegistry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		tools: make(map[ToolName]*RegisteredTool),
	}
}

// Register adds or replaces a tool in the registry.
func (r *ToolRegistry) Register(tool RegisteredTool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := tool.Definition.Name
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = &tool
}

// Get returns a registered tool by name, or nil if not found.
func (r *ToolRegistry) Get(name ToolName) *RegisteredTool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Definitions returns all tool definitions in registration order.
func (r *ToolRegistry) Definitions() []ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition)
	}
	return defs
}

// Names returns the names of all registered tools in registration order.
func (r *ToolRegistry) Names() []ToolName {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]ToolName(nil), r.order...)
}

// Count returns the number of registered tools.
func (r *ToolRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// ToUnifiedLLMToolDefs converts registry definitions to the request type.
func (r *ToolRegistry) ToUnifiedLLMToolDefs() []unifiedllm.ToolDefinition {
	defs := r.Definitions()
	result := make([]unifiedllm.ToolDefinition, len(defs))
	for i, d := range defs {
		result[i] = unifiedllm.ToolDefinition{
			Name:        string(d.Name),
			Description: d.Description,
			Parameters:  d.Parameters,
		}
	}
	return result
}

// Decode resolves a model tool call into a typed Invocation. An unregistered
// name wraps ErrUnknownTool; bad arguments return a plain error.
func (r *ToolRegistry) Decode(call unifiedllm.ToolCall) (Invocation, error) {
	tool := r.Get(ToolName(call.Name))
	if tool == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, call.Name)
	}
	args, err := ParseToolArguments(call.Arguments)
	if err != nil {
		return nil, err
	}
	return tool.Decode(args)
}

// ParseToolArguments unmarshals tool call arguments into a map. Empty input
// is treated as no arguments.
func ParseToolArguments(raw json.RawMessage) (map[string]interface{}, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return map[string]interface{}{}, nil
	}
	var args map[string]interface{}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("invalid tool arguments: %w", err)
	}
	if args == nil {
		args = map[string]interface{}{}
	}
	return args, nil
}

// GetStringArg extracts a string argument. Numbers are accepted and
// formatted; other types are rejected.
func GetStringArg(args map[string]interface{}, key string) (string, bool) {
	v, ok := args[key]
	if !ok || v == nil {
		return "", false
	}
	switch v.(type) {
	case map[string]interface{}, []interface{}:
		return "", false
	}
	s, err := cast.ToStringE(v)
	return s, err == nil
}

// GetIntArg extracts an integer argument. Models sometimes quote numbers, so
// "5" is accepted as well as 5.
func GetIntArg(args map[string]interface{}, key string) (int, bool) {
	v, ok := args[key]
	if !ok || v == nil {
		return 0, false
	}
	n, err := cast.ToIntE(v)
	return n, err == nil
}

// GetBoolArg extracts a boolean argument, accepting "true"/"false" strings.
func GetBoolArg(args map[string]interface{}, key string) (bool, bool) {
	v, ok := args[key]
	if !ok || v == nil {
		return false, false
	}
	b, err := cast.ToBoolE(v)
	return b, err == nil
}

func requireString(args map[string]interface{}, key string) (string, error) {
	s, ok := GetStringArg(args, key)
	if !ok || s == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return s, nil
}

func optionalInt(args map[string]interface{}, key string, def int) (int, error) {
	if v, present := args[key]; !present || v == nil {
		return def, nil
	}
	n, ok := GetIntArg(args, key)
	if !ok {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return n, nil
}

func optionalBool(args map[string]interface{}, key string) (bool, error) {
	if v, present := args[key]; !present || v == nil {
		return false, nil
	}
	b, ok := GetBoolArg(args, key)
	if !ok {
		return false, fmt.Errorf("%s must be a boolean", key)
	}
	return b, nil
}
