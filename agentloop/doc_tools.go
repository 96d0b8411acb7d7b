package agentloop

import (
	"fmt"
	"strings"

	"github.com/martinemde/notionagent/notion"
)

const (
	defaultRecentPageSize = 10
	// One more id than asked for is fetched, and Notion caps a page at 100.
	maxRecentPageSize = 99
)

// NewNotionToolRegistry returns a registry holding the fixed Notion tool set:
// four read tools followed by the three rich text build tools.
func NewNotionToolRegistry() *ToolRegistry {
	reg := NewToolRegistry()
	registerSearchPages(reg)
	registerRecentPages(reg)
	registerPageProperties(reg)
	registerGetBlocks(reg)
	registerAppendText(reg)
	registerAppendPageMention(reg)
	registerFinishRichText(reg)
	return reg
}

func objectSchema(properties map[string]interface{}, required ...string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func registerSearchPages(reg *ToolRegistry) {
	reg.Register(RegisteredTool{
		Definition: ToolDefinition{
			Name:        ToolSearchPages,
			Description: "Search the Notion workspace by keyword. Returns matching pages or databases with id, title, type and last edited time, newest first.",
			Parameters: objectSchema(map[string]interface{}{
				"keyword": map[string]interface{}{
					"type":        "string",
					"description": "Text to search for. Empty matches everything.",
				},
				"obj_type": map[string]interface{}{
					"type":        "string",
					"enum":        []string{string(notion.ObjectPage), string(notion.ObjectDatabase)},
					"description": "Object type to return. Default: page.",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results, 1 to 100. Default: 10.",
				},
			}),
		},
		Decode: func(args map[string]interface{}) (Invocation, error) {
			keyword, _ := GetStringArg(args, "keyword")
			objType, _ := GetStringArg(args, "obj_type")
			objType = strings.ToLower(strings.TrimSpace(objType))
			switch objType {
			case "":
				objType = string(notion.ObjectPage)
			case string(notion.ObjectPage), string(notion.ObjectDatabase):
			default:
				return nil, fmt.Errorf("obj_type must be %q or %q, got %q", notion.ObjectPage, notion.ObjectDatabase, objType)
			}
			limit, err := optionalInt(args, "limit", 10)
			if err != nil {
				return nil, err
			}
			if limit < 1 || limit > 100 {
				return nil, fmt.Errorf("limit must be between 1 and 100, got %d", limit)
			}
			return SearchPages{Keyword: keyword, ObjectType: objType, Limit: limit}, nil
		},
	})
}

func registerRecentPages(reg *ToolRegistry) {
	reg.Register(RegisteredTool{
		Definition: ToolDefinition{
			Name:        ToolRecentPages,
			Description: "List the ids of the most recently edited Notion pages, newest first. The page holding the output block is never included.",
			Parameters: objectSchema(map[string]interface{}{
				"page_size": map[string]interface{}{
					"type":        "integer",
					"description": "Number of page ids to return, 1 to 99. Default: 10.",
				},
			}),
		},
		Decode: func(args map[string]interface{}) (Invocation, error) {
			size, err := optionalInt(args, "page_size", defaultRecentPageSize)
			if err != nil {
				return nil, err
			}
			if size < 1 || size > maxRecentPageSize {
				return nil, fmt.Errorf("page_size must be between 1 and %d, got %d", maxRecentPageSize, size)
			}
			return RecentPages{PageSize: size}, nil
		},
	})
}

func registerPageProperties(reg *ToolRegistry) {
	reg.Register(RegisteredTool{
		Definition: ToolDefinition{
			Name:        ToolPageProperties,
			Description: "Get the properties of a Notion page: title, timestamps, parent and custom properties.",
			Parameters: objectSchema(map[string]interface{}{
				"page_id": map[string]interface{}{
					"type":        "string",
					"description": "The Notion page id.",
				},
			}, "page_id"),
		},
		Decode: func(args map[string]interface{}) (Invocation, error) {
			id, err := requireString(args, "page_id")
			if err != nil {
				return nil, err
			}
			return PageProperties{PageID: id}, nil
		},
	})
}

func registerGetBlocks(reg *ToolRegistry) {
	reg.Register(RegisteredTool{
		Definition: ToolDefinition{
			Name:        ToolGetBlocks,
			Description: "Get the content blocks of a Notion page or block. Set recursive to include nested children.",
			Parameters: objectSchema(map[string]interface{}{
				"block_id": map[string]interface{}{
					"type":        "string",
					"description": "The page or block id whose children to read.",
				},
				"recursive": map[string]interface{}{
					"type":        "boolean",
					"description": "Expand nested children. Default: false.",
				},
			}, "block_id"),
		},
		Decode: func(args map[string]interface{}) (Invocation, error) {
			id, err := requireString(args, "block_id")
			if err != nil {
				return nil, err
			}
			recursive, err := optionalBool(args, "recursive")
			if err != nil {
				return nil, err
			}
			return GetBlocks{BlockID: id, Recursive: recursive}, nil
		},
	})
}

func registerAppendText(reg *ToolRegistry) {
	reg.Register(RegisteredTool{
		Definition: ToolDefinition{
			Name:        ToolAppendText,
			Description: "Append a text element to the rich text being built. Use \\n inside content for line breaks.",
			Parameters: objectSchema(map[string]interface{}{
				"content": map[string]interface{}{
					"type":        "string",
					"description": "The text to append.",
				},
				"bold": map[string]interface{}{
					"type":        "boolean",
					"description": "Render the text in bold. Default: false.",
				},
			}, "content"),
		},
		Decode: func(args map[string]interface{}) (Invocation, error) {
			content, ok := GetStringArg(args, "content")
			if !ok {
				return nil, fmt.Errorf("content is required")
			}
			bold, err := optionalBool(args, "bold")
			if err != nil {
				return nil, err
			}
			return AppendText{Content: content, Bold: bold}, nil
		},
	})
}

func registerAppendPageMention(reg *ToolRegistry) {
	reg.Register(RegisteredTool{
		Definition: ToolDefinition{
			Name:        ToolAppendPageMention,
			Description: "Append a mention of a Notion page to the rich text being built.",
			Parameters: objectSchema(map[string]interface{}{
				"page_id": map[string]interface{}{
					"type":        "string",
					"description": "The id of the page to mention.",
				},
			}, "page_id"),
		},
		Decode: func(args map[string]interface{}) (Invocation, error) {
			id, err := requireString(args, "page_id")
			if err != nil {
				return nil, err
			}
			return AppendPageMention{PageID: id}, nil
		},
	})
}

func registerFinishRichText(reg *ToolRegistry) {
	reg.Register(RegisteredTool{
		Definition: ToolDefinition{
			Name:        ToolFinishRichText,
			Description: "Finish building the rich text. Call this once after all elements have been appended.",
			Parameters:  objectSchema(map[string]interface{}{}),
		},
		Decode: func(map[string]interface{}) (Invocation, error) {
			return FinishRichText{}, nil
		},
	})
}
