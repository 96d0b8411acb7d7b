package agentloop

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/martinemde/notionagent/unifiedllm"
)

// TurnKind says which role a turn plays in the conversation.
type TurnKind string

const (
	TurnSystem      TurnKind = "system"
	TurnUser        TurnKind = "user"
	TurnAssistant   TurnKind = "assistant"
	TurnToolResults TurnKind = "tool_results"
	TurnSteering    TurnKind = "steering" // note injected by the loop, sent as user text
)

// Turn is one entry in a session's conversation. Only the fields that belong
// to Kind are set.
type Turn struct {
	Kind TurnKind  `json:"kind"`
	At   time.Time `json:"at"`

	Text string `json:"text,omitempty"`

	// Assistant turns.
	ToolCalls  []unifiedllm.ToolCall `json:"tool_calls,omitempty"`
	Usage      unifiedllm.Usage      `json:"usage,omitzero"`
	ResponseID string                `json:"response_id,omitempty"`

	// Tool result turns, one per call of the preceding assistant turn.
	Results []unifiedllm.ToolResult `json:"results,omitempty"`
}

func NewSystemTurn(text string) Turn   { return Turn{Kind: TurnSystem, At: now(), Text: text} }
func NewUserTurn(text string) Turn     { return Turn{Kind: TurnUser, At: now(), Text: text} }
func NewSteeringTurn(text string) Turn { return Turn{Kind: TurnSteering, At: now(), Text: text} }

// NewAssistantTurn records a model response verbatim.
func NewAssistantTurn(text string, calls []unifiedllm.ToolCall, usage unifiedllm.Usage, responseID string) Turn {
	return Turn{Kind: TurnAssistant, At: now(), Text: text, ToolCalls: calls, Usage: usage, ResponseID: responseID}
}

// NewToolResultsTurn records the results of one round of tool calls.
func NewToolResultsTurn(results []unifiedllm.ToolResult) Turn {
	return Turn{Kind: TurnToolResults, At: now(), Results: results}
}

// TextContent returns the turn's text; tool result turns have none.
func (t Turn) TextContent() string { return t.Text }

// size approximates the characters the turn contributes to a request.
func (t Turn) size() int {
	n := len(t.Text)
	for _, c := range t.ToolCalls {
		n += len(c.Name) + len(c.Arguments)
	}
	for _, r := range t.Results {
		n += len(resultContent(r))
	}
	return n
}

// messages renders the turn for the completion endpoint.
func (t Turn) messages() []unifiedllm.Message {
	switch t.Kind {
	case TurnSystem:
		return []unifiedllm.Message{unifiedllm.SystemMessage(t.Text)}
	case TurnUser, TurnSteering:
		return []unifiedllm.Message{unifiedllm.UserMessage(t.Text)}
	case TurnAssistant:
		msg := unifiedllm.Message{Role: unifiedllm.RoleAssistant}
		if t.Text != "" {
			msg.Content = append(msg.Content, unifiedllm.TextPart(t.Text))
		}
		for _, c := range t.ToolCalls {
			msg.Content = append(msg.Content, unifiedllm.ToolCallPart(c.ID, c.Name, c.Arguments))
		}
		return []unifiedllm.Message{msg}
	case TurnToolResults:
		out := make([]unifiedllm.Message, 0, len(t.Results))
		for _, r := range t.Results {
			out = append(out, unifiedllm.ToolResultMessage(r.ToolCallID, resultContent(r), r.IsError))
		}
		return out
	}
	return nil
}

// ConvertHistoryToMessages renders a conversation in order.
func ConvertHistoryToMessages(history []Turn) []unifiedllm.Message {
	var out []unifiedllm.Message
	for _, t := range history {
		out = append(out, t.messages()...)
	}
	return out
}

func resultContent(r unifiedllm.ToolResult) string {
	switch c := r.Content.(type) {
	case string:
		return c
	case nil:
		return ""
	default:
		b, err := json.Marshal(c)
		if err != nil {
			return fmt.Sprint(c)
		}
		return string(b)
	}
}
