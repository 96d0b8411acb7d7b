package agentloop

import (
	"fmt"
	"strings"

	"github.com/martinemde/notionagent/unifiedllm"
)

const defaultContextWindow = 128000

// Profile describes the model a session talks to and the tools it offers.
type Profile struct {
	Provider      string
	Model         string
	ContextWindow int
	Registry      *ToolRegistry
}

// ProfileFor builds a Profile with the Notion tool set. An empty model falls
// back to the provider's catalog default, and the context window comes from
// the catalog when the model is known.
func ProfileFor(provider, model string) Profile {
	if model == "" {
		model = unifiedllm.DefaultModel(provider)
	}
	window := defaultContextWindow
	if info := unifiedllm.GetModelInfo(model); info != nil {
		model = info.ID
		if info.ContextWindow > 0 {
			window = info.ContextWindow
		}
		if provider == "" {
			provider = info.Provider
		}
	}
	return Profile{
		Provider:      provider,
		Model:         model,
		ContextWindow: window,
		Registry:      NewNotionToolRegistry(),
	}
}

// BuildSystemPrompt assembles the system instruction: base instructions,
// environment context, the tool list and any extra instructions.
func (p Profile) BuildSystemPrompt(extra string) string {
	var sb strings.Builder

	sb.WriteString(basePrompt)
	sb.WriteString("\n\n")

	sb.WriteString(BuildEnvironmentContext(p.Model))
	sb.WriteString("\n\n")

	sb.WriteString("# Available Tools\n\n")
	for _, def := range p.Registry.Definitions() {
		fmt.Fprintf(&sb, "## %s\n%s\n\n", def.Name, def.Description)
	}

	if extra != "" {
		sb.WriteString("# Additional Instructions\n\n")
		sb.WriteString(extra)
		sb.WriteString("\n\n")
	}

	return strings.TrimRight(sb.String(), "\n")
}
