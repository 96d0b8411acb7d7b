package main

import (
	"github.com/martinemde/notionagent/config"
	"github.com/martinemde/notionagent/unifiedllm"
)

// newAdapter picks the native SDK adapter for openai and anthropic and falls
// back to gollm for every other provider.
func newAdapter(cfg config.LLMConfig) (unifiedllm.ProviderAdapter, error) {
	switch cfg.Provider {
	case "openai":
		var opts []unifiedllm.OpenAIOption
		if cfg.BaseURL != "" {
			opts = append(opts, unifiedllm.WithOpenAIBaseURL(cfg.BaseURL))
		}
		if cfg.Model != "" {
			opts = append(opts, unifiedllm.WithOpenAIModel(cfg.Model))
		}
		return unifiedllm.NewOpenAIAdapter(cfg.APIKey, opts...), nil
	case "anthropic":
		var opts []unifiedllm.AnthropicOption
		if cfg.BaseURL != "" {
			opts = append(opts, unifiedllm.WithAnthropicBaseURL(cfg.BaseURL))
		}
		if cfg.Model != "" {
			opts = append(opts, unifiedllm.WithAnthropicModel(cfg.Model))
		}
		return unifiedllm.NewAnthropicAdapter(cfg.APIKey, opts...), nil
	default:
		var opts []unifiedllm.GollmAdapterOption
		if cfg.Model != "" {
			opts = append(opts, unifiedllm.WithModel(cfg.Model))
		}
		return unifiedllm.NewGollmAdapter(cfg.Provider, cfg.APIKey, opts...)
	}
}
