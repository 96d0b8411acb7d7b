package unifiedllm

import (
	"context"
	"fmt"
)

// ProviderAdapter turns a Request into a call on one vendor SDK.
type ProviderAdapter interface {
	Name() string
	Complete(ctx context.Context, req Request) (*Response, error)
}

// ToolChoiceSupporter is implemented by adapters that cannot honor every
// tool choice mode.
type ToolChoiceSupporter interface {
	SupportsToolChoice(mode string) bool
}

// checkToolChoice rejects a tool choice the adapter reports it cannot honor,
// before any network call is made.
func checkToolChoice(adapter ProviderAdapter, req Request) error {
	if req.ToolChoice == nil || req.ToolChoice.Mode == "" {
		return nil
	}
	s, ok := adapter.(ToolChoiceSupporter)
	if !ok || s.SupportsToolChoice(req.ToolChoice.Mode) {
		return nil
	}
	return &InvalidRequestError{ProviderError: ProviderError{
		SDKError: SDKError{Message: fmt.Sprintf("tool choice %q is not supported", req.ToolChoice.Mode)},
		Provider: adapter.Name(),
	}}
}
