package unifiedllm

import (
	"context"
	"fmt"
)

// Middleware wraps a completion call. next invokes the rest of the chain.
type Middleware func(ctx context.Context, req Request, next func(context.Context, Request) (*Response, error)) (*Response, error)

type completeFunc func(context.Context, Request) (*Response, error)

// Client routes requests to a provider adapter through a fixed middleware
// chain. It is immutable after NewClient and safe for concurrent use.
type Client struct {
	providers       map[string]ProviderAdapter
	defaultProvider string
	middleware      []Middleware
	chain           completeFunc
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithProvider registers adapter under name.
func WithProvider(name string, adapter ProviderAdapter) ClientOption {
	return func(c *Client) { c.providers[name] = adapter }
}

// WithDefaultProvider names the adapter used when a request has no provider.
func WithDefaultProvider(name string) ClientOption {
	return func(c *Client) { c.defaultProvider = name }
}

// WithMiddleware appends middleware. The first one registered is outermost.
func WithMiddleware(mw ...Middleware) ClientOption {
	return func(c *Client) { c.middleware = append(c.middleware, mw...) }
}

// NewClient builds a Client. A single registered provider becomes the
// default.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{providers: make(map[string]ProviderAdapter)}
	for _, opt := range opts {
		opt(c)
	}
	if c.defaultProvider == "" && len(c.providers) == 1 {
		for name := range c.providers {
			c.defaultProvider = name
		}
	}

	chain := completeFunc(c.dispatch)
	for i := len(c.middleware) - 1; i >= 0; i-- {
		mw, next := c.middleware[i], chain
		chain = func(ctx context.Context, r Request) (*Response, error) {
			return mw(ctx, r, next)
		}
	}
	c.chain = chain
	return c
}

// Complete sends req through the middleware chain. Aliased model names are
// resolved through the catalog before any middleware sees the request.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	adapter, err := c.adapterFor(req)
	if err != nil {
		return nil, err
	}
	req.Provider = adapter.Name()
	req.Model = ResolveModel(req.Model)
	if err := checkToolChoice(adapter, req); err != nil {
		return nil, err
	}
	return c.chain(ctx, req)
}

// dispatch is the innermost handler.
func (c *Client) dispatch(ctx context.Context, req Request) (*Response, error) {
	adapter, err := c.adapterFor(req)
	if err != nil {
		return nil, err
	}
	return adapter.Complete(ctx, req)
}

func (c *Client) adapterFor(req Request) (ProviderAdapter, error) {
	name := req.Provider
	if name == "" {
		name = c.defaultProvider
	}
	if name == "" {
		if info := GetModelInfo(req.Model); info != nil {
			name = info.Provider
		}
	}
	if name == "" {
		return nil, &ConfigurationError{SDKError: SDKError{
			Message: "no provider specified and no default provider configured",
		}}
	}
	if adapter, ok := c.providers[name]; ok {
		return adapter, nil
	}
	// Adapters may be registered under an alias of their own name.
	for _, adapter := range c.providers {
		if adapter.Name() == name {
			return adapter, nil
		}
	}
	return nil, &ConfigurationError{SDKError: SDKError{
		Message: fmt.Sprintf("provider %q is not registered", name),
	}}
}
