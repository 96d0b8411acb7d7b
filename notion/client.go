// Package notion is a small client for the parts of the Notion REST API the
// agent reads from and writes to.
package notion

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/martinemde/notionagent/richtext"
)

const (
	DefaultBaseURL = "https://api.notion.com"
	DefaultVersion = "2022-06-28"
)

// Client issues authenticated requests against the Notion API.
type Client struct {
	http   *resty.Client
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*clientConfig)

type clientConfig struct {
	baseURL string
	version string
	timeout time.Duration
	retries int
	logger  *slog.Logger
}

// WithBaseURL overrides the API host.
func WithBaseURL(url string) Option {
	return func(c *clientConfig) { c.baseURL = strings.TrimRight(url, "/") }
}

// WithVersion sets the Notion-Version header.
func WithVersion(v string) Option {
	return func(c *clientConfig) { c.version = v }
}

// WithTimeout bounds every HTTP request.
func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) { c.timeout = d }
}

// WithRetries sets how many times failed reads are retried. Writes are never
// retried.
func WithRetries(n int) Option {
	return func(c *clientConfig) { c.retries = n }
}

// WithLogger sets the diagnostics logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *clientConfig) { c.logger = l }
}

// NewClient creates a Client. apiKey may be given with or without the
// "Bearer " prefix.
func NewClient(apiKey string, opts ...Option) *Client {
	cfg := &clientConfig{
		baseURL: DefaultBaseURL,
		version: DefaultVersion,
		timeout: 30 * time.Second,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	auth := strings.TrimSpace(apiKey)
	if !strings.HasPrefix(auth, "Bearer ") {
		auth = "Bearer " + auth
	}

	rc := resty.New().
		SetBaseURL(cfg.baseURL).
		SetTimeout(cfg.timeout).
		SetHeader("Authorization", auth).
		SetHeader("Notion-Version", cfg.version).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetRetryCount(cfg.retries).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if r == nil || r.Request == nil || r.Request.Method == http.MethodPatch {
				return false
			}
			return err != nil || r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
		})

	return &Client{http: rc, logger: cfg.logger}
}

func (c *Client) do(req *resty.Request, method, path string) ([]byte, error) {
	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("notion %s %s: %w", method, path, err)
	}
	if resp.IsError() {
		return nil, newAPIError(resp.StatusCode(), resp.Body())
	}
	return resp.Body(), nil
}

// Search runs POST /v1/search sorted by last edit, newest first. An empty
// keyword lists everything of the requested type.
func (c *Client) Search(ctx context.Context, q SearchQuery) ([]SearchResult, error) {
	body := searchRequest{
		Query:    q.Keyword,
		Sort:     newestFirst(),
		PageSize: clampLimit(q.Limit),
	}
	if q.ObjectType != "" {
		body.Filter = &objectFilter{Value: string(q.ObjectType), Property: "object"}
	}

	raw, err := c.do(c.http.R().SetContext(ctx).SetBody(body), http.MethodPost, "/v1/search")
	if err != nil {
		return nil, err
	}

	results := []SearchResult{}
	gjson.GetBytes(raw, "results").ForEach(func(_, item gjson.Result) bool {
		results = append(results, SearchResult{
			ID:             item.Get("id").String(),
			Title:          extractTitle(item),
			Type:           item.Get("object").String(),
			LastEditedTime: item.Get("last_edited_time").String(),
		})
		return true
	})
	return results, nil
}

// RecentlyEdited returns up to pageSize object ids, newest edit first.
func (c *Client) RecentlyEdited(ctx context.Context, pageSize int) ([]string, error) {
	body := searchRequest{Sort: newestFirst(), PageSize: clampLimit(pageSize)}
	raw, err := c.do(c.http.R().SetContext(ctx).SetBody(body), http.MethodPost, "/v1/search")
	if err != nil {
		return nil, err
	}
	ids := []string{}
	for _, id := range gjson.GetBytes(raw, "results.#.id").Array() {
		ids = append(ids, id.String())
	}
	return ids, nil
}

// Page returns the raw page object from GET /v1/pages/{id}.
func (c *Client) Page(ctx context.Context, pageID string) (map[string]any, error) {
	raw, err := c.do(c.http.R().SetContext(ctx).SetPathParam("id", pageID), http.MethodGet, "/v1/pages/{id}")
	if err != nil {
		return nil, err
	}
	var page map[string]any
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("decode page %s: %w", pageID, err)
	}
	return page, nil
}

// Children lists the child blocks of blockID, following pagination. With
// recursive set, blocks whose has_children is true get their own children
// under a "children" key.
func (c *Client) Children(ctx context.Context, blockID string, recursive bool) ([]Block, error) {
	var blocks []Block
	cursor := ""
	for {
		req := c.http.R().SetContext(ctx).
			SetPathParam("id", blockID).
			SetQueryParam("page_size", fmt.Sprint(maxPageSize))
		if cursor != "" {
			req.SetQueryParam("start_cursor", cursor)
		}
		raw, err := c.do(req, http.MethodGet, "/v1/blocks/{id}/children")
		if err != nil {
			return nil, err
		}
		var page childrenPage
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, fmt.Errorf("decode children of %s: %w", blockID, err)
		}
		blocks = append(blocks, page.Results...)
		if !page.HasMore || page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	if recursive {
		for _, b := range blocks {
			if has, _ := b["has_children"].(bool); !has {
				continue
			}
			id, _ := b["id"].(string)
			children, err := c.Children(ctx, id, true)
			if err != nil {
				return nil, err
			}
			b["children"] = children
		}
	}
	return blocks, nil
}

// UpdateCallout replaces the rich text of a callout block with segments.
func (c *Client) UpdateCallout(ctx context.Context, blockID string, segments []richtext.Segment) error {
	if segments == nil {
		segments = []richtext.Segment{}
	}
	body := calloutUpdate{Callout: calloutBody{RichText: segments}}
	c.logger.Info("writing callout", slog.String("block_id", blockID), slog.Int("elements", len(segments)))

	resp, err := c.http.R().SetContext(ctx).
		SetPathParam("id", blockID).
		SetBody(body).
		Patch("/v1/blocks/{id}")
	if err != nil {
		return fmt.Errorf("notion PATCH block %s: %w", blockID, err)
	}
	c.logger.Info("callout write response", slog.String("block_id", blockID), slog.Int("status", resp.StatusCode()))
	if resp.IsError() {
		return newAPIError(resp.StatusCode(), resp.Body())
	}
	return nil
}

// extractTitle reads a page title from its title-typed property, or a
// database title from its top-level title array.
func extractTitle(item gjson.Result) string {
	if item.Get("object").String() == "database" {
		return item.Get("title.0.plain_text").String()
	}
	title := ""
	item.Get("properties").ForEach(func(_, prop gjson.Result) bool {
		if prop.Get("type").String() == "title" {
			title = prop.Get("title.0.plain_text").String()
			return false
		}
		return true
	})
	return title
}

func clampLimit(n int) int {
	switch {
	case n <= 0:
		return defaultSearchLimit
	case n > maxPageSize:
		return maxPageSize
	default:
		return n
	}
}
