package agentloop

import (
	"context"
	"fmt"

	"github.com/martinemde/notionagent/notion"
	"github.com/martinemde/notionagent/richtext"
)

// DocumentService abstracts the workspace the read tools query.
// *notion.Workspace satisfies it.
type DocumentService interface {
	Search(ctx context.Context, q notion.SearchQuery) ([]notion.SearchResult, error)
	RecentChanges(ctx context.Context, count int) ([]string, error)
	PageProperties(ctx context.Context, pageID string) (map[string]any, error)
	Children(ctx context.Context, blockID string, recursive bool) ([]notion.Block, error)
}

// AppendAck is returned to the model after a build tool appends a segment.
type AppendAck struct {
	Status       string `json:"status"`
	Message      string `json:"message"`
	CurrentCount int    `json:"current_count"`
}

// FinishAck is returned to the model after finish_rich_text.
type FinishAck struct {
	Status       string `json:"status"`
	Message      string `json:"message"`
	ElementCount int    `json:"element_count"`
}

// Toolbox executes decoded invocations against the document service and the
// session buffer. One Toolbox belongs to one session.
type Toolbox struct {
	docs     DocumentService
	buffer   *richtext.Buffer
	finished []richtext.Segment
	called   bool
}

// NewToolbox creates a Toolbox writing into buffer.
func NewToolbox(docs DocumentService, buffer *richtext.Buffer) *Toolbox {
	return &Toolbox{docs: docs, buffer: buffer}
}

// Reset clears the buffer and forgets any earlier finish snapshot.
func (t *Toolbox) Reset() {
	t.buffer.Clear()
	t.finished = nil
	t.called = false
}

// Finished returns the snapshot taken by the last finish_rich_text call and
// whether finish was called at all.
func (t *Toolbox) Finished() ([]richtext.Segment, bool) {
	return t.finished, t.called
}

// Pending returns the number of segments currently in the buffer.
func (t *Toolbox) Pending() int {
	return t.buffer.Len()
}

// Execute runs one invocation. The returned value is JSON-encoded into the
// tool result by the caller.
func (t *Toolbox) Execute(ctx context.Context, inv Invocation) (any, error) {
	switch inv := inv.(type) {
	case SearchPages:
		return t.docs.Search(ctx, notion.SearchQuery{
			Keyword:    inv.Keyword,
			ObjectType: notion.ObjectType(inv.ObjectType),
			Limit:      inv.Limit,
		})
	case RecentPages:
		return t.docs.RecentChanges(ctx, inv.PageSize)
	case PageProperties:
		return t.docs.PageProperties(ctx, inv.PageID)
	case GetBlocks:
		return t.docs.Children(ctx, inv.BlockID, inv.Recursive)
	case AppendText:
		n := t.buffer.AppendText(inv.Content, inv.Bold)
		return AppendAck{
			Status:       "success",
			Message:      fmt.Sprintf("Text added. Buffer now has %d elements", n),
			CurrentCount: n,
		}, nil
	case AppendPageMention:
		n := t.buffer.AppendPageMention(inv.PageID)
		return AppendAck{
			Status:       "success",
			Message:      fmt.Sprintf("Page mention added. Buffer now has %d elements", n),
			CurrentCount: n,
		}, nil
	case FinishRichText:
		segments, n := t.buffer.Finish()
		t.finished = segments
		t.called = true
		return FinishAck{
			Status:       "finished",
			Message:      fmt.Sprintf("Rich text construction finished with %d elements", n),
			ElementCount: n,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, inv.Tool())
	}
}
