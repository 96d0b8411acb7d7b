package notion

import (
	"context"
	"fmt"

	"github.com/martinemde/notionagent/config"
	"github.com/martinemde/notionagent/richtext"
)

// TargetStore supplies the persisted target identifiers.
type TargetStore interface {
	Load() (config.Targets, error)
}

// Workspace binds a Client to the target store: reads exclude the target
// page, and writes go to the target block.
type Workspace struct {
	client *Client
	store  TargetStore
}

// NewWorkspace returns a Workspace.
func NewWorkspace(client *Client, store TargetStore) *Workspace {
	return &Workspace{client: client, store: store}
}

// Search forwards to the client.
func (w *Workspace) Search(ctx context.Context, q SearchQuery) ([]SearchResult, error) {
	return w.client.Search(ctx, q)
}

// RecentChanges returns up to count recently edited ids, newest first,
// never including the target page itself. One extra result is requested so
// the exclusion does not shorten the list.
func (w *Workspace) RecentChanges(ctx context.Context, count int) ([]string, error) {
	if count <= 0 {
		return []string{}, nil
	}
	count = min(count, maxPageSize-1)
	targets, err := w.store.Load()
	if err != nil {
		return nil, err
	}
	ids, err := w.client.RecentlyEdited(ctx, count+1)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == targets.TargetPage {
			continue
		}
		out = append(out, id)
	}
	if len(out) > count {
		out = out[:count]
	}
	return out, nil
}

// PageProperties forwards to the client.
func (w *Workspace) PageProperties(ctx context.Context, pageID string) (map[string]any, error) {
	return w.client.Page(ctx, pageID)
}

// Children forwards to the client.
func (w *Workspace) Children(ctx context.Context, blockID string, recursive bool) ([]Block, error) {
	return w.client.Children(ctx, blockID, recursive)
}

// WriteTarget replaces the target block's callout text with segments.
func (w *Workspace) WriteTarget(ctx context.Context, segments []richtext.Segment) error {
	targets, err := w.store.Load()
	if err != nil {
		return err
	}
	if targets.TargetBlock == "" {
		return ErrNoTargetBlock
	}
	if err := w.client.UpdateCallout(ctx, targets.TargetBlock, segments); err != nil {
		return fmt.Errorf("write target block: %w", err)
	}
	return nil
}
