package api

import (
	"context"
	"fmt"

	"github.com/tmc/nbdl/internal/rpc"
)

// listNoteItems fetches notes and mind maps, which share one RPC.
func (c *Client) listNoteItems(ctx context.Context, notebookID string) ([]noteItem, error) {
	v, err := c.call(ctx, rpc.Call{
		ID:         rpc.RPCGetNotes,
		Args:       []any{notebookID},
		NotebookID: notebookID,
	})
	if err != nil {
		return nil, err
	}
	var items []noteItem
	for _, entry := range list(v, 0) {
		item, ok := parseNoteItem(entry)
		if !ok {
			continue // deleted
		}
		items = append(items, item)
	}
	return items, nil
}

// ListNotes returns the text notes of a notebook. Mind maps are reported
// by ListArtifacts instead.
func (c *Client) ListNotes(ctx context.Context, notebookID string) ([]Note, error) {
	items, err := c.listNoteItems(ctx, notebookID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	var notes []Note
	for _, it := range items {
		if it.isMindMap() {
			continue
		}
		notes = append(notes, Note{
			ID:        it.ID,
			Title:     it.Title,
			Content:   it.Content,
			CreatedAt: it.CreatedAt,
		})
	}
	return notes, nil
}
