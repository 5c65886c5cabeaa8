package api

import (
	"context"
	"fmt"

	"github.com/tmc/nbdl/internal/rpc"
)

// ListSources returns the sources of a notebook in display order.
func (c *Client) ListSources(ctx context.Context, notebookID string) ([]Source, error) {
	v, err := c.call(ctx, rpc.Call{
		ID:         rpc.RPCGetProject,
		Args:       []any{notebookID, nil, []int{2}, nil, 0},
		NotebookID: notebookID,
	})
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	if at(v, 0) == nil {
		return nil, &NotFoundError{ResourceType: "notebook", ID: notebookID}
	}
	var sources []Source
	for _, entry := range list(v, 0, 1) {
		s, ok := parseSource(entry)
		if !ok {
			c.skipped(ctx, "source", entry)
			continue
		}
		sources = append(sources, s)
	}
	return sources, nil
}

// SourceFulltext loads the indexed text of a source.
func (c *Client) SourceFulltext(ctx context.Context, notebookID, sourceID string) (Fulltext, error) {
	v, err := c.call(ctx, rpc.Call{
		ID:         rpc.RPCLoadSource,
		Args:       []any{[]string{sourceID}, []int{2}, []int{2}},
		NotebookID: notebookID,
	})
	if err != nil {
		return Fulltext{}, fmt.Errorf("load source %s: %w", sourceID, err)
	}
	if at(v, 0) == nil {
		return Fulltext{}, &NotFoundError{ResourceType: "source", ID: sourceID}
	}
	return parseFulltext(sourceID, v), nil
}
