// Package rpc issues NotebookLM RPCs over the batchexecute transport.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tmc/nbdl/internal/batchexecute"
)

// RPC endpoint IDs for the NotebookLM operations the exporter uses.
const (
	RPCListRecentlyViewedProjects = "wXbhsf" // ListRecentlyViewedProjects
	RPCGetProject                 = "rLM1Ne" // GetProject
	RPCLoadSource                 = "hizoJc" // LoadSource
	RPCGetNotes                   = "cFji9"  // GetNotes
	RPCListArtifacts              = "gArtLc" // ListArtifacts
	RPCGetInteractiveHTML         = "v9rmvd" // GetInteractiveHtml
)

// DefaultHost is the NotebookLM web frontend.
const DefaultHost = "notebooklm.google.com"

// Call represents a NotebookLM RPC call.
type Call struct {
	ID         string // RPC endpoint ID
	Args       []any  // Arguments for the call
	NotebookID string // Optional notebook ID for context
}

// Client handles NotebookLM RPC communication.
type Client struct {
	client *batchexecute.Client
}

// NewWithConfig creates a client from an explicit transport configuration.
func NewWithConfig(cfg batchexecute.Config, options ...batchexecute.Option) *Client {
	return &Client{client: batchexecute.NewClient(cfg, options...)}
}

// Config returns the transport configuration the NotebookLM frontend uses.
func Config(host, authToken, cookies string) batchexecute.Config {
	return batchexecute.Config{
		Host:      host,
		App:       "LabsTailwindUi",
		AuthToken: authToken,
		Cookies:   cookies,
		Headers: map[string]string{
			"origin":          "https://" + host,
			"referer":         "https://" + host + "/",
			"x-same-domain":   "1",
			"accept":          "*/*",
			"accept-language": "en-US,en;q=0.9",
			"cache-control":   "no-cache",
			"pragma":          "no-cache",
		},
		URLParams: map[string]string{
			"bl":    "boq_labs-tailwind-frontend_20250129.00_p0",
			"f.sid": "-7121977511756781186",
			"hl":    "en",
			"rt":    "c",
		},
	}
}

// Do executes a NotebookLM RPC call and returns its raw JSON payload.
func (c *Client) Do(ctx context.Context, call Call) (json.RawMessage, error) {
	sourcePath := "/"
	if call.NotebookID != "" {
		sourcePath = "/notebook/" + call.NotebookID
	}
	resp, err := c.client.Do(ctx, batchexecute.RPC{
		ID:        call.ID,
		Args:      call.Args,
		URLParams: map[string]string{"source-path": sourcePath},
	})
	if err != nil {
		return nil, fmt.Errorf("execute rpc %s: %w", call.ID, err)
	}
	return resp.Data, nil
}
