// Package api provides the NotebookLM API client.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/tmc/nbdl/internal/batchexecute"
	"github.com/tmc/nbdl/internal/rpc"
)

// Credentials authenticate requests against the NotebookLM frontend.
type Credentials struct {
	AuthToken string // the SNlM0e "at" token
	Cookies   string // Cookie header captured from a signed-in browser
}

// Client handles NotebookLM API interactions.
type Client struct {
	rpc     *rpc.Client
	http    *http.Client // RPCs, bounded by the configured timeout
	media   *http.Client // downloads, bounded only by the context
	cookies string
	logger  *slog.Logger
}

type options struct {
	host       string
	useHTTP    bool
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*options)

// WithBaseURL points the client at a different frontend, such as a local
// test server. An http:// URL disables TLS.
func WithBaseURL(raw string) Option {
	return func(o *options) {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			return
		}
		o.host = u.Host
		o.useHTTP = u.Scheme == "http"
	}
}

// WithHTTPClient sets the HTTP client used for RPCs and media downloads.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithTimeout bounds each RPC. Media downloads are only bounded by the
// time to the response headers, so a large file may take longer.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithLogger sets the logger used for debug diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New creates a new NotebookLM API client.
func New(creds Credentials, opts ...Option) *Client {
	o := options{
		host:   rpc.DefaultHost,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&o)
	}
	base := o.httpClient
	if base == nil {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.ResponseHeaderTimeout = o.timeout
		base = &http.Client{Transport: t}
	}
	rpcHTTP, media := *base, *base
	if o.timeout > 0 {
		rpcHTTP.Timeout = o.timeout
	}
	media.Timeout = 0

	cfg := rpc.Config(o.host, creds.AuthToken, creds.Cookies)
	cfg.UseHTTP = o.useHTTP
	return &Client{
		rpc: rpc.NewWithConfig(cfg,
			batchexecute.WithHTTPClient(&rpcHTTP),
			batchexecute.WithLogger(o.logger),
		),
		http:    &rpcHTTP,
		media:   &media,
		cookies: creds.Cookies,
		logger:  o.logger,
	}
}

// Close releases idle connections held by the client.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	c.media.CloseIdleConnections()
	return nil
}

// call executes an RPC and decodes its positional payload.
func (c *Client) call(ctx context.Context, call rpc.Call) (any, error) {
	raw, err := c.rpc.Do(ctx, call)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	v, err := decode(raw)
	if err != nil {
		c.logger.DebugContext(ctx, "undecodable payload", "rpc", call.ID, "payload", string(raw))
		return nil, fmt.Errorf("parse %s response: %w", call.ID, err)
	}
	return v, nil
}

// skipped records a payload entry the parsers could not interpret.
func (c *Client) skipped(ctx context.Context, what string, entry any) {
	if c.logger.Enabled(ctx, slog.LevelDebug) {
		c.logger.DebugContext(ctx, "skipping unrecognised entry", "kind", what, "entry", spew.Sdump(entry))
	}
}

// ListNotebooks returns the notebooks visible to the signed-in account.
func (c *Client) ListNotebooks(ctx context.Context) ([]Notebook, error) {
	v, err := c.call(ctx, rpc.Call{
		ID:   rpc.RPCListRecentlyViewedProjects,
		Args: []any{nil, 1, nil, []int{2}}, // Match web UI format: [null,1,null,[2]]
	})
	if err != nil {
		// An account without projects answers with status [16].
		var apiErr *batchexecute.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode != nil && apiErr.ErrorCode.Code == 16 {
			// Expired sessions can answer the same way.
			c.logger.DebugContext(ctx, "notebook list returned code 16, assuming no projects", "err", err)
			return []Notebook{}, nil
		}
		return nil, fmt.Errorf("list notebooks: %w", err)
	}
	notebooks := []Notebook{}
	for _, entry := range list(v, 0) {
		nb, ok := parseNotebook(entry)
		if !ok {
			c.skipped(ctx, "notebook", entry)
			continue
		}
		notebooks = append(notebooks, nb)
	}
	return notebooks, nil
}

// marshalIndent encodes v for writing to disk, leaving HTML characters
// unescaped.
func marshalIndent(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
