// Package batchexecute implements the Google batchexecute RPC envelope used
// by NotebookLM's web frontend.
package batchexecute

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ErrUnauthorized represent an unauthorized request.
var ErrUnauthorized = errors.New("unauthorized")

// RPC represents a single RPC call.
type RPC struct {
	ID        string            // RPC endpoint ID
	Args      []any             // Arguments for the call
	URLParams map[string]string // Request-specific URL parameters
}

// Response represents a decoded RPC response.
type Response struct {
	Index int             `json:"index"`
	ID    string          `json:"id"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

// HTTPError is returned when the endpoint answers with a non-200 status.
type HTTPError struct {
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("batchexecute: request failed: %s", e.Status)
}

func (e *HTTPError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// Config holds the configuration for batch execute.
type Config struct {
	Host      string
	App       string
	AuthToken string
	Cookies   string
	Headers   map[string]string
	URLParams map[string]string
	UseHTTP   bool
}

// Client handles batchexecute operations. It issues exactly one HTTP
// request per call; failed requests are returned to the caller as-is.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *slog.Logger
	reqid      *ReqIDGenerator
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithLogger routes request and response diagnostics to l at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithReqIDGenerator sets the request ID generator.
func WithReqIDGenerator(reqid *ReqIDGenerator) Option {
	return func(c *Client) {
		c.reqid = reqid
	}
}

// NewClient creates a new batchexecute client.
func NewClient(config Config, opts ...Option) *Client {
	c := &Client{
		config:     config,
		httpClient: http.DefaultClient,
		logger:     slog.New(slog.DiscardHandler),
		reqid:      NewReqIDGenerator(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do executes a single RPC call.
func (c *Client) Do(ctx context.Context, rpc RPC) (*Response, error) {
	return c.Execute(ctx, []RPC{rpc})
}

// Execute performs the batch execute request and returns the first
// decoded response.
func (c *Client) Execute(ctx context.Context, rpcs []RPC) (*Response, error) {
	if len(rpcs) == 0 {
		return nil, errors.New("batchexecute: no rpcs")
	}
	u, err := c.endpoint(rpcs)
	if err != nil {
		return nil, err
	}

	var envelope []any
	for _, rpc := range rpcs {
		envelope = append(envelope, buildRPCData(rpc))
	}
	reqBody, err := json.Marshal([]any{envelope})
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}

	form := url.Values{}
	form.Set("f.req", string(reqBody))
	form.Set("at", c.config.AuthToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("content-type", "application/x-www-form-urlencoded;charset=UTF-8")
	for k, v := range c.config.Headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("cookie", c.config.Cookies)

	c.logger.DebugContext(ctx, "batchexecute request",
		"url", u.String(),
		"rpc", rpcs[0].ID,
		"at", maskSensitiveValue(c.config.AuthToken),
		"cookie", maskCookieValues(c.config.Cookies),
		"f.req", string(reqBody))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	c.logger.DebugContext(ctx, "batchexecute response",
		"rpc", rpcs[0].ID,
		"status", resp.Status,
		"bytes", len(body))

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	responses, err := decodeResponse(string(body))
	if err != nil {
		var errorResp struct {
			Error string `json:"error"`
		}
		if jerr := json.Unmarshal(body, &errorResp); jerr == nil && errorResp.Error != "" {
			return nil, fmt.Errorf("server error: %s", errorResp.Error)
		}
		c.logger.DebugContext(ctx, "undecodable response", "body", string(body))
		return nil, fmt.Errorf("decode response: %w", err)
	}

	first := &responses[0]
	if apiErr, isError := IsErrorResponse(first); isError {
		return nil, apiErr
	}
	return first, nil
}

func (c *Client) endpoint(rpcs []RPC) (*url.URL, error) {
	u, err := url.Parse(fmt.Sprintf("https://%s/_/%s/data/batchexecute", c.config.Host, c.config.App))
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if c.config.UseHTTP {
		u.Scheme = "http"
	}
	ids := make([]string, 0, len(rpcs))
	for _, rpc := range rpcs {
		ids = append(ids, rpc.ID)
	}
	q := u.Query()
	q.Set("rpcids", strings.Join(ids, ","))
	for k, v := range c.config.URLParams {
		q.Set(k, v)
	}
	for k, v := range rpcs[0].URLParams {
		q.Set(k, v)
	}
	q.Set("_reqid", c.reqid.Next())
	u.RawQuery = q.Encode()
	return u, nil
}

func buildRPCData(rpc RPC) []any {
	argsJSON, _ := json.Marshal(rpc.Args)
	return []any{rpc.ID, string(argsJSON), nil, "generic"}
}

// decodeResponse decodes the batchexecute response body.
func decodeResponse(raw string) ([]Response, error) {
	raw = strings.TrimSpace(strings.TrimPrefix(raw, ")]}'"))
	if raw == "" {
		return nil, errors.New("empty response after trimming prefix")
	}
	if isDigit(rune(raw[0])) {
		return parseChunkedResponse(strings.NewReader(raw))
	}

	var envelopes [][]any
	if err := json.Unmarshal([]byte(raw), &envelopes); err != nil {
		var single []any
		if serr := json.Unmarshal([]byte(raw), &single); serr != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		envelopes = [][]any{single}
	}
	result := extractResponses(envelopes)
	if len(result) == 0 {
		return nil, errors.New("no valid responses found")
	}
	return result, nil
}

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}

// maskSensitiveValue masks sensitive values like tokens for debug output.
func maskSensitiveValue(value string) string {
	switch {
	case len(value) <= 8:
		return strings.Repeat("*", len(value))
	case len(value) <= 16:
		return value[:2] + strings.Repeat("*", len(value)-4) + value[len(value)-2:]
	default:
		return value[:3] + strings.Repeat("*", len(value)-6) + value[len(value)-3:]
	}
}

// maskCookieValues masks cookie values in a cookie header for debug output.
func maskCookieValues(cookies string) string {
	if cookies == "" {
		return ""
	}
	var masked []string
	for _, part := range strings.Split(cookies, ";") {
		part = strings.TrimSpace(part)
		if name, value, found := strings.Cut(part, "="); found {
			masked = append(masked, name+"="+maskSensitiveValue(value))
		} else {
			masked = append(masked, part)
		}
	}
	return strings.Join(masked, "; ")
}

// ReqIDGenerator generates sequential request IDs.
type ReqIDGenerator struct {
	mu       sync.Mutex
	base     int // initial 4-digit number
	sequence int
}

// NewReqIDGenerator creates a new request ID generator with a random base.
func NewReqIDGenerator() *ReqIDGenerator {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	return NewReqIDGeneratorFrom(r.Intn(9000) + 1000)
}

// NewReqIDGeneratorFrom creates a request ID generator starting at base.
func NewReqIDGeneratorFrom(base int) *ReqIDGenerator {
	return &ReqIDGenerator{base: base}
}

// Next returns the next request ID in sequence.
func (g *ReqIDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	reqid := g.base + g.sequence*100000
	g.sequence++
	return strconv.Itoa(reqid)
}

// Reset resets the sequence counter but keeps the same base.
func (g *ReqIDGenerator) Reset() {
	g.mu.Lock()
	g.sequence = 0
	g.mu.Unlock()
}
