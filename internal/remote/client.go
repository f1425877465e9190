// Package remote is the HTTP client for the photo library API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/basecamp/prismctl/internal/resilience"
)

// DefaultTimeout bounds a single request.
const DefaultTimeout = 30 * time.Second

// maxBody caps how much of a response is read.
const maxBody = 32 << 20

// Client talks to one library server.
type Client struct {
	base      *url.URL
	token     string
	userAgent string
	http      *http.Client
	gate      *resilience.Gate
	logger    zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithToken authenticates every request with a bearer token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithGate guards every request with g.
func WithGate(g *resilience.Gate) Option {
	return func(c *Client) { c.gate = g }
}

// WithLogger logs requests at debug level.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a client for the server at baseURL, e.g. https://photos.example.com.
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base URL %q: scheme must be http or https", baseURL)
	}
	c := &Client{
		base:      base,
		userAgent: "prismctl",
		http:      &http.Client{Timeout: DefaultTimeout},
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Host returns the server host, the key of its resilience state.
func (c *Client) Host() string { return c.base.Host }

// get fetches path under /api/v1 and returns the validated JSON body.
func (c *Client) get(ctx context.Context, path string, query url.Values) (gjson.Result, error) {
	return c.send(ctx, http.MethodGet, path, query, nil)
}

// post sends payload as JSON to path under /api/v1.
func (c *Client) post(ctx context.Context, path string, payload any) (gjson.Result, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("encode %s request: %w", path, err)
	}
	return c.send(ctx, http.MethodPost, path, nil, data)
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, payload []byte) (gjson.Result, error) {
	var body []byte
	fetch := func(ctx context.Context) error {
		var err error
		body, err = c.do(ctx, method, path, query, payload)
		return err
	}

	var err error
	if c.gate != nil {
		err = c.gate.Do(ctx, fetch)
	} else {
		err = fetch(ctx)
	}
	if err != nil {
		return gjson.Result{}, err
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("%s %s: invalid JSON response", method, path)
	}
	return gjson.ParseBytes(body), nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload []byte) ([]byte, error) {
	u := c.base.JoinPath("api", "v1", path)
	u.RawQuery = query.Encode()

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-Id", requestID)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("%s %s: read response: %w", method, path, err)
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Str("query", u.RawQuery).
		Str("request_id", requestID).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(started)).
		Msg("api request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(resp, body)
	}
	return body, nil
}
