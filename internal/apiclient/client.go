// Package apiclient talks to the upstream sales API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"
)

// Recorder receives one observation per upstream call.
type Recorder interface {
	ObserveUpstream(method, route string, status int, elapsed time.Duration)
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
	Metrics    Recorder
	// OnUnauthorized runs once for every 401 response, before the error is returned.
	OnUnauthorized func(ctx context.Context)
}

// Client is the single gateway to the upstream API.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	logger         *slog.Logger
	metrics        Recorder
	onUnauthorized func(ctx context.Context)
}

// New constructs a Client.
func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		httpClient:     httpClient,
		logger:         logger,
		metrics:        opts.Metrics,
		onUnauthorized: opts.OnUnauthorized,
	}
}

// Get issues a GET request and decodes the response into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

// Patch issues a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPatch, path, body, out)
}

// Delete issues a DELETE request. body may be nil.
func (c *Client) Delete(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodDelete, path, body, out)
}

// Do performs a JSON request. An empty or 204 response leaves out untouched.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("apiclient: encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("apiclient: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := TokenFrom(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	route := RouteTemplate(path)
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(method, route, 0, start)
		c.logger.Warn("upstream call failed", slog.String("method", method), slog.String("route", route), slog.Any("error", err))
		return fmt.Errorf("%w: %s %s: %w", ErrTransport, method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	c.observe(method, route, resp.StatusCode, start)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read %s %s: %w", ErrTransport, method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{Method: method, Path: path, Status: resp.StatusCode, Message: extractMessage(data)}
		if resp.StatusCode == http.StatusUnauthorized && c.onUnauthorized != nil {
			c.onUnauthorized(ctx)
		}
		c.logger.Debug("upstream error response", slog.String("method", method), slog.String("route", route), slog.Int("status", resp.StatusCode))
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("apiclient: decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) observe(method, route string, status int, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.ObserveUpstream(method, route, status, time.Since(start))
}

// RouteTemplate collapses identifier segments so metrics keep a bounded label set.
func RouteTemplate(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if looksLikeID(seg) {
			segments[i] = "{id}"
		}
	}
	return strings.Join(segments, "/")
}

func looksLikeID(seg string) bool {
	if seg == "" {
		return false
	}
	if len(seg) >= 20 {
		return true
	}
	for _, r := range seg {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// WithQuery appends non-empty query values to path.
func WithQuery(path string, values url.Values) string {
	for key, vals := range values {
		if len(vals) == 0 || vals[0] == "" {
			delete(values, key)
		}
	}
	if len(values) == 0 {
		return path
	}
	return path + "?" + values.Encode()
}

// Segment escapes a single path segment.
func Segment(s string) string {
	return url.PathEscape(s)
}
