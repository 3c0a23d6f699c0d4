// Package printing converts HTML documents to PDF through a Gotenberg service.
package printing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/ringmotos/ringpos/internal/platform/httpx"
)

// ErrRenderFailed is returned when Gotenberg cannot produce a document.
var ErrRenderFailed = fmt.Errorf("printing: render failed: %w", httpx.ErrBadGateway)

// Page describes paper size and margins in inches.
type Page struct {
	Width, Height           float64
	MarginTop, MarginBottom float64
	MarginLeft, MarginRight float64
}

// A4 is the default page for quotes.
var A4 = Page{Width: 8.27, Height: 11.7, MarginTop: 0.4, MarginBottom: 0.4, MarginLeft: 0.4, MarginRight: 0.4}

// Client wraps interactions with the Gotenberg API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a new client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Ping checks if the remote Gotenberg service is available.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("gotenberg returned status %d", resp.StatusCode)
	}
	return nil
}

// RenderHTML converts an HTML document into a PDF.
func (c *Client) RenderHTML(ctx context.Context, html string, page Page) ([]byte, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("files", "index.html")
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, strings.NewReader(html)); err != nil {
		return nil, err
	}
	fields := map[string]float64{
		"paperWidth":   page.Width,
		"paperHeight":  page.Height,
		"marginTop":    page.MarginTop,
		"marginBottom": page.MarginBottom,
		"marginLeft":   page.MarginLeft,
		"marginRight":  page.MarginRight,
	}
	for name, v := range fields {
		if v <= 0 {
			continue
		}
		if err := writer.WriteField(name, fmt.Sprintf("%g", v)); err != nil {
			return nil, err
		}
	}
	if err := writer.WriteField("printBackground", "true"); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/forms/chromium/convert/html", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Join(ErrRenderFailed, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: status %d", ErrRenderFailed, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
