// Package rasterize converts rendered HTML into the final PDF artifact by
// calling a headless-chromium render service over HTTP.
package rasterize

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Rasterizer produces the binary artifact for a rendered document body.
type Rasterizer interface {
	Produce(ctx context.Context, content string) ([]byte, error)
}

// Options configures the chromium render service client.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
}

// ChromiumClient posts HTML to the render service and returns the PDF
// bytes. Construct one per process; the HTTP client pools connections.
type ChromiumClient struct {
	baseURL    string
	httpClient *http.Client
}

const pdfMagic = "%PDF"

// NewChromiumClient constructs a client for the render service at BaseURL.
func NewChromiumClient(opts Options) (*ChromiumClient, error) {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		return nil, fmt.Errorf("rasterize: base url required")
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 90 * time.Second}
	}
	return &ChromiumClient{baseURL: baseURL, httpClient: client}, nil
}

// Produce renders content into a PDF. An empty or non-PDF response is an
// error so the retry policy upstream can take over.
func (c *ChromiumClient) Produce(ctx context.Context, content string) ([]byte, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("rasterize: empty content")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/render/pdf", strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/html; charset=utf-8")
	req.Header.Set("Accept", "application/pdf")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("invoke render service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if len(data) > 0 {
			return nil, fmt.Errorf("rasterize status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		}
		return nil, fmt.Errorf("rasterize status %d", resp.StatusCode)
	}

	pdf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if !bytes.HasPrefix(pdf, []byte(pdfMagic)) {
		return nil, fmt.Errorf("rasterize: response is not a PDF (%d bytes)", len(pdf))
	}
	return pdf, nil
}

var _ Rasterizer = (*ChromiumClient)(nil)
