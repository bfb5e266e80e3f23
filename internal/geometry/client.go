// Package geometry provides the client for the geometry service, which
// turns an encoded furniture structure into a renderable 3D asset and a
// CNC cut file.
package geometry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrGenerationFailed is returned when the geometry service rejects a
// generation request.
var ErrGenerationFailed = errors.New("geometry generation failed")

// GenerateRequest describes the structure to render. Generation is an
// opaque session token echoed back in the result so callers can discard
// responses from superseded edits.
type GenerateRequest struct {
	Prompt     string `json:"prompt"`
	FinishKey  string `json:"finish_key"`
	SampleHex  string `json:"sample_hex,omitempty"`
	Generation uint64 `json:"generation"`
}

// GenerateResult carries the produced asset links.
type GenerateResult struct {
	AssetURL   string `json:"asset_url"`
	CutFileURL string `json:"cut_file_url"`
	Generation uint64 `json:"generation"`
}

// Client calls the geometry service over HTTP.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a geometry client. The url is the base URL of the
// geometry service (e.g. "https://geometry.internal:9090").
func NewClient(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(url, "/"),
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        16,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     30 * time.Second,
			},
		},
	}
}

// Generate renders the given structure. The call blocks until the
// service responds or ctx is done.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("geometry url not configured")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode generate request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to reach geometry service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrGenerationFailed,
			resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var result GenerateResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode generate response: %w", err)
	}
	return &result, nil
}

// Ping checks that the geometry service is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c.baseURL == "" {
		return fmt.Errorf("geometry url not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach geometry service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("geometry service unhealthy: unexpected status code %d", resp.StatusCode)
	}
	return nil
}
