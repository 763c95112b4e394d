// Package transcribe calls the external transcription service.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/transcription"
)

const defaultRequestTimeout = 60 * time.Second

// maxResponseBytes caps how much of a response body is read. Transcripts of
// long recordings run to a few hundred kilobytes; 16 MiB is comfortably above
// anything the service produces.
const maxResponseBytes = 16 << 20

// Client requests transcriptions from the external service over HTTP.
type Client struct {
	endpoint string
	client   *http.Client
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithHTTPClient overrides the default HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.client = httpClient
	}
}

// NewClient creates a transcription client for the given endpoint
func NewClient(endpoint string, opts ...ClientOption) (*Client, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("transcription endpoint is required")
	}

	client := &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: defaultRequestTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type transcribeRequest struct {
	ProjectID string `json:"projectId"`
}

type transcribeResponse struct {
	Success    bool   `json:"success"`
	Transcript string `json:"transcript"`
	Error      string `json:"error"`
}

// Request asks the service to transcribe a project's uploaded chunks
func (c *Client) Request(ctx context.Context, projectID string) (*transcription.Result, error) {
	if projectID == "" {
		return nil, fmt.Errorf("project id is required")
	}

	body, err := json.Marshal(transcribeRequest{ProjectID: projectID})
	if err != nil {
		return nil, fmt.Errorf("encode transcription request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build transcription request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send transcription request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read transcription response: %w", err)
	}

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("transcription service returned %s: %s", resp.Status, strings.TrimSpace(string(data)))
	}

	var parsed transcribeResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse transcription response: %w", err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("transcription failed: %s", parsed.Error)
	}
	if !parsed.Success {
		return nil, fmt.Errorf("transcription service reported failure without detail")
	}

	return &transcription.Result{Transcript: parsed.Transcript}, nil
}

var _ transcription.Requester = (*Client)(nil)
