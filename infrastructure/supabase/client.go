package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/storage"
)

// Client implements storage.Gateway against the Supabase Storage HTTP API
type Client struct {
	baseURL    string
	bucket     string
	serviceKey string
	httpClient *http.Client
}

// ClientOption is a functional option for configuring Client
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client (for testing and timeouts)
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// NewClient creates a new Supabase storage client. projectURL is the
// project base URL (https://xyz.supabase.co) and bucket must already exist.
func NewClient(projectURL, serviceKey, bucket string, opts ...ClientOption) (*Client, error) {
	if projectURL == "" {
		return nil, fmt.Errorf("supabase project URL is required")
	}
	if serviceKey == "" {
		return nil, fmt.Errorf("supabase service key is required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}

	c := &Client{
		baseURL:    strings.TrimSuffix(projectURL, "/") + "/storage/v1",
		bucket:     bucket,
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// SignURL implements storage.Gateway. The returned URL embeds a token
// valid for ttl and can be fetched without further authentication.
func (c *Client) SignURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	payload, err := json.Marshal(map[string]int{"expiresIn": int(ttl.Seconds())})
	if err != nil {
		return "", fmt.Errorf("encoding sign request: %w", err)
	}

	url := fmt.Sprintf("%s/object/sign/%s/%s", c.baseURL, c.bucket, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req, "sign "+path)
	if err != nil {
		return "", err
	}

	var out struct {
		SignedURL string `json:"signedURL"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decoding sign response: %w", err)
	}
	if out.SignedURL == "" {
		return "", fmt.Errorf("sign response for %q carried no URL", path)
	}

	// The API returns a path below /storage/v1
	return c.baseURL + out.SignedURL, nil
}

// Download implements storage.Gateway
func (c *Client) Download(ctx context.Context, path string) ([]byte, error) {
	url := fmt.Sprintf("%s/object/%s/%s", c.baseURL, c.bucket, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	return c.do(req, "download "+path)
}

// Upload implements storage.Gateway
func (c *Client) Upload(ctx context.Context, path string, data []byte, opts storage.UploadOptions) error {
	url := fmt.Sprintf("%s/object/%s/%s", c.baseURL, c.bucket, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}

	contentType := opts.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", strconv.FormatBool(opts.Upsert))
	if opts.CacheControl != "" {
		req.Header.Set("cache-control", "max-age="+opts.CacheControl)
	}

	_, err = c.do(req, "upload "+path)
	return err
}

// List implements storage.Gateway. Returned names are relative to the
// listed prefix.
func (c *Client) List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	payload, err := json.Marshal(map[string]any{
		"prefix": prefix,
		"limit":  1000,
		"offset": 0,
		"sortBy": map[string]string{"column": "name", "order": "asc"},
	})
	if err != nil {
		return nil, fmt.Errorf("encoding list request: %w", err)
	}

	url := fmt.Sprintf("%s/object/list/%s", c.baseURL, c.bucket)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req, "list "+prefix)
	if err != nil {
		return nil, err
	}

	var entries []struct {
		Name      string    `json:"name"`
		UpdatedAt time.Time `json:"updated_at"`
		Metadata  struct {
			Size int64 `json:"size"`
		} `json:"metadata"`
	}
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("decoding list response: %w", err)
	}

	objects := make([]storage.ObjectInfo, 0, len(entries))
	for _, e := range entries {
		objects = append(objects, storage.ObjectInfo{
			Name:      e.Name,
			Size:      e.Metadata.Size,
			UpdatedAt: e.UpdatedAt,
		})
	}
	return objects, nil
}

// do authorizes and executes a request, returning the response body.
// Non-2xx statuses become errors carrying the API's message.
func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("supabase storage %s failed: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("supabase storage %s failed reading response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := strings.TrimSpace(string(body))
		if detail == "" {
			detail = resp.Status
		}
		return nil, fmt.Errorf("supabase storage %s failed: %s: %s", op, resp.Status, detail)
	}

	return body, nil
}

// Ensure Client implements storage.Gateway
var _ storage.Gateway = (*Client)(nil)
