package chunking

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/storage"
)

// DefaultSignTTL is how long a signed download URL stays valid
const DefaultSignTTL = 10 * time.Minute

// Downloader fetches a stored video into memory through a time-limited
// signed URL
type Downloader struct {
	gateway storage.Gateway
	client  *http.Client
	signTTL time.Duration
}

// NewDownloader creates a Downloader. The client's timeout bounds the
// whole fetch; pass a client configured from the storage request timeout.
func NewDownloader(gateway storage.Gateway, client *http.Client) *Downloader {
	return &Downloader{
		gateway: gateway,
		client:  client,
		signTTL: DefaultSignTTL,
	}
}

// Download resolves a signed URL for the stored object and fetches it
// whole. Any failure along the way is reported as a DownloadError.
func (d *Downloader) Download(ctx context.Context, path string) ([]byte, error) {
	url, err := d.gateway.SignURL(ctx, path, d.signTTL)
	if err != nil {
		return nil, &DownloadError{Path: path, Err: fmt.Errorf("signing URL: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &DownloadError{Path: path, Err: err}
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, &DownloadError{Path: path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &DownloadError{Path: path, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &DownloadError{Path: path, Err: fmt.Errorf("reading body: %w", err)}
	}

	return data, nil
}
