package render

import (
	"context"
	"fmt"
	"image"
	"net/http"
	"time"

	"github.com/disintegration/imaging"
)

// Fetcher retrieves an album cover by URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (image.Image, error)
}

// HTTPFetcher fetches covers over HTTP.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher creates a fetcher with a bounded request timeout.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Fetch downloads and decodes a cover image.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching cover: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching cover: status %d", resp.StatusCode)
	}

	img, err := imaging.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decoding cover: %w", err)
	}
	return img, nil
}
