package audio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Fetcher loads the raw bytes behind a clip or catalog location.
type Fetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// SourceFetcher reads http(s) locations through an HTTP client and anything
// else from the local filesystem.
type SourceFetcher struct {
	client *http.Client
}

// NewSourceFetcher creates a fetcher whose HTTP requests give up after timeout.
// A zero timeout means no limit.
func NewSourceFetcher(timeout time.Duration) *SourceFetcher {
	return &SourceFetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch returns the bytes at location. Every failure is a *FetchError.
func (f *SourceFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	if IsRemote(location) {
		return f.fetchHTTP(ctx, location)
	}

	data, err := os.ReadFile(location)
	if err != nil {
		return nil, &FetchError{Path: location, Err: err}
	}
	return data, nil
}

func (f *SourceFetcher) fetchHTTP(ctx context.Context, location string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, &FetchError{Path: location, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{Path: location, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{
			Path:       location,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Path: location, Err: fmt.Errorf("failed to read body: %w", err)}
	}
	return data, nil
}

// IsRemote reports whether location is an http or https URL.
func IsRemote(location string) bool {
	lower := strings.ToLower(location)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// JoinLocation appends a clip source to the catalog base path, keeping URLs as URLs.
func JoinLocation(base, src string) string {
	if base == "" || IsRemote(src) || filepath.IsAbs(src) {
		return src
	}
	if IsRemote(base) {
		joined, err := url.JoinPath(base, src)
		if err != nil {
			return strings.TrimSuffix(base, "/") + "/" + src
		}
		return joined
	}
	return filepath.Join(base, src)
}
