package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tendant/drawing-thumbnailer/internal/failure"
)

// URLFetcher downloads source files referenced by URL.
type URLFetcher struct {
	client   *http.Client
	maxBytes int64
}

func NewURLFetcher(timeout time.Duration, maxBytes int64) *URLFetcher {
	if maxBytes <= 0 {
		maxBytes = 50 << 20
	}
	return &URLFetcher{client: &http.Client{Timeout: timeout}, maxBytes: maxBytes}
}

func (f *URLFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	const op = "fetch source url"

	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, failure.Errorf(failure.InvalidInput, op, "fileUrl must be an absolute http(s) URL")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, failure.New(failure.InvalidInput, op, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, failure.New(failure.UpstreamFetchError, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, failure.Errorf(failure.UpstreamFetchError, op, "%s returned %s", u.Host, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, failure.New(failure.UpstreamFetchError, op, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, failure.Errorf(failure.InvalidInput, op, "source exceeds %d bytes", f.maxBytes)
	}
	if len(data) == 0 {
		return nil, failure.New(failure.UpstreamFetchError, op, fmt.Errorf("empty response body"))
	}
	return data, nil
}
