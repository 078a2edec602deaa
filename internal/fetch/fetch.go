package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultTimeout bounds a single request.
	DefaultTimeout = 10 * time.Second

	// maxBodySize caps decoded response bodies.
	maxBodySize = 4 << 20 // 4 MB

	userAgent = "AssetWarden"
)

// ErrNotFound is returned when the server answers 404.
var ErrNotFound = errors.New("not found")

// Client performs JSON GET requests with a per-call timeout.
type Client struct {
	http    *http.Client  // http executes requests
	timeout time.Duration // timeout bounds each call
}

// New creates a client. A nil httpClient uses http.DefaultClient and a
// non-positive timeout uses DefaultTimeout.
func New(httpClient *http.Client, timeout time.Duration) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{http: httpClient, timeout: timeout}
}

// GetJSON performs a GET request and decodes the JSON response into result.
// A 404 answer returns ErrNotFound.
func (c *Client) GetJSON(ctx context.Context, url string, result any) error {
	body, err := c.get(ctx, url)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("decode %s:\n%w", url, err)
	}

	return nil
}

// GetText performs a GET request and returns the trimmed response body.
// A 404 answer returns ErrNotFound.
func (c *Client) GetText(ctx context.Context, url string) (string, error) {
	body, err := c.get(ctx, url)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(body)), nil
}

// get reads the body of a successful GET, up to maxBodySize bytes.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request %s:\n%w", url, err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s:\n%w", url, err)
	}
	defer func() { io.Copy(io.Discard, resp.Body); resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("GET %s: %w", url, ErrNotFound)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read %s:\n%w", url, err)
	}

	return body, nil
}
