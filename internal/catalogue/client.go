// Package catalogue looks up the numeric record id a catalogue already holds
// for an archive identifier.
package catalogue

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Client queries the catalogue search API. Answers, including "not found",
// are cached per identifier.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *lru.Cache[string, lookupResult]
}

type lookupResult struct {
	id    int64
	found bool
}

func NewClient(baseURL string, timeout time.Duration, cacheSize int) (*Client, error) {
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	cache, err := lru.New[string, lookupResult](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create lookup cache: %w", err)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		cache: cache,
	}, nil
}

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// Lookup returns the record id for identifier, or nil when the catalogue has
// none. The search endpoint answers GET /search?p=<identifier>&of=id with a
// JSON array of ids; the first one wins.
func (c *Client) Lookup(ctx context.Context, identifier string) (*int64, error) {
	if r, ok := c.cache.Get(identifier); ok {
		return r.ptr(), nil
	}

	q := url.Values{}
	q.Set("p", identifier)
	q.Set("of", "id")
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("catalogue lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &RetryableError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
	}
	if resp.StatusCode == http.StatusNotFound {
		c.cache.Add(identifier, lookupResult{})
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("catalogue lookup %s: status %d: %s", identifier, resp.StatusCode, string(respBody))
	}

	var ids []int64
	if err := json.NewDecoder(resp.Body).Decode(&ids); err != nil {
		return nil, fmt.Errorf("decode lookup response: %w", err)
	}
	r := lookupResult{}
	if len(ids) > 0 {
		r = lookupResult{id: ids[0], found: true}
	}
	c.cache.Add(identifier, r)
	return r.ptr(), nil
}

func (r lookupResult) ptr() *int64 {
	if !r.found {
		return nil
	}
	id := r.id
	return &id
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
