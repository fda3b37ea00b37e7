// Package catalog provides a client for the product catalog service.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultBaseURL is the catalog service root used when none is configured.
	DefaultBaseURL = "http://localhost:3001/api/v1"

	defaultTimeout = 10 * time.Second
	maxBodySize    = 8 << 20 // 8 MB
	userAgent      = "github.com/theirongolddev/mealplan/1.0"
)

var (
	// ErrUnavailable indicates the catalog service could not be reached or
	// answered with a server error.
	ErrUnavailable = errors.New("catalog: service unavailable")
	// ErrRateLimited indicates the service rate limit was hit.
	ErrRateLimited = errors.New("catalog: rate limited")
)

// Client fetches products and categories from the catalog service.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewClient creates a client for the service rooted at baseURL. An empty
// baseURL selects DefaultBaseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: baseURL,
		timeout: defaultTimeout,
		http:    &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the service root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Fetch loads products and categories concurrently and returns the combined
// payload. Either request failing fails the whole fetch.
func (c *Client) Fetch(ctx context.Context) (*Payload, error) {
	var payload Payload

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		products, err := c.FetchProducts(gctx)
		if err != nil {
			return err
		}
		payload.Products = products
		return nil
	})
	g.Go(func() error {
		categories, err := c.FetchCategories(gctx)
		if err != nil {
			return err
		}
		payload.Categories = categories
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &payload, nil
}

// FetchSnapshot fetches the catalog and builds a Snapshot from it.
func (c *Client) FetchSnapshot(ctx context.Context) (*Snapshot, error) {
	payload, err := c.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return payload.Snapshot(time.Now()), nil
}

// FetchProducts returns the flat product list.
func (c *Client) FetchProducts(ctx context.Context) ([]Product, error) {
	body, err := c.get(ctx, "/products")
	if err != nil {
		return nil, err
	}

	var products []Product
	if err := json.Unmarshal(body, &products); err != nil {
		return nil, fmt.Errorf("catalog: parsing products: %w", err)
	}
	return products, nil
}

// FetchCategories returns every category with its products.
func (c *Client) FetchCategories(ctx context.Context) ([]Category, error) {
	body, err := c.get(ctx, "/categories")
	if err != nil {
		return nil, err
	}

	var categories []Category
	if err := json.Unmarshal(body, &categories); err != nil {
		return nil, fmt.Errorf("catalog: parsing categories: %w", err)
	}
	return categories, nil
}

// get performs a GET request against the service and returns the response body.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("catalog: creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("catalog: unexpected status %d for %s", resp.StatusCode, path)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("catalog: reading response: %w", err)
	}
	return body, nil
}
