//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/oshokin/lumen-provision/internal/version"
)

// HTTPClient is the part of *http.Client the services need.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ErrBadHTTPStatus is returned for any response other than 200 OK.
var ErrBadHTTPStatus = errors.New("unexpected http status")

// Client issues GET requests against the download server.
type Client struct {
	// http performs the requests.
	http HTTPClient
	// timeout bounds a whole request including the body read. Zero means none.
	timeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithTimeout bounds every request made by the client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithHTTPClient replaces the transport, mostly for tests.
func WithHTTPClient(h HTTPClient) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// NewClient creates a client using http.DefaultClient.
func NewClient(opts ...Option) *Client {
	c := &Client{
		http: http.DefaultClient,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Get fetches rawURL and hands the body to consume. The body is closed
// afterwards; consume must not keep it.
func (c *Client) Get(ctx context.Context, rawURL string, consume func(body io.Reader, size int64) error) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("User-Agent", version.UserAgent())

	response, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", rawURL, err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("%s, %s: %w", rawURL, response.Status, ErrBadHTTPStatus)
	}

	return consume(response.Body, response.ContentLength)
}
