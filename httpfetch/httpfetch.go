// Package httpfetch is the engine's sole network collaborator (§6): a
// streamed HTTP GET. The applier depends on the Getter interface, not this
// package's concrete client, so tests can substitute a fake without
// touching the network.
package httpfetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Getter streams the body of a GET request. The returned size is the
// response's declared content length, or -1 if the server didn't send
// one; callers must not treat -1 as an error.
type Getter interface {
	Get(ctx context.Context, url string) (body io.ReadCloser, size int64, err error)
}

// Client is a Getter backed by net/http.
type Client struct {
	HTTP *http.Client
}

// NewClient returns a Client whose http.Client.Timeout bounds the entire
// request-response-body-read cycle, not just connection setup. Because
// modpack downloads can be large, a short timeout here will abort a
// legitimately slow-but-progressing transfer; set timeout generously (or
// zero, for no deadline) and rely on a context deadline from the caller
// instead if per-request cancellation is needed.
func NewClient(timeout time.Duration) *Client {
	return &Client{HTTP: &http.Client{Timeout: timeout}}
}

// Get implements Getter.
func (c *Client) Get(ctx context.Context, url string) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("httpfetch: build request for %q: %w", url, err)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("httpfetch: get %q: %w", url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, 0, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	return resp.Body, resp.ContentLength, nil
}

// StatusError is returned when the server responds with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("httpfetch: %s: unexpected status %d", e.URL, e.StatusCode)
}
