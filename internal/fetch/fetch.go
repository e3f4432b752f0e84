// Package fetch downloads remote media with an abortable timeout. Every
// remote read in mulmo, including preflight reachability checks, goes
// through Client so timeout and error classification behave the same
// everywhere.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"mulmocast/internal/services"
)

const (
	defaultTimeout = 30 * time.Second
	// maxBodyBytes caps a single download.
	maxBodyBytes = 512 << 20
)

// Client performs downloads. The zero value uses http.DefaultClient.
type Client struct {
	HTTP      *http.Client
	UserAgent string
	Timeout   time.Duration
}

// Download fetches url with the package default client.
func Download(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	return (&Client{Timeout: timeout}).Download(ctx, url)
}

// Download fetches url, aborting when the client timeout or ctx expires. All
// failures carry services.ErrNetwork.
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	resp, cancel, err := c.do(ctx, http.MethodGet, url, "download")
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, services.Wrap(services.ErrNetwork, "fetch", "download", fmt.Sprintf("%s returned %s", url, resp.Status), nil)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, services.Wrap(services.ErrNetwork, "fetch", "read body", url, err)
	}
	if len(data) > maxBodyBytes {
		return nil, services.Wrap(services.ErrNetwork, "fetch", "read body", fmt.Sprintf("%s exceeds %d bytes", url, maxBodyBytes), nil)
	}
	return data, nil
}

// Head checks that url answers a HEAD request with a 2xx or 3xx status.
func (c *Client) Head(ctx context.Context, url string) error {
	resp, cancel, err := c.do(ctx, http.MethodHead, url, "head")
	if err != nil {
		return err
	}
	defer cancel()
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return services.Wrap(services.ErrNetwork, "fetch", "head", fmt.Sprintf("%s returned %s", url, resp.Status), nil)
	}
	return nil
}

// do sends one request under the client timeout. The returned cancel must be
// called once the body has been consumed.
func (c *Client) do(ctx context.Context, method, url, op string) (*http.Response, context.CancelFunc, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		cancel()
		return nil, nil, services.Wrap(services.ErrNetwork, "fetch", "build request", url, err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		timedOut := errors.Is(ctx.Err(), context.DeadlineExceeded)
		cancel()
		if timedOut {
			return nil, nil, services.Wrap(services.ErrNetwork, "fetch", op, fmt.Sprintf("timed out after %s: %s", timeout, url), err)
		}
		return nil, nil, services.Wrap(services.ErrNetwork, "fetch", op, url, err)
	}
	return resp, cancel, nil
}
