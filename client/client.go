// Package client provides a retrying HTTP client for registry requests.
//
// The client owns the whole backoff policy: every component that talks to the
// registry goes through it and never sleeps or retries on its own.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/dnscache"
)

// Statuses that indicate a transient condition worth retrying.
var retryableStatus = map[int]bool{
	http.StatusRequestTimeout:      true, // 408
	http.StatusTooManyRequests:     true, // 429
	http.StatusInternalServerError: true, // 500
	http.StatusBadGateway:          true, // 502
	http.StatusServiceUnavailable:  true, // 503
	http.StatusGatewayTimeout:      true, // 504
}

// Client performs HTTP requests with bounded timeouts and classified retries.
type Client struct {
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
	maxRetries int
	baseDelay  time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(cl *Client) {
		cl.userAgent = ua
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		cl.timeout = d
	}
}

// WithMaxRetries sets the maximum retry attempts after the first try.
func WithMaxRetries(n int) Option {
	return func(cl *Client) {
		cl.maxRetries = n
	}
}

// WithBaseDelay sets the base delay for backoff between attempts.
func WithBaseDelay(d time.Duration) Option {
	return func(cl *Client) {
		cl.baseDelay = d
	}
}

// New creates a Client with the given options.
//
// Defaults: 20s request timeout, 4 retries (5 total attempts), 500ms base
// delay, and a transport with DNS caching refreshed every 5 minutes.
func New(opts ...Option) *Client {
	resolver := &dnscache.Resolver{}
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			resolver.Refresh(true)
		}
	}()

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	c := &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
					host, port, err := net.SplitHostPort(addr)
					if err != nil {
						return nil, err
					}
					ips, err := resolver.LookupHost(ctx, host)
					if err != nil {
						return nil, err
					}
					for _, ip := range ips {
						conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
						if err == nil {
							return conn, nil
						}
					}
					return nil, fmt.Errorf("failed to dial any resolved IP")
				},
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		userAgent:  "libmirror/1.0",
		timeout:    20 * time.Second,
		maxRetries: 4,
		baseDelay:  500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get fetches a URL and returns the response body.
//
// Transient failures (timeouts, connection errors, and the retryable status
// set) are retried with a delay growing linearly with the attempt number.
// A 404 returns ErrNotFound without retrying; any other non-2xx status is an
// immediate HTTPError. Exhausting retries returns a RetryError naming the URL
// and attempt count.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	var lastErr error

	attempts := c.maxRetries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			delay := time.Duration(attempt-1) * c.baseDelay
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		body, retryable, err := c.doGet(ctx, url)
		if err == nil {
			return body, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
	}

	return nil, &RetryError{URL: url, Attempts: attempts, Err: lastErr}
}

// doGet performs a single request. The second return value reports whether
// the failure is worth retrying.
func (c *Client) doGet(ctx context.Context, url string) ([]byte, bool, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "*/*")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Timeouts and connection errors are transient. The per-request
		// context cancels the in-flight request on its way out.
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, true, fmt.Errorf("reading response: %w", err)
		}
		return body, false, nil

	case resp.StatusCode == http.StatusNotFound:
		return nil, false, fmt.Errorf("%s: %w", url, ErrNotFound)

	case retryableStatus[resp.StatusCode]:
		return nil, true, fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)

	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, false, &HTTPError{StatusCode: resp.StatusCode, URL: url, Body: string(body)}
	}
}

// GetHTML fetches a URL and returns the body as a string.
func (c *Client) GetHTML(ctx context.Context, url string) (string, error) {
	body, err := c.Get(ctx, url)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// GetJSON fetches a URL and decodes the JSON response into v.
func (c *Client) GetJSON(ctx context.Context, url string, v any) error {
	body, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decoding %s: %w", url, err)
	}
	return nil
}
