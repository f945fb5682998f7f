package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// MaxBodySize is the largest response body read from a channel page.
const MaxBodySize = 1 << 20 // 1MB

// DefaultTimeout applies to requests without their own timeout.
const DefaultTimeout = 10 * time.Second

// DefaultUserAgent is sent unless the request sets its own User-Agent header.
const DefaultUserAgent = "livewatch/1"

// pooling limits; per-host caps stay low since most channels of a platform
// share one host and platforms rate-limit aggressively
const (
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 4
	defaultMaxConnsPerHost     = 8
	defaultIdleConnTimeout     = 90 * time.Second
)

// Request describes one page or API fetch for a channel.
type Request struct {
	Method  string // empty means GET
	URL     string
	Headers map[string]string
	Timeout time.Duration // zero means DefaultTimeout
}

// Response is what came back from a [Client.Fetch].
type Response struct {
	// Body is the response body, cut at MaxBodySize.
	Body []byte

	// Truncated reports whether Body was cut at MaxBodySize.
	Truncated bool

	StatusCode  int
	ContentType string
	Latency     time.Duration
}

// Client fetches channel pages over a shared connection pool.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a [Client].
//
// Connection pooling configuration:
//   - MaxIdleConns: 100 total idle connections
//   - MaxIdleConnsPerHost: 4 idle connections per host
//   - MaxConnsPerHost: 8 concurrent connections per host
//   - IdleConnTimeout: 90 seconds before closing idle connections
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			// no default timeout - we use per-request timeouts via context
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				MaxConnsPerHost:     defaultMaxConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
			},
		},
	}
}

// Fetch performs req and returns the response.
//
// A non-2xx status is not an error; detectors decide what a status code
// means. Errors are returned only when no usable response was received.
func (c *Client) Fetch(ctx context.Context, req Request) (Response, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	start := time.Now()

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, nil)
	if err != nil {
		return Response{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("User-Agent", DefaultUserAgent)
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Response{Latency: time.Since(start)}, fmt.Errorf("request %s: %w", req.URL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	// read one byte past the limit to detect truncation
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize+1))
	out := Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Latency:     time.Since(start),
	}
	if err != nil {
		return out, fmt.Errorf("read body: %w", err)
	}
	if len(body) > MaxBodySize {
		body = body[:MaxBodySize]
		out.Truncated = true
	}
	out.Body = body
	return out, nil
}

// Close closes idle connections in the pool.
//
// Safe to call multiple times and on a nil client. The client remains usable
// afterwards; new connections are opened as needed.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	c.httpClient.CloseIdleConnections()
}
