// Package webhook posts JSON documents to an HTTP endpoint. Every call is a
// single attempt; nothing here retries.
package webhook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "Book-Buddy-Enhanced/1.1.0"

	// maxBodyBytes bounds how much of a response body is read back.
	maxBodyBytes = 1 << 20
)

var ErrInvalidURL = errors.New("invalid webhook url")

// Response is what the destination answered.
type Response struct {
	StatusCode int
	Body       string
}

// Poster is the contract the delivery layer depends on.
type Poster interface {
	Post(ctx context.Context, rawURL string, body []byte) (Response, error)
}

// Client is an HTTP webhook client with a fixed per-call timeout.
type Client struct {
	http      *http.Client
	userAgent string
	timeout   time.Duration
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithHTTPClient replaces the underlying client (tests, custom transports).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		http:      &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		userAgent: DefaultUserAgent,
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Timeout returns the per-call budget.
func (c *Client) Timeout() time.Duration { return c.timeout }

// ValidateURL checks that rawURL has both a scheme and a host.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %q has no scheme or host", ErrInvalidURL, rawURL)
	}
	return nil
}

// Post sends body as application/json. The URL is validated before any
// network activity. Redirects are not followed so that a 3xx is reported as-is.
// The client timeout applies only when ctx carries no deadline of its own.
func (c *Client) Post(ctx context.Context, rawURL string, body []byte) (Response, error) {
	if err := ValidateURL(rawURL); err != nil {
		return Response{}, err
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	hc := *c.http
	hc.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

	resp, err := hc.Do(req)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Response{StatusCode: resp.StatusCode}, fmt.Errorf("read response: %w", err)
	}
	return Response{StatusCode: resp.StatusCode, Body: string(b)}, nil
}
