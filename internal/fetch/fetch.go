// Package fetch pulls plain text out of shared documents.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"bookbuddy/internal/webhook"
)

const (
	DefaultTimeout = 30 * time.Second
	maxDocument    = 5 << 20
)

var (
	ErrUnsupportedURL = errors.New("unsupported document url")
	ErrEmptyDocument  = errors.New("document is empty")
)

// StatusError is returned when the document host answers with anything
// other than 200.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("document host returned status %d", e.StatusCode)
}

var googleDoc = regexp.MustCompile(`^/document(?:/u/\d+)?/d/([A-Za-z0-9_-]+)`)

// ExportURL rewrites a document-sharing link into its plain-text export
// link. Links that already point at a .txt resource are returned as-is.
func ExportURL(shareURL string) (string, error) {
	if err := webhook.ValidateURL(shareURL); err != nil {
		return "", err
	}
	u, err := url.Parse(shareURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", webhook.ErrInvalidURL, err)
	}
	if u.Host == "docs.google.com" {
		m := googleDoc.FindStringSubmatch(u.Path)
		if m == nil {
			return "", ErrUnsupportedURL
		}
		return "https://docs.google.com/document/d/" + m[1] + "/export?format=txt", nil
	}
	if strings.HasSuffix(strings.ToLower(u.Path), ".txt") || u.Query().Get("format") == "txt" {
		return shareURL, nil
	}
	return "", ErrUnsupportedURL
}

// Fetcher performs a single unauthenticated GET per call.
type Fetcher struct {
	hc        *http.Client
	timeout   time.Duration
	userAgent string
}

type Option func(*Fetcher)

func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

func WithUserAgent(ua string) Option { return func(f *Fetcher) { f.userAgent = ua } }

func WithHTTPClient(hc *http.Client) Option { return func(f *Fetcher) { f.hc = hc } }

func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		hc:        &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		timeout:   DefaultTimeout,
		userAgent: webhook.DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch resolves shareURL to its export link and returns the body text.
// There is no retry.
func (f *Fetcher) Fetch(ctx context.Context, shareURL string) (string, error) {
	target, err := ExportURL(shareURL)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/plain")

	resp, err := f.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("get document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{StatusCode: resp.StatusCode}
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxDocument))
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	// exports start with a UTF-8 BOM
	text := strings.TrimSpace(strings.TrimPrefix(string(b), "\ufeff"))
	if text == "" {
		return "", ErrEmptyDocument
	}
	return text, nil
}
