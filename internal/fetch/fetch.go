// Package fetch provides the HTTP document fetcher used by the extraction
// driver: one GET per page through a shared, connection-reusing client, a
// persistent browser-like identity, and response bodies normalized to UTF-8.
package fetch

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"webextract/internal/metrics"
)

// userAgent identifies the client as a desktop browser; many sites serve
// degraded or empty markup to obvious bots.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// ErrStatus marks a response that arrived but carried a non-2xx status.
// Callers can distinguish it from transport errors with errors.Is.
var ErrStatus = errors.New("unexpected http status")

// Client fetches pages over HTTP. All requests share one underlying
// http.Client, so connections and TLS sessions are reused across pages.
type Client struct {
	http *http.Client
}

// New creates a Client with the given per-request timeout.
func New(timeout time.Duration) *Client {
	transport := &http.Transport{
		IdleConnTimeout:     90 * time.Second,
		MaxIdleConns:        64,
		MaxIdleConnsPerHost: 16,
	}
	return &Client{
		http: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// Get fetches rawURL and returns the response body decoded to UTF-8.
//
// Transport failures and non-2xx statuses both return a non-nil error; the
// latter wrap ErrStatus and include up to 4KB of the response body. Every
// attempt is recorded with the metrics backend.
func (c *Client) Get(ctx context.Context, rawURL string) (string, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordHTTP(0, err, time.Since(start), 0)
		return "", fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("%w %d: %s", ErrStatus, resp.StatusCode, strings.TrimSpace(string(body)))
		metrics.RecordHTTP(resp.StatusCode, err, time.Since(start), int64(len(body)))
		return "", err
	}

	br := bufio.NewReader(resp.Body)
	enc := detectEncoding(br, resp.Header.Get("Content-Type"))

	b, err := io.ReadAll(transform.NewReader(br, enc.NewDecoder()))
	if err != nil {
		metrics.RecordHTTP(resp.StatusCode, err, time.Since(start), int64(len(b)))
		return "", fmt.Errorf("read body: %w", err)
	}

	metrics.RecordHTTP(resp.StatusCode, nil, time.Since(start), int64(len(b)))
	return string(b), nil
}

// detectEncoding sniffs the body prefix and Content-Type header to pick a
// source encoding, defaulting to UTF-8 when the peek fails outright.
func detectEncoding(r *bufio.Reader, contentType string) encoding.Encoding {
	prefix, err := r.Peek(1024)
	if len(prefix) == 0 && err != nil {
		return unicode.UTF8
	}
	e, _, _ := charset.DetermineEncoding(prefix, contentType)
	return e
}
