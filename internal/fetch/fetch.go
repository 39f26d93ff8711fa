// Package fetch acquires the HTML of a target page, either with a plain HTTP
// request or through a headless browser for sites that build their listings
// in JavaScript. The extraction engine only ever sees the resulting string.
package fetch

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/html/charset"

	"github.com/locate918/eventengine/internal/logger"
	"github.com/locate918/eventengine/internal/metrics"
)

// DefaultMaxBodyBytes caps the size of a fetched page.
const DefaultMaxBodyBytes = 5 << 20

// Request names the page to acquire.
type Request struct {
	URL string
	// Render asks for a headless-browser fetch when a renderer is configured.
	Render bool
}

// Page is an acquired document, decoded to UTF-8.
type Page struct {
	URL         string        `json:"url"`
	FinalURL    string        `json:"final_url"`
	HTML        string        `json:"-"`
	StatusCode  int           `json:"status_code"`
	ContentType string        `json:"content_type"`
	Rendered    bool          `json:"rendered"`
	FetchedAt   time.Time     `json:"fetched_at"`
	Latency     time.Duration `json:"latency"`
}

// Fetcher retrieves a page.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (*Page, error)
}

// Renderer executes JavaScript and returns the rendered DOM.
type Renderer interface {
	Render(ctx context.Context, req Request) (*Page, error)
}

// StatusError reports a target page answering with a non-2xx status.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetching %s: status %d", e.URL, e.Status)
}

// Options controls HTTP fetching.
type Options struct {
	UserAgent    string
	Headers      map[string]string
	Timeout      time.Duration
	MaxBodyBytes int64
}

// HTTPFetcher implements Fetcher with net/http.
type HTTPFetcher struct {
	client       *http.Client
	userAgent    string
	extraHeaders map[string]string
	maxBodyBytes int64
}

// NewHTTPFetcher creates an HTTPFetcher. Zero options fall back to a 30
// second timeout and DefaultMaxBodyBytes.
func NewHTTPFetcher(opts Options) *HTTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: time.Second,
	}

	headers := make(map[string]string, len(opts.Headers))
	for k, v := range opts.Headers {
		headers[k] = v
	}

	return &HTTPFetcher{
		client:       &http.Client{Timeout: opts.Timeout, Transport: transport},
		userAgent:    opts.UserAgent,
		extraHeaders: headers,
		maxBodyBytes: opts.MaxBodyBytes,
	}
}

// Client exposes the underlying HTTP client so the robots gate and the
// platform APIs can share its transport.
func (f *HTTPFetcher) Client() *http.Client {
	return f.client
}

// Fetch downloads req.URL. Compressed bodies are decoded and the document is
// converted to UTF-8 using the Content-Type header or the document's own
// meta charset.
func (f *HTTPFetcher) Fetch(ctx context.Context, req Request) (*Page, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if f.userAgent != "" {
		httpReq.Header.Set("User-Agent", f.userAgent)
	}
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	httpReq.Header.Set("Accept-Language", "en-US,en;q=0.5")
	httpReq.Header.Set("Accept-Encoding", "gzip, deflate, br")
	for k, v := range f.extraHeaders {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := f.client.Do(httpReq)
	if err != nil {
		metrics.PagesFetched.WithLabelValues("http", "error").Inc()
		return nil, fmt.Errorf("http fetch failed: %w", err)
	}

	body, err := f.readBody(resp)
	if err != nil {
		metrics.PagesFetched.WithLabelValues("http", "error").Inc()
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.PagesFetched.WithLabelValues("http", "error").Inc()
		return nil, &StatusError{URL: req.URL, Status: resp.StatusCode}
	}

	finalURL := req.URL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	metrics.PagesFetched.WithLabelValues("http", "ok").Inc()
	return &Page{
		URL:         req.URL,
		FinalURL:    finalURL,
		HTML:        body,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		FetchedAt:   time.Now(),
		Latency:     time.Since(start),
	}, nil
}

func (f *HTTPFetcher) readBody(resp *http.Response) (string, error) {
	if resp == nil || resp.Body == nil {
		return "", errors.New("empty response body")
	}

	reader := io.Reader(resp.Body)
	closers := []io.Closer{resp.Body}

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			resp.Body.Close() // nolint:errcheck
			return "", fmt.Errorf("gzip decode: %w", err)
		}
		reader = gz
		closers = append(closers, gz)
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "deflate":
		fl := flate.NewReader(resp.Body)
		reader = fl
		closers = append(closers, fl)
	}

	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
	}()

	raw, err := io.ReadAll(io.LimitReader(reader, f.maxBodyBytes+1))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if int64(len(raw)) > f.maxBodyBytes {
		return "", fmt.Errorf("response body exceeds limit of %d bytes", f.maxBodyBytes)
	}

	decoded, err := charset.NewReader(bytes.NewReader(raw), resp.Header.Get("Content-Type"))
	if err != nil {
		return string(raw), nil
	}
	text, err := io.ReadAll(decoded)
	if err != nil {
		return string(raw), nil
	}
	return string(text), nil
}

// Composite chooses between raw HTTP and a renderer per request.
type Composite struct {
	http     Fetcher
	renderer Renderer
}

// NewComposite builds a composite fetcher; renderer may be nil.
func NewComposite(httpFetcher Fetcher, renderer Renderer) *Composite {
	return &Composite{http: httpFetcher, renderer: renderer}
}

// Fetch renders when asked and a renderer is configured, falling back to
// HTTP when rendering fails.
func (c *Composite) Fetch(ctx context.Context, req Request) (*Page, error) {
	if req.Render && c.renderer != nil {
		page, err := c.renderer.Render(ctx, req)
		if err == nil {
			return page, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Warn("Renderer failed, falling back to HTTP fetch", logger.Fields{"url": req.URL, "error": err.Error()})
	}
	req.Render = false
	return c.http.Fetch(ctx, req)
}
