package platform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dghubble/sling"

	"github.com/locate918/eventengine/internal/metrics"
)

// DefaultMaxPages bounds every pagination loop.
const DefaultMaxPages = 50

const maxResponseBytes = 8 << 20

// ErrPageCap is returned alongside partial results when pagination stopped at
// the page cap instead of reaching the end of the listing.
var ErrPageCap = errors.New("pagination stopped at page cap")

// StatusError reports a non-2xx API response.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.URL, e.Status)
}

// ClientOptions configures a Client.
type ClientOptions struct {
	HTTPClient *http.Client
	UserAgent  string
	MaxPages   int
	Retries    uint64
	RetryWait  time.Duration
	Limiter    *HostLimiter
}

// Client is the HTTP/JSON collaborator used by every platform: request
// building through sling, per-host pacing, and bounded retries.
type Client struct {
	http      *http.Client
	userAgent string
	maxPages  int
	retries   uint64
	retryWait time.Duration
	limiter   *HostLimiter
}

// NewClient creates a Client. Zero options fall back to a 30 second timeout,
// DefaultMaxPages and two retries.
func NewClient(opts ClientOptions) *Client {
	c := &Client{
		http:      opts.HTTPClient,
		userAgent: opts.UserAgent,
		maxPages:  opts.MaxPages,
		retries:   opts.Retries,
		retryWait: opts.RetryWait,
		limiter:   opts.Limiter,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 30 * time.Second}
	}
	if c.maxPages <= 0 {
		c.maxPages = DefaultMaxPages
	}
	if c.retryWait <= 0 {
		c.retryWait = 500 * time.Millisecond
	}
	return c
}

// MaxPages is the pagination cap applied by platforms.
func (c *Client) MaxPages() int {
	return c.maxPages
}

// New returns a sling with the engine's user agent and JSON accept header.
func (c *Client) New() *sling.Sling {
	s := sling.New().Doer(c.http).Set("Accept", "application/json, text/javascript, */*; q=0.01")
	if c.userAgent != "" {
		s = s.Set("User-Agent", c.userAgent)
	}
	return s
}

// ReceiveJSON sends the request described by s and decodes a 2xx JSON body
// into success. Transport errors and 5xx responses are retried; 4xx are not.
func (c *Client) ReceiveJSON(ctx context.Context, platform string, s *sling.Sling, success interface{}) error {
	return c.retry(ctx, platform, s, func(req *http.Request) error {
		resp, err := s.Do(req, success, nil)
		if err != nil {
			if resp != nil && resp.StatusCode >= 300 {
				return statusErr(req, resp.StatusCode)
			}
			return err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return statusErr(req, resp.StatusCode)
		}
		return nil
	})
}

// ReceiveText sends the request described by s and returns the raw body.
func (c *Client) ReceiveText(ctx context.Context, platform string, s *sling.Sling) (string, error) {
	var body string
	err := c.retry(ctx, platform, s, func(req *http.Request) error {
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close() // nolint:errcheck

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return statusErr(req, resp.StatusCode)
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return fmt.Errorf("reading body: %w", err)
		}
		body = string(data)
		return nil
	})
	return body, err
}

func (c *Client) retry(ctx context.Context, platform string, s *sling.Sling, send func(*http.Request) error) error {
	op := func() error {
		req, err := s.Request()
		if err != nil {
			return backoff.Permanent(fmt.Errorf("building request: %w", err))
		}
		req = req.WithContext(ctx)

		if err := c.limiter.Wait(ctx, req.URL.Host); err != nil {
			return backoff.Permanent(err)
		}

		err = send(req)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		var se *StatusError
		if errors.As(err, &se) && se.Status < 500 {
			return backoff.Permanent(err)
		}
		return err
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.retryWait
	eb.MaxElapsedTime = 30 * time.Second
	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(eb, c.retries), ctx))

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.APIPages.WithLabelValues(platform, status).Inc()
	return err
}

func statusErr(req *http.Request, status int) error {
	u := *req.URL
	u.RawQuery = ""
	return &StatusError{URL: u.String(), Status: status}
}
