package fetch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/locate918/eventengine/internal/event"
	"github.com/locate918/eventengine/internal/logger"
	"github.com/locate918/eventengine/internal/metrics"
)

const (
	iframeMarker  = "\n<!-- IFRAME_CONTENT -->\n"
	etixAPIMarker = "\n<!-- ETIX_API_DATA -->\n"
)

// Listing containers worth waiting for before the DOM is captured.
const (
	listingSelector = `[class*="event"], [class*="calendar"], [class*="timely"]`
	etixSelector    = `[class*="performance"], [class*="event-card"], [class*="MuiCard"]`
)

// RenderOptions configures the headless browser.
type RenderOptions struct {
	Timeout            time.Duration
	UserAgent          string
	MaxBodyBytes       int64
	DisableHeadless    bool
	ConcurrentSessions int
	// CaptureDelay is how long scripts get to run after navigation.
	CaptureDelay time.Duration
}

// ChromedpRenderer renders pages in headless Chrome. Besides the main
// document it captures the content of every iframe, including cross-origin
// calendar widgets, and on Etix pages the JSON answers of the listing API.
type ChromedpRenderer struct {
	opts      RenderOptions
	semaphore chan struct{}
}

// NewChromedpRenderer constructs a renderer with bounded concurrency.
func NewChromedpRenderer(opts RenderOptions) *ChromedpRenderer {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.ConcurrentSessions <= 0 {
		opts.ConcurrentSessions = 1
	}
	if opts.CaptureDelay <= 0 {
		opts.CaptureDelay = 3 * time.Second
	}
	return &ChromedpRenderer{
		opts:      opts,
		semaphore: make(chan struct{}, opts.ConcurrentSessions),
	}
}

// Render navigates to req.URL and returns the rendered document with iframe
// documents and captured API payloads appended.
func (r *ChromedpRenderer) Render(parentCtx context.Context, req Request) (*Page, error) {
	log := logger.With(logger.Fields{"url": req.URL, "timeout": r.opts.Timeout.String()})

	select {
	case r.semaphore <- struct{}{}:
		defer func() { <-r.semaphore }()
	case <-parentCtx.Done():
		return nil, parentCtx.Err()
	}

	ctx, cancel := context.WithTimeout(parentCtx, r.opts.Timeout)
	defer cancel()

	execOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", !r.opts.DisableHeadless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		// Keep cross-origin frames in-process so the pierced DOM reaches them.
		chromedp.Flag("disable-features", "IsolateOrigins,site-per-process"),
		chromedp.Flag("disable-site-isolation-trials", true),
	)
	if ua := strings.TrimSpace(r.opts.UserAgent); ua != "" {
		execOpts = append(execOpts, chromedp.UserAgent(ua))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, execOpts...)
	defer allocCancel()
	chromeCtx, chromeCancel := chromedp.NewContext(allocCtx)
	defer chromeCancel()

	etix := isEtixURL(req.URL)
	capture := &apiCapture{}
	if etix {
		chromedp.ListenTarget(chromeCtx, capture.listen)
	}

	start := time.Now()
	var (
		html     string
		frames   []string
		finalURL string
	)

	actions := []chromedp.Action{network.Enable(), chromedp.Navigate(req.URL)}
	if etix {
		actions = append(actions,
			waitOptional(etixSelector, 10*time.Second),
			chromedp.Sleep(5*time.Second),
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
			chromedp.Sleep(2*time.Second),
		)
	} else {
		actions = append(actions,
			chromedp.Sleep(r.opts.CaptureDelay),
			waitOptional(listingSelector, 5*time.Second),
		)
	}
	actions = append(actions,
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Location(&finalURL),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frames = frameDocuments(ctx)
			return nil
		}),
	)
	if etix {
		actions = append(actions, chromedp.ActionFunc(capture.collect))
	}

	log.Debug("Starting render", logger.Fields{"etix": etix})
	if err := chromedp.Run(chromeCtx, actions...); err != nil {
		metrics.PagesFetched.WithLabelValues("render", "error").Inc()
		return nil, fmt.Errorf("chromedp run: %w", err)
	}

	doc := assemble(html, frames, capture.bodies)
	if int64(len(doc)) > r.opts.MaxBodyBytes {
		doc = doc[:r.opts.MaxBodyBytes]
	}
	if finalURL == "" {
		finalURL = req.URL
	}

	latency := time.Since(start)
	log.Debug("Render complete", logger.Fields{
		"latency_ms": latency.Milliseconds(),
		"frames":     len(frames),
		"api_bodies": len(capture.bodies),
		"html_bytes": len(doc),
	})
	metrics.PagesFetched.WithLabelValues("render", "ok").Inc()
	return &Page{
		URL:         req.URL,
		FinalURL:    finalURL,
		HTML:        doc,
		StatusCode:  200,
		ContentType: "text/html; charset=utf-8",
		Rendered:    true,
		FetchedAt:   time.Now(),
		Latency:     latency,
	}, nil
}

// assemble appends captured API payloads as etix-api-data scripts and every
// non-empty iframe document behind a marker comment.
func assemble(html string, frames, apiBodies []string) string {
	var b strings.Builder
	b.WriteString(html)
	if len(apiBodies) > 0 {
		b.WriteString(etixAPIMarker)
		for _, body := range apiBodies {
			b.WriteString(`<script type="etix-api-data">`)
			b.WriteString(body)
			b.WriteString("</script>\n")
		}
	}
	for _, frame := range frames {
		if strings.TrimSpace(frame) == "" {
			continue
		}
		b.WriteString(iframeMarker)
		b.WriteString(frame)
	}
	return b.String()
}

// frameDocuments reads the whole DOM, piercing frame and shadow boundaries,
// and returns the markup of every iframe document on the page.
func frameDocuments(ctx context.Context) []string {
	root, err := dom.GetDocument().WithDepth(-1).WithPierce(true).Do(ctx)
	if err != nil {
		logger.Debug("Could not read frame tree", logger.Fields{"error": err.Error()})
		return nil
	}
	return collectFrames(root, func(n *cdp.Node) (string, error) {
		return dom.GetOuterHTML().WithNodeID(n.NodeID).Do(ctx)
	})
}

// collectFrames walks the node tree depth-first and reads the root element
// of each frame's content document with outerHTML. Nested frames follow
// their parent frame. Frames that cannot be read are skipped.
func collectFrames(root *cdp.Node, outerHTML func(*cdp.Node) (string, error)) []string {
	var frames []string
	var walk func(n *cdp.Node)
	walk = func(n *cdp.Node) {
		if n == nil {
			return
		}
		if doc := n.ContentDocument; doc != nil {
			if el := documentElement(doc); el != nil {
				html, err := outerHTML(el)
				if err != nil {
					logger.Debug("Could not read frame document", logger.Fields{"frame": n.NodeName, "error": err.Error()})
				} else {
					frames = append(frames, html)
				}
			}
			walk(doc)
		}
		for _, shadow := range n.ShadowRoots {
			walk(shadow)
		}
		for _, child := range n.Children {
			walk(child)
		}
	}
	walk(root)
	return frames
}

func documentElement(doc *cdp.Node) *cdp.Node {
	for _, child := range doc.Children {
		if child.NodeType == cdp.NodeTypeElement {
			return child
		}
	}
	return nil
}

// waitOptional waits up to limit for selector and carries on without it.
func waitOptional(selector string, limit time.Duration) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		waitCtx, cancel := context.WithTimeout(ctx, limit)
		defer cancel()
		_ = chromedp.WaitReady(selector, chromedp.ByQuery).Do(waitCtx)
		return nil
	})
}

func isEtixURL(rawURL string) bool {
	host := event.HostOf(rawURL)
	return host == "etix.com" || strings.HasSuffix(host, ".etix.com")
}

func isEtixAPI(rawURL string) bool {
	return strings.Contains(rawURL, "/api/online/search") || strings.Contains(rawURL, "/api/online/venues/")
}

// apiCapture records Etix listing API responses seen by the browser and
// reads their bodies once the page has settled.
type apiCapture struct {
	mu     sync.Mutex
	ids    []network.RequestID
	bodies []string
}

func (c *apiCapture) listen(ev interface{}) {
	resp, ok := ev.(*network.EventResponseReceived)
	if !ok || resp.Response == nil || !isEtixAPI(resp.Response.URL) {
		return
	}
	c.mu.Lock()
	c.ids = append(c.ids, resp.RequestID)
	c.mu.Unlock()
}

func (c *apiCapture) collect(ctx context.Context) error {
	c.mu.Lock()
	ids := append([]network.RequestID(nil), c.ids...)
	c.mu.Unlock()

	for _, id := range ids {
		body, err := network.GetResponseBody(id).Do(ctx)
		if err != nil {
			logger.Debug("Could not read captured API response", logger.Fields{"request_id": string(id), "error": err.Error()})
			continue
		}
		c.bodies = append(c.bodies, string(body))
	}
	return nil
}
