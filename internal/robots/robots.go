// Package robots decides whether the engine may fetch a URL according to the
// target site's robots.txt.
//
// Rules are fetched once per origin and kept in an injected Cache. A robots.txt
// that cannot be fetched, or that answers with anything but 200, is cached as
// "no policy" and every path on that origin is allowed.
package robots

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"

	"github.com/locate918/eventengine/internal/logger"
	"github.com/locate918/eventengine/internal/metrics"
)

const maxRobotsBytes = 512 << 10

// Cache stores parsed robots.txt rules by origin ("scheme://host").
// A stored nil means the origin has no usable policy. Implementations must be
// safe for concurrent use; storing the same origin twice is harmless.
type Cache interface {
	Get(origin string) (*robotstxt.RobotsData, bool)
	Set(origin string, rules *robotstxt.RobotsData)
}

// MemoryCache is an in-process Cache.
type MemoryCache struct {
	mu    sync.RWMutex
	rules map[string]*robotstxt.RobotsData
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{rules: make(map[string]*robotstxt.RobotsData)}
}

// Get returns the cached rules for origin.
func (c *MemoryCache) Get(origin string) (*robotstxt.RobotsData, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rules, ok := c.rules[origin]
	return rules, ok
}

// Set stores rules for origin.
func (c *MemoryCache) Set(origin string, rules *robotstxt.RobotsData) {
	c.mu.Lock()
	c.rules[origin] = rules
	c.mu.Unlock()
}

// Decision is the outcome of a robots check.
type Decision struct {
	Allowed    bool          `json:"allowed"`
	Message    string        `json:"message"`
	Path       string        `json:"path"`
	CrawlDelay time.Duration `json:"crawl_delay,omitempty"`
}

// Gate evaluates robots.txt rules for one user agent.
type Gate struct {
	client    *http.Client
	userAgent string
	cache     Cache
}

// NewGate creates a Gate. A nil client gets a 10 second timeout; a nil cache
// gets a private MemoryCache.
func NewGate(client *http.Client, userAgent string, cache Cache) *Gate {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Gate{client: client, userAgent: userAgent, cache: cache}
}

// CheckAllowed reports whether rawURL may be fetched. The path is tested
// against the gate's user agent; robotstxt falls back to the "*" group when no
// group names the agent.
func (g *Gate) CheckAllowed(ctx context.Context, rawURL string) Decision {
	target, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || !target.IsAbs() || target.Host == "" {
		return Decision{Allowed: true, Message: "Allowed (no robots policy for relative URL)"}
	}

	path := target.EscapedPath()
	if path == "" {
		path = "/"
	}
	if target.RawQuery != "" {
		path += "?" + target.RawQuery
	}

	rules := g.rules(ctx, target)
	if rules == nil {
		metrics.RobotsDecisions.WithLabelValues("no_policy").Inc()
		return Decision{Allowed: true, Message: "Allowed (no robots.txt policy)", Path: path}
	}

	decision := Decision{Allowed: rules.TestAgent(path, g.userAgent), Path: path}
	if group := rules.FindGroup(g.userAgent); group != nil {
		decision.CrawlDelay = group.CrawlDelay
	}

	if decision.Allowed {
		metrics.RobotsDecisions.WithLabelValues("allowed").Inc()
		decision.Message = "Allowed by robots.txt"
		return decision
	}

	metrics.RobotsDecisions.WithLabelValues("blocked").Inc()
	decision.Message = "Blocked by robots.txt for path: " + target.EscapedPath()
	if decision.CrawlDelay > 0 {
		decision.Message += fmt.Sprintf(" (crawl-delay: %ss)",
			strconv.FormatFloat(decision.CrawlDelay.Seconds(), 'f', -1, 64))
	}
	return decision
}

func (g *Gate) rules(ctx context.Context, target *url.URL) *robotstxt.RobotsData {
	origin := strings.ToLower(target.Scheme + "://" + target.Host)
	if rules, ok := g.cache.Get(origin); ok {
		return rules
	}

	rules, err := g.fetch(ctx, origin)
	if err != nil {
		logger.Debug("robots.txt unavailable, allowing", logger.Fields{
			"origin": origin,
			"reason": err.Error(),
		})
		if ctx.Err() != nil {
			return nil
		}
	}
	g.cache.Set(origin, rules)
	return rules
}

func (g *Gate) fetch(ctx context.Context, origin string) (*robotstxt.RobotsData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil, fmt.Errorf("build robots request: %w", err)
	}
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("robots.txt returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if err != nil {
		return nil, fmt.Errorf("read robots.txt: %w", err)
	}
	rules, err := robotstxt.FromBytes(body)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}
	return rules, nil
}
