// Package venue resolves a venue's own website from its listing page on a
// tourism aggregator, caching answers for the life of the process.
package venue

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/locate918/eventengine/internal/event"
	"github.com/locate918/eventengine/internal/fetch"
	"github.com/locate918/eventengine/internal/logger"
	"github.com/locate918/eventengine/internal/metrics"
)

// Hosts never accepted as a venue website from a contact section.
var contactSkipHosts = []string{"google.com", "facebook.com"}

// Resolver reads listing pages through a fetcher. It satisfies the
// platform package's WebsiteResolver.
type Resolver struct {
	fetcher fetch.Fetcher
	cache   *Cache
}

// NewResolver creates a Resolver. A nil cache gets a private one.
func NewResolver(f fetch.Fetcher, cache *Cache) *Resolver {
	if cache == nil {
		cache = NewCache(DefaultTTL)
	}
	return &Resolver{fetcher: f, cache: cache}
}

// Resolve returns the venue website linked from listingURL, or "" when the
// listing has none or could not be read. Failures are cached as misses.
func (r *Resolver) Resolve(ctx context.Context, listingURL string) string {
	if strings.TrimSpace(listingURL) == "" {
		return ""
	}
	if website, ok := r.cache.Get(listingURL); ok {
		metrics.VenueLookups.WithLabelValues("cached").Inc()
		return website
	}

	page, err := r.fetcher.Fetch(ctx, fetch.Request{URL: listingURL})
	if err != nil {
		if ctx.Err() != nil {
			return ""
		}
		logger.Debug("Venue listing unavailable", logger.Fields{"listing": listingURL, "error": err.Error()})
		metrics.VenueLookups.WithLabelValues("error").Inc()
		r.cache.Set(listingURL, "")
		return ""
	}

	website := FindWebsite(page.HTML, event.HostOf(listingURL))
	if website == "" {
		metrics.VenueLookups.WithLabelValues("missing").Inc()
	} else {
		metrics.VenueLookups.WithLabelValues("found").Inc()
	}
	r.cache.Set(listingURL, website)
	return website
}

// FindWebsite looks for an outbound website link on a listing page, trying a
// "Visit Website" style link, then links classed as a website, then the
// first outbound link in a contact or info section. Links back to the
// aggregator are ignored.
func FindWebsite(html, aggregatorHost string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	aggregator := baseDomain(aggregatorHost)

	outbound := func(href string, skip ...string) bool {
		if !strings.HasPrefix(href, "http") {
			return false
		}
		host := event.HostOf(href)
		if host == "" || (aggregator != "" && strings.HasSuffix(host, aggregator)) {
			return false
		}
		for _, s := range skip {
			if strings.Contains(host, s) {
				return false
			}
		}
		return true
	}

	var website string
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		text := strings.ToLower(strings.TrimSpace(a.Text()))
		if !strings.Contains(text, "visit website") && !strings.Contains(text, "official website") {
			return true
		}
		if href := strings.TrimSpace(a.AttrOr("href", "")); outbound(href) {
			website = href
			return false
		}
		return true
	})
	if website != "" {
		return website
	}

	doc.Find("a[href]").FilterFunction(classHas("website")).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if href := strings.TrimSpace(a.AttrOr("href", "")); outbound(href) {
			website = href
			return false
		}
		return true
	})
	if website != "" {
		return website
	}

	sections := doc.Find("div[class], section[class]").FilterFunction(classHas("contact", "info", "details"))
	sections.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if href := strings.TrimSpace(a.AttrOr("href", "")); outbound(href, contactSkipHosts...) {
			website = href
			return false
		}
		return true
	})
	return website
}

// classHas matches elements whose class attribute contains any of words,
// ignoring case.
func classHas(words ...string) func(int, *goquery.Selection) bool {
	return func(_ int, s *goquery.Selection) bool {
		class := strings.ToLower(s.AttrOr("class", ""))
		for _, w := range words {
			if strings.Contains(class, w) {
				return true
			}
		}
		return false
	}
}

// baseDomain strips a leading "www." and any port.
func baseDomain(host string) string {
	if u, err := url.Parse("//" + host); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}
	return strings.TrimPrefix(host, "www.")
}
