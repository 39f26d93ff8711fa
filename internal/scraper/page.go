package scraper

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/locate918/eventengine/internal/event"
	"github.com/locate918/eventengine/internal/logger"
)

// noise is removed before any extractor runs. JSON-LD and captured Etix API
// payloads are script elements too, and are kept.
var noise = cascadia.MustCompile(`script:not([type="application/ld+json"]):not([type="etix-api-data"]), style, nav, footer, header, noscript`)

// Page is a parsed listing page shared by every extractor in one run.
type Page struct {
	Doc        *goquery.Document
	URL        string
	SourceName string
	// Now anchors year inference and local-zone resolution of date text.
	Now time.Time
	Log *logger.Logger
}

// NewPage parses html and strips page chrome. A zero now means time.Now.
func NewPage(htmlText, pageURL, sourceName string, now time.Time) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	doc.FindMatcher(noise).Remove()
	if now.IsZero() {
		now = time.Now()
	}
	return &Page{
		Doc:        doc,
		URL:        pageURL,
		SourceName: sourceName,
		Now:        now,
	}, nil
}

func (p *Page) log() *logger.Logger {
	if p.Log != nil {
		return p.Log
	}
	return logger.Default()
}

// Host is the lower-cased host of the page URL.
func (p *Page) Host() string {
	return event.HostOf(p.URL)
}

func (p *Page) resolve(href string) string {
	return event.ResolveURL(p.URL, href)
}

func (p *Page) newEvent(title, dateText string) *event.Event {
	return event.New(title, dateText, p.SourceName, p.Now)
}

func text(s *goquery.Selection) string {
	return event.CollapseWhitespace(s.Text())
}

func attr(s *goquery.Selection, name string) string {
	v, _ := s.Attr(name)
	return strings.TrimSpace(v)
}

// dateOf prefers a machine-readable datetime attribute over visible text.
func dateOf(s *goquery.Selection) string {
	if s.Length() == 0 {
		return ""
	}
	if dt := attr(s, "datetime"); dt != "" {
		return dt
	}
	return text(s)
}

// first returns the first match of the earliest matcher that matches
// anything inside s.
func first(s *goquery.Selection, matchers ...cascadia.Selector) *goquery.Selection {
	for _, m := range matchers {
		if found := s.FindMatcher(m).First(); found.Length() > 0 {
			return found
		}
	}
	return s.Slice(0, 0)
}

// ancestor returns the nearest proper ancestor of s matching m.
func ancestor(s *goquery.Selection, m cascadia.Selector) *goquery.Selection {
	return s.Parent().ClosestMatcher(m)
}

// strippedStrings returns the trimmed, non-empty text nodes below n in
// document order.
func strippedStrings(nodes ...*html.Node) []string {
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := event.CollapseWhitespace(n.Data); t != "" {
				out = append(out, t)
			}
			return
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return out
}

// spacedText joins the text nodes of s with single spaces, so adjacent
// elements do not run together.
func spacedText(s *goquery.Selection) string {
	return strings.Join(strippedStrings(s.Nodes...), " ")
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
