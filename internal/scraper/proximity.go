package scraper

import (
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/locate918/eventengine/internal/event"
)

const (
	maxClimb          = 5
	maxContainerDates = 3
)

// Climbing stops below these elements; they hold whole page regions.
var regionTags = map[string]bool{"body": true, "html": true, "main": true, "section": true}

var proximityTitles = []cascadia.Selector{
	cascadia.MustCompile(`h1, h2, h3, h4, h5, h6`),
	cascadia.MustCompile(`a[href]`),
	cascadia.MustCompile(`[class*="title"]`),
	cascadia.MustCompile(`strong, b`),
}

// Proximity is the last fallback. Every text node that mentions a date is
// grown into a container by climbing the tree, up to five levels, until the
// next level would hold more than three dates. The container's most
// heading-like text becomes the title.
type Proximity struct{}

func (Proximity) Name() string { return "Date proximity" }

func (Proximity) Extract(p *Page) []*event.Event {
	root := p.Doc.Get(0)
	if body := p.Doc.Find("body"); body.Length() > 0 {
		root = body.Get(0)
	}

	var events []*event.Event
	seen := event.TitleSet{}
	for _, dateEl := range dateElements(root) {
		container := grow(dateEl)
		sel := p.Doc.FindNodes(container)

		title := text(first(sel, proximityTitles...))
		if title == "" {
			title = looseTitle(strippedStrings(container))
		}
		if !seen.Add(title) {
			continue
		}

		evt := p.newEvent(title, event.DateTimeFromText(spacedText(sel)))
		evt.SourceURL = p.resolve(attr(first(sel, hrefAnchor), "href"))
		events = append(events, evt)
	}
	return events
}

// dateElements returns the parent element of every text node mentioning a
// date, in document order and without repeats.
func dateElements(root *html.Node) []*html.Node {
	var out []*html.Node
	seen := make(map[*html.Node]bool)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode && n.Parent != nil && !seen[n.Parent] && event.HasDate(n.Data) {
			seen[n.Parent] = true
			out = append(out, n.Parent)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

var titleLike = cascadia.MustCompile(`h1, h2, h3, h4, h5, h6, a[href], [class*="title"], strong, b`)

// grow climbs from el while the parent holds at most maxContainerDates dated
// text nodes. Once the container has a title candidate of its own, it also
// stops before a parent that would pull in a sibling's date.
func grow(el *html.Node) *html.Node {
	container := el
	for i := 0; i < maxClimb; i++ {
		parent := container.Parent
		if parent == nil || parent.Type != html.ElementNode || regionTags[parent.Data] {
			break
		}
		dates := countDates(parent)
		if dates > maxContainerDates {
			break
		}
		if dates > countDates(container) && titled(container) {
			break
		}
		container = parent
	}
	return container
}

func titled(n *html.Node) bool {
	return titleLike.MatchFirst(n) != nil || looseTitle(strippedStrings(n)) != ""
}

func countDates(n *html.Node) int {
	count := 0
	for _, t := range strippedStrings(n) {
		if event.HasDate(t) {
			count++
		}
	}
	return count
}
