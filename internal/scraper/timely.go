package scraper

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/locate918/eventengine/internal/event"
	"github.com/locate918/eventengine/internal/logger"
	"github.com/locate918/eventengine/internal/metrics"
)

var (
	timelyContainers = cascadia.MustCompile(`.timely-event, [data-event-id], .timely-calendar .event, .tc-event, .timely-agenda-event, .agenda-event`)
	timelyGroups     = cascadia.MustCompile(`[class*="agenda"], [class*="event-list"]`)
	timelyGroupItems = cascadia.MustCompile(`a[href*="event"], div[class*="event"], li`)
	timelyTitles     = []cascadia.Selector{
		cascadia.MustCompile(`.timely-title, .event-title, [class*="title"]:not([class*="subtitle"])`),
		cascadia.MustCompile(`h1, h2, h3, h4`),
		cascadia.MustCompile(`a[href]`),
	}
	timelyDate = cascadia.MustCompile(`.timely-date, .event-date, time, [class*="date"]:not([class*="update"])`)
	hrefAnchor = cascadia.MustCompile(`a[href]`)

	// timelyChrome matches widget navigation rendered with event styling.
	timelyChrome = regexp.MustCompile(`(?i)\b(?:read full|more|view all|click here|get a timely|powered by|buy tickets)\b`)
)

var inlineTags = map[string]bool{"span": true, "strong": true, "b": true, "em": true}

// TimelyWidget reads the markup rendered by the Timely calendar widget.
type TimelyWidget struct{}

func (TimelyWidget) Name() string { return "Timely HTML" }

func (TimelyWidget) Extract(p *Page) []*event.Event {
	return TimelyHTML(p)
}

// TimelyHTML extracts events from rendered Timely widget markup. Titles are
// built from the title element's own text and inline children, leaving out
// tag badges, then repaired for the widget's doubled and tag-polluted text.
func TimelyHTML(p *Page) []*event.Event {
	containers := p.Doc.FindMatcher(timelyContainers)
	if containers.Length() == 0 {
		containers = p.Doc.FindMatcher(timelyGroups).FindMatcher(timelyGroupItems)
	}

	log := p.log()
	var events []*event.Event
	seen := event.TitleSet{}
	containers.Each(func(_ int, c *goquery.Selection) {
		titleEl := first(c, timelyTitles...)
		if titleEl.Length() == 0 {
			return
		}
		title := timelyTitle(titleEl)
		if collapsed, changed := event.CollapseDoubled(title); changed {
			metrics.RepairsApplied.WithLabelValues("doubled_text").Inc()
			title = collapsed
		}
		if len(title) < 3 || timelyChrome.MatchString(title) {
			return
		}
		if len(title) > 50 && strings.Count(title, " ") < 3 {
			return
		}
		if repaired, changed := event.RepairTaggedTitle(title); changed {
			log.Debug("Repaired tag-polluted title", logger.Fields{"from": title, "to": repaired})
			metrics.RepairsApplied.WithLabelValues("tagged_title").Inc()
			title = repaired
		}
		if len(title) < 3 || !seen.Add(title) {
			return
		}

		evt := p.newEvent(title, timelyDateText(c))
		link := c
		if goquery.NodeName(c) != "a" {
			link = first(c, hrefAnchor)
		}
		evt.SourceURL = p.resolve(attr(link, "href"))
		events = append(events, evt)
	})
	return events
}

// timelyTitle joins the element's direct text with inline children whose
// class does not mark them as tags.
func timelyTitle(s *goquery.Selection) string {
	var parts []string
	for c := s.Get(0).FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == html.TextNode:
			parts = append(parts, c.Data)
		case c.Type == html.ElementNode && inlineTags[c.Data] && !classContains(c, "tag"):
			parts = append(parts, strippedStrings(c)...)
		}
	}
	title := event.CollapseWhitespace(strings.Join(parts, " "))
	if title == "" {
		title = text(s)
	}
	return title
}

func classContains(n *html.Node, sub string) bool {
	for _, a := range n.Attr {
		if a.Key == "class" && strings.Contains(strings.ToLower(a.Val), sub) {
			return true
		}
	}
	return false
}

func timelyDateText(c *goquery.Selection) string {
	if el := first(c, timelyDate); el.Length() > 0 {
		if dt := attr(el, "datetime"); dt != "" {
			return dt
		}
		if dt := event.DateTimeFromText(text(el)); dt != "" {
			return dt
		}
	}
	return event.DateTimeFromText(spacedText(c))
}
