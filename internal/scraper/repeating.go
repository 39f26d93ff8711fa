package scraper

import (
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/locate918/eventengine/internal/event"
)

// listItems are the candidate list and grid shapes, most specific last.
var listItems = []cascadia.Selector{
	cascadia.MustCompile(`ul > li`),
	cascadia.MustCompile(`ol > li`),
	cascadia.MustCompile(`.events-list > div`),
	cascadia.MustCompile(`.events-list > article`),
	cascadia.MustCompile(`.event-list > div`),
	cascadia.MustCompile(`.event-list > article`),
	cascadia.MustCompile(`[class*="list"] > [class*="item"]`),
	cascadia.MustCompile(`[class*="events"] > [class*="event"]`),
	cascadia.MustCompile(`[class*="calendar"] > div`),
	cascadia.MustCompile(`.row > .col`),
	cascadia.MustCompile(`table tbody tr`),
}

var itemTitle = cascadia.MustCompile(`h1, h2, h3, h4, h5, h6, a[href], [class*="title"], strong`)

const (
	minListItems   = 2
	minSimilarRate = 0.5
	maxTitleRunes  = 100
	minLooseTitle  = 5
)

// Repeating finds templated lists: a candidate shape is accepted when at
// least two items exist and at least half share the first item's class
// signature. Only items that mention a date become events.
type Repeating struct{}

func (Repeating) Name() string { return "Repeating structures" }

func (Repeating) Extract(p *Page) []*event.Event {
	var events []*event.Event
	seen := event.TitleSet{}
	for _, m := range listItems {
		items := p.Doc.FindMatcher(m)
		if !templated(items) {
			continue
		}
		items.Each(func(_ int, item *goquery.Selection) {
			body := spacedText(item)
			if !event.HasDate(body) {
				return
			}
			title := text(first(item, itemTitle))
			if title == "" {
				title = looseTitle(strippedStrings(item.Nodes...))
			}
			if !seen.Add(title) {
				return
			}
			evt := p.newEvent(title, event.DateTimeFromText(body))
			evt.SourceURL = p.resolve(attr(first(item, hrefAnchor), "href"))
			events = append(events, evt)
		})
	}
	return events
}

func templated(items *goquery.Selection) bool {
	if items.Length() < minListItems {
		return false
	}
	want := classSignature(items.First())
	similar := 0
	items.Each(func(_ int, s *goquery.Selection) {
		if classSignature(s) == want {
			similar++
		}
	})
	return similar >= minListItems && float64(similar) >= float64(items.Length())*minSimilarRate
}

// classSignature is the sorted set of an element's classes.
func classSignature(s *goquery.Selection) string {
	classes := strings.Fields(attr(s, "class"))
	sort.Strings(classes)
	var out []string
	for _, c := range classes {
		if len(out) == 0 || out[len(out)-1] != c {
			out = append(out, c)
		}
	}
	return strings.Join(out, " ")
}

// looseTitle picks the first substantial string that is not itself a date
// or time.
func looseTitle(texts []string) string {
	for _, t := range texts {
		if len(t) > minLooseTitle && !event.HasDate(t) && !event.HasTime(t) {
			return event.Truncate(t, maxTitleRunes)
		}
	}
	return ""
}
