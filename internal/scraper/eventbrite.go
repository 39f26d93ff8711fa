package scraper

import (
	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/locate918/eventengine/internal/event"
)

var (
	ebContainers = cascadia.MustCompile(`[class*="eventbrite"], [data-eventbrite], .eb-event`)
	ebTitle      = cascadia.MustCompile(`.eb-event-title, .event-title, h3, h2`)
	ebLink       = cascadia.MustCompile(`a[href*="eventbrite.com"]`)
	ebDate       = cascadia.MustCompile(`.eb-event-date, .event-date, time`)
)

// EventbriteEmbed reads Eventbrite widgets embedded in venue pages.
type EventbriteEmbed struct{}

func (EventbriteEmbed) Name() string { return "Eventbrite" }

func (EventbriteEmbed) Extract(p *Page) []*event.Event {
	var events []*event.Event
	seen := event.TitleSet{}
	p.Doc.FindMatcher(ebContainers).Each(func(_ int, c *goquery.Selection) {
		title := text(first(c, ebTitle))
		if !seen.Add(title) {
			return
		}
		evt := p.newEvent(title, text(first(c, ebDate)))
		evt.SourceURL = p.resolve(attr(first(c, ebLink), "href"))
		events = append(events, evt)
	})
	return events
}
