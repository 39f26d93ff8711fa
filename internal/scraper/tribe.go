package scraper

import (
	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/locate918/eventengine/internal/event"
)

var (
	tribeContainers = cascadia.MustCompile(`.tribe-events-calendar-list__event, .tribe-events-calendar-list__event-row, .tribe_events, .type-tribe_events, [class*="tribe-events"], .tribe-event-featured`)
	tribeList       = cascadia.MustCompile(`.tribe-events-calendar-list`)
	tribeListItem   = cascadia.MustCompile(`article, div, li`)
	tribeTitles     = []cascadia.Selector{
		cascadia.MustCompile(`.tribe-events-calendar-list__event-title a`),
		cascadia.MustCompile(`.tribe-events-calendar-list__event-title`),
		cascadia.MustCompile(`.tribe-event-url`),
		cascadia.MustCompile(`h3 a`),
		cascadia.MustCompile(`h2 a`),
		cascadia.MustCompile(`a[href*="event"]`),
	}
	tribeDates = []cascadia.Selector{
		cascadia.MustCompile(`.tribe-events-calendar-list__event-datetime`),
		cascadia.MustCompile(`.tribe-event-date-start`),
		cascadia.MustCompile(`time`),
		cascadia.MustCompile(`[datetime]`),
		cascadia.MustCompile(`.tribe-event-schedule-details`),
	}
	anchor      = cascadia.MustCompile(`a`)
	eventAnchor = cascadia.MustCompile(`a[href*="event"]`)
)

// Tribe reads listings rendered by The Events Calendar WordPress plugin.
type Tribe struct{}

func (Tribe) Name() string { return "WordPress Events Calendar" }

func (Tribe) Extract(p *Page) []*event.Event {
	containers := p.Doc.FindMatcher(tribeContainers)
	if containers.Length() == 0 {
		containers = p.Doc.FindMatcher(tribeList).ChildrenMatcher(tribeListItem)
	}

	var events []*event.Event
	seen := event.TitleSet{}
	containers.Each(func(_ int, c *goquery.Selection) {
		titleEl := first(c, tribeTitles...)
		if titleEl.Length() == 0 {
			return
		}
		title := text(titleEl)
		if !seen.Add(title) {
			return
		}

		var link string
		if goquery.NodeName(titleEl) == "a" {
			link = attr(titleEl, "href")
		} else if a := first(titleEl, anchor); a.Length() > 0 {
			link = attr(a, "href")
		} else {
			link = attr(first(c, eventAnchor), "href")
		}

		dateText := dateOf(first(c, tribeDates...))
		if dateText == "" {
			body := spacedText(c)
			if d := event.FindDate(body); d != "" {
				dateText = event.JoinDateTime(d, event.FindTime(body))
			}
		}

		evt := p.newEvent(title, dateText)
		evt.SourceURL = p.resolve(link)
		events = append(events, evt)
	})
	return events
}
