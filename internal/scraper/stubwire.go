package scraper

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/locate918/eventengine/internal/event"
)

var (
	stubwireLinks  = cascadia.MustCompile(`a[href*="/event/"]`)
	stubwireBlock  = cascadia.MustCompile(`div, article, li`)
	stubwireImage  = cascadia.MustCompile(`img[src*="stubwire"]`)
	stubwireTicket = cascadia.MustCompile(`a[href*="stubwire.com"]`)

	dayBefore = regexp.MustCompile(`(\d{1,2})\s*$`)
	dayAfter  = regexp.MustCompile(`^[\s,]*(\d{1,2})`)
	clockTime = regexp.MustCompile(`(\d{1,2}:\d{2}\s*[APap][Mm])`)
)

var stubwireSkip = map[string]bool{
	"buy tickets":         true,
	"more info":           true,
	"all session tickets": true,
}

// Stubwire reads venue pages powered by Stubwire, where each event title
// links to /event/{id}/{slug}/ and the day number and month abbreviation sit
// in separate elements of the same card.
type Stubwire struct{}

func (Stubwire) Name() string { return "Stubwire" }

func (Stubwire) Extract(p *Page) []*event.Event {
	var events []*event.Event
	seen := make(map[string]bool)
	p.Doc.FindMatcher(stubwireLinks).Each(func(_ int, a *goquery.Selection) {
		href := attr(a, "href")
		title := text(a)
		if len(title) < 2 || stubwireSkip[strings.ToLower(title)] {
			return
		}
		if seen[href] {
			return
		}
		seen[href] = true

		card := ancestor(a, stubwireBlock)
		evt := p.newEvent(title, stubwireDate(spacedText(card)))
		evt.SourceURL = p.resolve(href)
		evt.ImageURL = p.resolve(attr(first(card, stubwireImage), "src"))
		evt.TicketsURL = p.resolve(attr(first(card, stubwireTicket), "href"))
		events = append(events, evt)
	})
	return events
}

// stubwireDate finds "06 Feb" or "Feb 06" and a clock time in card text.
func stubwireDate(card string) string {
	var date string
	for _, month := range monthAbbrevs {
		idx := strings.Index(card, month)
		if idx < 0 {
			continue
		}
		if m := dayBefore.FindStringSubmatch(strings.TrimSpace(card[:idx])); m != nil {
			date = month + " " + m[1]
			break
		}
		if m := dayAfter.FindStringSubmatch(strings.TrimSpace(card[idx+len(month):])); m != nil {
			date = month + " " + m[1]
			break
		}
	}
	var clock string
	if m := clockTime.FindStringSubmatch(card); m != nil {
		clock = m[1]
	}
	return event.JoinDateTime(date, clock)
}

var monthAbbrevs = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}
