package scraper

import (
	"encoding/json"
	"regexp"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/locate918/eventengine/internal/event"
	"github.com/locate918/eventengine/internal/logger"
)

// EtixPerformanceURL is the public page of one Etix performance.
const EtixPerformanceURL = "https://www.etix.com/ticket/p/"

var (
	etixAPIData    = cascadia.MustCompile(`script[type="etix-api-data"]`)
	etixDivs       = cascadia.MustCompile(`div`)
	etixTicketLink = cascadia.MustCompile(`a[href*="ticket"]`)
	shortMonthDay  = regexp.MustCompile(`(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\s+\d`)

	etixNativeLinks   = NewLinkExtractor(etixNative)
	etixOutboundLinks = NewLinkExtractor(etixOutbound)
)

// Etix reads performances from captured Etix API responses, from Etix's own
// venue pages, and from etix.com links on other pages.
//
// The renderer stores API responses it intercepts in
// <script type="etix-api-data"> elements. When they yield events nothing
// else is consulted.
type Etix struct{}

func (Etix) Name() string { return "Etix" }

func (Etix) Extract(p *Page) []*event.Event {
	seen := make(map[string]bool)
	if events := etixFromAPIData(p, seen); len(events) > 0 {
		return events
	}

	var events []*event.Event
	if IsEtixHost(p.URL) {
		events = etixNativeLinks.extract(p, seen)
		if len(events) == 0 {
			events = etixTextCards(p, seen)
		}
	}
	return append(events, etixOutboundLinks.extract(p, seen)...)
}

func etixFromAPIData(p *Page, seen map[string]bool) []*event.Event {
	var events []*event.Event
	p.Doc.FindMatcher(etixAPIData).Each(func(_ int, s *goquery.Selection) {
		var data any
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			p.log().Debug("Skipping unparseable Etix API data", logger.Fields{"error": err.Error()})
			return
		}
		var perfs []map[string]any
		switch v := data.(type) {
		case []any:
			for _, item := range jsonMaps(v) {
				if nested := jsonMap(item["performance"]); nested != nil {
					item = nested
				}
				perfs = append(perfs, item)
			}
		case map[string]any:
			for _, key := range []string{"results", "performances", "events"} {
				if list := jsonMaps(v[key]); len(list) > 0 {
					perfs = list
					break
				}
			}
		}
		for _, perf := range perfs {
			if evt := etixPerformance(p, perf); evt != nil && !seen[evt.SourceURL] {
				seen[evt.SourceURL] = true
				events = append(events, evt)
			}
		}
	})
	return events
}

func etixPerformance(p *Page, perf map[string]any) *event.Event {
	title := jsonStr(perf, "name", "title", "performanceName")
	if title == "" {
		return nil
	}
	dateText := jsonStr(perf, "performanceDate", "date", "startDate")
	if clock := jsonStr(perf, "performanceTime", "time", "startTime"); dateText != "" && clock != "" {
		dateText += " " + clock
	}

	evt := p.newEvent(title, dateText)
	evt.SourceURL = p.URL
	if id := jsonStr(perf, "performanceID", "id"); id != "" {
		evt.SourceURL = EtixPerformanceURL + id
	}
	evt.TicketsURL = evt.SourceURL
	evt.ImageURL = jsonStr(perf, "imageUrl", "image", "performanceImage")
	if venue := jsonStr(perf, "venueName", "venue"); venue != "" {
		evt.Venue = venue
	}
	return evt
}

// etixTextCards is the last resort on Etix pages: short blocks that mention
// a month and day and carry a ticket link become events titled by their text.
func etixTextCards(p *Page, seen map[string]bool) []*event.Event {
	var events []*event.Event
	p.Doc.FindMatcher(etixDivs).Each(func(_ int, div *goquery.Selection) {
		body := spacedText(div)
		if len(body) <= 10 || len(body) >= 200 || !shortMonthDay.MatchString(body) {
			return
		}
		link := p.resolve(attr(first(div, etixTicketLink), "href"))
		if link == "" || seen[link] {
			return
		}
		seen[link] = true
		evt := p.newEvent(event.Truncate(body, 100), "")
		evt.SourceURL = link
		evt.TicketsURL = link
		events = append(events, evt)
	})
	return events
}
