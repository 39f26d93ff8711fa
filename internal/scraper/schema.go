package scraper

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/locate918/eventengine/internal/event"
)

var ldJSON = cascadia.MustCompile(`script[type="application/ld+json"]`)

// eventTypes are the schema.org Event specialisations that do not end in
// "Event".
var eventTypes = map[string]bool{
	"Festival":       true,
	"CourseInstance": true,
	"EventSeries":    true,
}

// SchemaOrg reads schema.org Event objects from JSON-LD blocks.
type SchemaOrg struct{}

func (SchemaOrg) Name() string { return "Schema.org" }

// Extract accepts a single object, an array, an @graph container, or an
// ItemList per block. A block that does not parse is skipped.
func (SchemaOrg) Extract(p *Page) []*event.Event {
	var events []*event.Event
	p.Doc.FindMatcher(ldJSON).Each(func(_ int, s *goquery.Selection) {
		var data any
		if err := json.Unmarshal([]byte(strings.TrimSpace(s.Text())), &data); err != nil {
			return
		}
		for _, item := range schemaItems(data, 0) {
			if evt := schemaEvent(p, item); evt != nil {
				events = append(events, evt)
			}
		}
	})
	return events
}

func schemaItems(data any, depth int) []map[string]any {
	if depth > 3 {
		return nil
	}
	var items []map[string]any
	for _, m := range jsonMaps(data) {
		if graph, ok := m["@graph"]; ok {
			items = append(items, schemaItems(graph, depth+1)...)
			continue
		}
		if list, ok := m["itemListElement"]; ok {
			for _, el := range jsonMaps(list) {
				if inner, ok := el["item"]; ok {
					items = append(items, schemaItems(inner, depth+1)...)
				} else {
					items = append(items, el)
				}
			}
			continue
		}
		items = append(items, m)
	}
	return items
}

// isEventType reports whether @type, a string or an array of strings, names
// Event or one of its specialisations.
func isEventType(v any) bool {
	switch t := v.(type) {
	case string:
		name := t
		if i := strings.LastIndexAny(name, "/:"); i >= 0 {
			name = name[i+1:]
		}
		return strings.HasSuffix(name, "Event") || eventTypes[name]
	case []any:
		for _, item := range t {
			if isEventType(item) {
				return true
			}
		}
	}
	return false
}

func schemaEvent(p *Page, item map[string]any) *event.Event {
	if !isEventType(item["@type"]) {
		return nil
	}
	title := event.StripHTML(jsonStr(item, "name"))
	if strings.TrimSpace(title) == "" {
		return nil
	}

	evt := p.newEvent(title, jsonStr(item, "startDate"))
	evt.SetEnd(jsonStr(item, "endDate"), p.Now)

	if locs := jsonMaps(item["location"]); len(locs) > 0 {
		if name := jsonStr(locs[0], "name"); name != "" {
			evt.Venue = name
		}
		evt.VenueAddress = schemaAddress(locs[0]["address"])
		if addr := jsonMap(locs[0]["address"]); addr != nil {
			evt.Location = jsonStr(addr, "addressLocality")
		}
	} else if name, ok := item["location"].(string); ok && strings.TrimSpace(name) != "" {
		evt.Venue = strings.TrimSpace(name)
	}

	evt.SetDescription(jsonStr(item, "description"))
	evt.SourceURL = p.resolve(jsonStr(item, "url"))
	evt.ImageURL = p.resolve(jsonText(item["image"], "url", "contentUrl"))

	for _, offer := range jsonMaps(item["offers"]) {
		if evt.TicketsURL == "" {
			evt.TicketsURL = p.resolve(jsonStr(offer, "url"))
		}
		low, okLow := jsonFloat(offer, "lowPrice", "price")
		high, okHigh := jsonFloat(offer, "highPrice", "price")
		if okLow && (evt.PriceMin == nil || low < *evt.PriceMin) {
			evt.SetPrices(&low, nil)
		}
		if okHigh && (evt.PriceMax == nil || high > *evt.PriceMax) {
			evt.SetPrices(nil, &high)
		}
	}
	if free, ok := item["isAccessibleForFree"].(bool); ok && free {
		evt.Free()
	}
	return evt
}

func schemaAddress(v any) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	addr := jsonMap(v)
	if addr == nil {
		return ""
	}
	var parts []string
	for _, k := range []string{"streetAddress", "addressLocality", "addressRegion", "postalCode"} {
		if s := jsonStr(addr, k); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}
