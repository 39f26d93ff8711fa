package platform

import (
	"context"
	"fmt"
	"strings"

	"github.com/locate918/eventengine/internal/event"
	"github.com/locate918/eventengine/internal/logger"
)

// EventbriteBaseURL serves the destination search API.
const EventbriteBaseURL = "https://www.eventbrite.com"

// Eventbrite reads the destination search behind eventbrite.com city pages.
type Eventbrite struct {
	client  *Client
	places  []Place
	BaseURL string
}

// NewEventbrite creates the Eventbrite platform. The first place is used when
// the page URL names none of them.
func NewEventbrite(client *Client, places []Place) *Eventbrite {
	return &Eventbrite{client: client, places: places, BaseURL: EventbriteBaseURL}
}

func (p *Eventbrite) Name() string { return "Eventbrite API" }

func (p *Eventbrite) Detect(_, pageURL string) (Params, bool) {
	lower := strings.ToLower(pageURL)
	if !strings.Contains(lower, "eventbrite.com") {
		return Params{}, false
	}
	params := Params{BaseURL: p.BaseURL}
	for _, place := range p.places {
		if strings.Contains(lower, place.Slug) {
			params.PlaceID = place.ID
			return params, true
		}
	}
	if len(p.places) > 0 {
		params.PlaceID = p.places[0].ID
	}
	return params, true
}

type eventbriteSearch struct {
	PlaceID string `json:"placeId"`
	Tab     string `json:"tab"`
}

type eventbriteResponse struct {
	Events []Raw `json:"events"`
}

// FetchAndParse posts one search for the place; the endpoint is not paged.
func (p *Eventbrite) FetchAndParse(ctx context.Context, params Params, req Request) ([]*event.Event, error) {
	log := req.log().With(logger.Fields{"platform": p.Name(), "place_id": params.PlaceID})
	base := strings.TrimRight(params.BaseURL, "/")
	if base == "" {
		base = strings.TrimRight(p.BaseURL, "/")
	}

	var resp eventbriteResponse
	s := p.client.New().
		Set("Referer", base+"/").
		Set("Origin", base).
		Post(base + "/home/api/search/").
		BodyJSON(eventbriteSearch{PlaceID: params.PlaceID, Tab: "all"})
	if err := p.client.ReceiveJSON(ctx, p.Name(), s, &resp); err != nil {
		return nil, fmt.Errorf("eventbrite search: %w", err)
	}

	col := newCollector(req)
	for _, raw := range resp.Events {
		col.add(p.parse(raw, base, req))
	}
	log.Info("Fetched events from search", logger.Fields{"raw": len(resp.Events), "events": len(col.events)})
	return col.events, nil
}

func (p *Eventbrite) parse(raw Raw, base string, req Request) *event.Event {
	title := pickStr(raw, "name")
	if title == "" {
		return nil
	}
	source := req.SourceName
	if source == "" {
		source = "Eventbrite"
	}

	start := ""
	if date := pickStr(raw, "start_date"); date != "" {
		clock := pickStr(raw, "start_time")
		if clock == "" {
			clock = "00:00:00"
		}
		start = date + "T" + clock
	}
	end := pickStr(raw, "end_date")
	if clock := pickStr(raw, "end_time"); end != "" && clock != "" {
		end += "T" + clock
	}

	ref := req.now()
	evt := event.New(title, start, source, ref)
	evt.SetEnd(end, ref)

	venue := pickMap(raw, "primary_venue")
	evt.Venue = "TBA"
	if name := pickStr(venue, "name"); name != "" {
		evt.Venue = name
	}
	address := pickMap(venue, "address")
	evt.VenueAddress = joinNonEmpty(", ",
		pickStr(address, "address_1"),
		pickStr(address, "city"),
		pickStr(address, "region"),
		pickStr(address, "postal_code"),
	)
	evt.Location = "Tulsa"
	if city := pickStr(address, "city"); city != "" {
		evt.Location = city
	}
	if pickBool(raw, "is_online_event") {
		evt.Venue = "Online Event"
	}

	tickets := pickMap(raw, "ticket_availability")
	if pickBool(tickets, "is_free") {
		evt.Free()
	} else {
		var min, max *float64
		if v, ok := pickFloat(pickMap(tickets, "minimum_ticket_price"), "major_value"); ok {
			min = &v
		}
		if v, ok := pickFloat(pickMap(tickets, "maximum_ticket_price"), "major_value"); ok {
			max = &v
		}
		evt.SetPrices(min, max)
	}

	evt.ImageURL = nestedStr(raw, "image", "url")
	evt.SourceURL = pickStr(raw, "url")
	if evt.SourceURL == "" {
		if id := pickID(raw, "id"); id != "" {
			evt.SourceURL = base + "/e/" + id
		}
	}
	evt.SetDescription(pickStr(raw, "summary"))
	return evt
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
