package platform

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/locate918/eventengine/internal/event"
	"github.com/locate918/eventengine/internal/logger"
)

// EventCalendarAppBaseURL is the public events API.
const EventCalendarAppBaseURL = "https://api.eventcalendarapp.com"

var (
	ecaIDThenUUID = regexp.MustCompile(`(?i)eventcalendarapp\.com[^"']*[?&]id=(\d+)[^"']*widgetUuid=([a-f0-9-]+)`)
	ecaUUIDThenID = regexp.MustCompile(`(?i)eventcalendarapp\.com[^"']*widgetUuid=([a-f0-9-]+)[^"']*[?&]id=(\d+)`)
	ecaAPICall    = regexp.MustCompile(`(?i)api\.eventcalendarapp\.com/events\?id=(\d+)[^"']*widgetUuid=([a-f0-9-]+)`)
	ecaIDOnly     = regexp.MustCompile(`(?i)eventcalendarapp\.com[^"']*[?&]id=(\d+)`)
	ecaLooseUUID  = regexp.MustCompile(`(?i)widgetUuid[=:]["']?([a-f0-9-]{36})`)
)

// EventCalendarApp reads calendars embedded with the EventCalendarApp widget.
type EventCalendarApp struct {
	client  *Client
	known   map[string]ECASite
	BaseURL string
}

// NewEventCalendarApp creates the EventCalendarApp platform.
func NewEventCalendarApp(client *Client, known map[string]ECASite) *EventCalendarApp {
	return &EventCalendarApp{client: client, known: known, BaseURL: EventCalendarAppBaseURL}
}

func (p *EventCalendarApp) Name() string { return "EventCalendarApp" }

// Detect checks the known-site table, then the widget's embed parameters in
// either order, then a bare calendar id with a widget token found elsewhere.
func (p *EventCalendarApp) Detect(html, pageURL string) (Params, bool) {
	if site, ok := p.known[event.HostOf(pageURL)]; ok {
		return Params{ID: site.ID, WidgetUUID: site.WidgetUUID}, true
	}
	if m := ecaIDThenUUID.FindStringSubmatch(html); m != nil {
		return Params{ID: m[1], WidgetUUID: m[2]}, true
	}
	if m := ecaUUIDThenID.FindStringSubmatch(html); m != nil {
		return Params{ID: m[2], WidgetUUID: m[1]}, true
	}
	if m := ecaAPICall.FindStringSubmatch(html); m != nil {
		return Params{ID: m[1], WidgetUUID: m[2]}, true
	}
	if m := ecaIDOnly.FindStringSubmatch(html); m != nil {
		params := Params{ID: m[1]}
		if u := ecaLooseUUID.FindStringSubmatch(html); u != nil {
			params.WidgetUUID = u[1]
		}
		return params, true
	}
	return Params{}, false
}

type ecaQuery struct {
	ID         string `url:"id"`
	Page       int    `url:"page"`
	WidgetUUID string `url:"widgetUuid,omitempty"`
}

type ecaResponse struct {
	Events []Raw `json:"events"`
	Pages  struct {
		Total int `json:"total"`
	} `json:"pages"`
}

// FetchAndParse pages through /events until an empty page, the declared page
// total, or the page cap.
func (p *EventCalendarApp) FetchAndParse(ctx context.Context, params Params, req Request) ([]*event.Event, error) {
	log := req.log().With(logger.Fields{"platform": p.Name(), "calendar_id": params.ID})
	col := newCollector(req)

	for page := 1; ; page++ {
		if page > p.client.MaxPages() {
			return col.events, ErrPageCap
		}
		if err := ctx.Err(); err != nil {
			return col.events, err
		}

		var resp ecaResponse
		s := p.client.New().Get(strings.TrimRight(p.BaseURL, "/") + "/events").
			QueryStruct(ecaQuery{ID: params.ID, Page: page, WidgetUUID: params.WidgetUUID})
		if err := p.client.ReceiveJSON(ctx, p.Name(), s, &resp); err != nil {
			log.Warn("Page request failed, keeping partial results", logger.Fields{"page": page, "events": len(col.events)})
			return col.events, fmt.Errorf("eventcalendarapp page %d: %w", page, err)
		}
		if len(resp.Events) == 0 {
			break
		}
		for _, raw := range resp.Events {
			col.add(p.parse(raw, req))
		}

		total := resp.Pages.Total
		if total <= 0 {
			total = 1
		}
		if page >= total {
			break
		}
	}

	log.Info("Fetched events from API", logger.Fields{"events": len(col.events)})
	return col.events, nil
}

func (p *EventCalendarApp) parse(raw Raw, req Request) *event.Event {
	title := pickStr(raw, "summary")
	if title == "" {
		return nil
	}
	ref := req.now()
	evt := event.New(title, pickStr(raw, "timezoneStart"), req.SourceName, ref)
	evt.SetEnd(pickStr(raw, "timezoneEnd"), ref)

	if venue := nestedStr(raw, "location", "description"); venue != "" {
		evt.Venue = venue
	}
	evt.SetDescription(pickStr(raw, "shortDescription", "description"))
	evt.ImageURL = pickStr(raw, "image", "thumbnail")
	evt.TicketsURL = pickStr(raw, "ticketsLink")
	evt.SourceURL = pickStr(raw, "url")
	evt.Featured = pickBool(raw, "featured")
	return evt
}
