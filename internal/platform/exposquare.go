package platform

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dghubble/sling"

	"github.com/locate918/eventengine/internal/event"
	"github.com/locate918/eventengine/internal/logger"
)

// ExpoSquareBaseURL hosts the fairgrounds' Saffire events service.
const ExpoSquareBaseURL = "https://www.exposquare.com"

const (
	expoBatchSize    = 30
	expoHorizonDays  = 365
	expoVenueName    = "Expo Square"
	expoVenueAddress = "4145 E 21st St, Tulsa, OK 74114"
	expoCity         = "Tulsa"
)

// ExpoSquare reads the Saffire CMS events service in two stages: the list of
// days that have events, then event details for batches of those days.
type ExpoSquare struct {
	client  *Client
	BaseURL string
}

// NewExpoSquare creates the Expo Square platform.
func NewExpoSquare(client *Client) *ExpoSquare {
	return &ExpoSquare{client: client, BaseURL: ExpoSquareBaseURL}
}

func (p *ExpoSquare) Name() string { return "Expo Square" }

func (p *ExpoSquare) Detect(_, pageURL string) (Params, bool) {
	if strings.Contains(strings.ToLower(pageURL), "exposquare.com") {
		return Params{BaseURL: p.BaseURL}, true
	}
	return Params{}, false
}

// expoFilter holds the filter fields both service calls share.
type expoFilter struct {
	Day                     string `json:"day"`
	CategoryID              int    `json:"categoryID"`
	TagID                   int    `json:"tagID"`
	Keywords                string `json:"keywords"`
	IsFeatured              string `json:"isFeatured"`
	FanPicks                string `json:"fanPicks"`
	PastEvents              string `json:"pastEvents"`
	AllEvents               string `json:"allEvents"`
	MemberEvents            string `json:"memberEvents"`
	MemberOnly              string `json:"memberOnly"`
	ShowCategoryExceptionID int    `json:"showCategoryExceptionID"`
	IsolatedSchedule        int    `json:"isolatedSchedule"`
	CustomFieldFilters      []any  `json:"customFieldFilters"`
	SearchInDescription     bool   `json:"searchInDescription"`
}

type expoDaysRequest struct {
	expoFilter
	StartDate        string `json:"startDate"`
	EndDate          string `json:"endDate"`
	CurrentUserItems string `json:"currentUserItems"`
	MyPicks          string `json:"myPicks"`
}

type expoDetailsRequest struct {
	expoFilter
	Dates string `json:"dates"`
}

type expoDaysResponse struct {
	D []string `json:"d"`
}

type expoDetailsResponse struct {
	D struct {
		Days []struct {
			DateString string `json:"DateString"`
			Unique     []Raw  `json:"Unique"`
			Times      []struct {
				Unique []Raw `json:"Unique"`
			} `json:"Times"`
		} `json:"Days"`
	} `json:"d"`
}

func newExpoFilter() expoFilter {
	return expoFilter{
		Keywords:            "%25%25",
		IsFeatured:          "false",
		FanPicks:            "false",
		PastEvents:          "false",
		AllEvents:           "false",
		MemberEvents:        "false",
		MemberOnly:          "false",
		CustomFieldFilters:  []any{},
		SearchInDescription: true,
	}
}

func (p *ExpoSquare) service(base, method string) string {
	return base + "/services/eventsservice.asmx/" + method
}

// FetchAndParse lists event days within the next year, then requests details
// 30 days at a time. Multi-day events repeat per day and are kept once per
// EventID.
func (p *ExpoSquare) FetchAndParse(ctx context.Context, params Params, req Request) ([]*event.Event, error) {
	log := req.log().With(logger.Fields{"platform": p.Name()})
	base := strings.TrimRight(params.BaseURL, "/")
	if base == "" {
		base = strings.TrimRight(p.BaseURL, "/")
	}
	col := newCollector(req)

	var days expoDaysResponse
	s := p.request(base).Post(p.service(base, "GetEventDays")).
		BodyJSON(expoDaysRequest{
			expoFilter:       newExpoFilter(),
			CurrentUserItems: "false",
			MyPicks:          "false",
		})
	if err := p.client.ReceiveJSON(ctx, p.Name(), s, &days); err != nil {
		return nil, fmt.Errorf("expo square event days: %w", err)
	}

	dates := upcomingDates(days.D, req.now())
	log.Info("Listed event days", logger.Fields{"upcoming": len(dates), "total": len(days.D)})

	seenID := make(map[string]bool)
	for batch, i := 0, 0; i < len(dates); batch, i = batch+1, i+expoBatchSize {
		if batch >= p.client.MaxPages() {
			return col.events, ErrPageCap
		}
		if err := ctx.Err(); err != nil {
			return col.events, err
		}

		end := i + expoBatchSize
		if end > len(dates) {
			end = len(dates)
		}
		var details expoDetailsResponse
		s := p.request(base).Post(p.service(base, "GetEventDaysByList")).
			BodyJSON(expoDetailsRequest{expoFilter: newExpoFilter(), Dates: strings.Join(dates[i:end], ",")})
		if err := p.client.ReceiveJSON(ctx, p.Name(), s, &details); err != nil {
			log.Warn("Detail batch failed, keeping partial results", logger.Fields{"batch": batch + 1, "events": len(col.events)})
			return col.events, fmt.Errorf("expo square batch %d: %w", batch+1, err)
		}

		for _, day := range details.D.Days {
			unique := day.Unique
			if len(unique) == 0 && len(day.Times) > 0 {
				unique = day.Times[0].Unique
			}
			for _, raw := range unique {
				id := pickID(raw, "EventID")
				if id != "" {
					if seenID[id] {
						continue
					}
					seenID[id] = true
				}
				col.add(p.parse(raw, day.DateString, req))
			}
		}
	}

	log.Info("Fetched events from service", logger.Fields{"events": len(col.events)})
	return col.events, nil
}

func (p *ExpoSquare) request(base string) *sling.Sling {
	return p.client.New().
		Set("Content-Type", "application/json; charset=utf-8").
		Set("Origin", base).
		Set("Referer", base+"/events").
		Set("X-Requested-With", "XMLHttpRequest")
}

func (p *ExpoSquare) parse(raw Raw, dayString string, req Request) *event.Event {
	title := pickStr(raw, "Name")
	if title == "" {
		return nil
	}
	source := req.SourceName
	if source == "" {
		source = expoVenueName
	}

	ref := req.now()
	evt := event.New(title, dayString, source, ref)

	dateRange := pickStr(raw, "EventDateRangeString")
	if parts := strings.Split(dateRange, "-"); len(parts) == 2 {
		evt.SetEnd(strings.TrimSpace(parts[1]), ref)
	}

	evt.SourceURL = pickStr(raw, "DetailURL")
	if img := pickStr(raw, "ImageOrVideoThumbnailWithPath"); !strings.Contains(img, "no_img_available") {
		evt.ImageURL = img
	}
	desc := pickStr(raw, "ShortDescription", "LongDescription")
	if desc == "" {
		desc = dateRange
	}
	evt.SetDescription(desc)

	evt.Venue = expoVenueName
	if locs := records(pickList(raw, "Locations")); len(locs) > 0 {
		if name := pickStr(locs[0], "Name"); name != "" {
			evt.Venue = name
		}
	}
	evt.VenueAddress = expoVenueAddress
	evt.Location = expoCity

	for _, cat := range records(pickList(raw, "CategoryMaps")) {
		if name := pickStr(cat, "CategoryName"); name != "" {
			evt.Categories = append(evt.Categories, name)
		}
	}
	return evt
}

// upcomingDates keeps MM/DD/YYYY dates from today through the next year.
func upcomingDates(all []string, now time.Time) []string {
	today := event.Midnight(now)
	horizon := today.AddDate(0, 0, expoHorizonDays)
	kept := make([]string, 0, len(all))
	for _, d := range all {
		t, err := time.ParseInLocation("1/2/2006", strings.TrimSpace(d), now.Location())
		if err != nil {
			continue
		}
		if t.Before(today) || t.After(horizon) {
			continue
		}
		kept = append(kept, strings.TrimSpace(d))
	}
	return kept
}
