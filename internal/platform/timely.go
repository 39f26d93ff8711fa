package platform

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/locate918/eventengine/internal/event"
	"github.com/locate918/eventengine/internal/logger"
	"github.com/locate918/eventengine/internal/metrics"
	"github.com/locate918/eventengine/internal/scraper"
)

// TimelyBaseURL is the public Timely events API.
const TimelyBaseURL = "https://events.timely.fun"

const timelyPerPage = 30

var (
	timelyDataAttr = regexp.MustCompile(`(?i)data-calendar-id[=:]["']?(\d+)`)
	timelyEmbedURL = regexp.MustCompile(`(?i)events\.timely\.fun/(?:api/calendars/)?(\d+)`)
	timelyAppURL   = regexp.MustCompile(`(?i)timelyapp\.time\.ly/[^/]*/calendars/(\d+)`)
)

// Timely reads calendars published with the Timely widget. When the API
// yields nothing the rendered widget markup is scraped instead.
type Timely struct {
	client   *Client
	known    map[string]string
	BaseURL  string
	Timezone string
}

// NewTimely creates the Timely platform.
func NewTimely(client *Client, known map[string]string) *Timely {
	return &Timely{client: client, known: known, BaseURL: TimelyBaseURL, Timezone: "America/Chicago"}
}

func (p *Timely) Name() string { return "Timely" }

func (p *Timely) Detect(html, pageURL string) (Params, bool) {
	if id, ok := p.known[event.HostOf(pageURL)]; ok {
		return Params{ID: id, Referer: pageURL}, true
	}
	for _, re := range []*regexp.Regexp{timelyDataAttr, timelyEmbedURL, timelyAppURL} {
		if m := re.FindStringSubmatch(html); m != nil {
			return Params{ID: m[1], Referer: pageURL}, true
		}
	}
	return Params{}, false
}

type timelyQuery struct {
	GroupByDate  int    `url:"group_by_date"`
	Timezone     string `url:"timezone"`
	View         string `url:"view"`
	StartDateUTC int64  `url:"start_date_utc"`
	PerPage      int    `url:"per_page"`
	Page         int    `url:"page"`
}

type timelyResponse struct {
	Data struct {
		Items []struct {
			Events []Raw `json:"events"`
		} `json:"items"`
		Total int `json:"total"`
	} `json:"data"`
}

// FetchAndParse pages through the agenda view starting now. The API only
// answers requests that carry the embedding site as Referer and Origin.
func (p *Timely) FetchAndParse(ctx context.Context, params Params, req Request) ([]*event.Event, error) {
	log := req.log().With(logger.Fields{"platform": p.Name(), "calendar_id": params.ID})
	col := newCollector(req)
	start := req.now().Unix()
	fetched := 0

	var fetchErr error
	for page := 1; ; page++ {
		if page > p.client.MaxPages() {
			fetchErr = ErrPageCap
			break
		}
		if err := ctx.Err(); err != nil {
			fetchErr = err
			break
		}

		s := p.client.New().
			Get(fmt.Sprintf("%s/api/calendars/%s/events", strings.TrimRight(p.BaseURL, "/"), url.PathEscape(params.ID))).
			QueryStruct(timelyQuery{
				GroupByDate:  1,
				Timezone:     p.Timezone,
				View:         "agenda",
				StartDateUTC: start,
				PerPage:      timelyPerPage,
				Page:         page,
			})
		if params.Referer != "" {
			s = s.Set("Referer", params.Referer).Set("Origin", origin(params.Referer))
		}

		var resp timelyResponse
		if err := p.client.ReceiveJSON(ctx, p.Name(), s, &resp); err != nil {
			log.Warn("Page request failed, keeping partial results", logger.Fields{"page": page, "events": len(col.events)})
			fetchErr = fmt.Errorf("timely page %d: %w", page, err)
			break
		}
		if len(resp.Data.Items) == 0 {
			break
		}
		for _, item := range resp.Data.Items {
			for _, raw := range item.Events {
				fetched++
				col.add(p.parse(raw, req, log))
			}
		}
		if fetched >= resp.Data.Total {
			break
		}
	}

	if fetched > 0 {
		log.Info("Fetched events from API", logger.Fields{"raw": fetched, "events": len(col.events)})
		return col.events, fetchErr
	}

	log.Info("API returned no events, reading widget markup", nil)
	page, err := scraper.NewPage(req.HTML, req.PageURL, req.SourceName, req.now())
	if err != nil {
		return nil, fetchErr
	}
	for _, evt := range scraper.TimelyHTML(page) {
		col.add(evt)
	}
	return col.events, fetchErr
}

func (p *Timely) parse(raw Raw, req Request, log *logger.Logger) *event.Event {
	title := pickStr(raw, "title")
	if repaired, changed := event.RepairTaggedTitle(title); changed {
		log.Debug("Repaired tag-polluted title", logger.Fields{"from": title, "to": repaired})
		metrics.RepairsApplied.WithLabelValues("tagged_title").Inc()
		title = repaired
	}
	if title == "" {
		return nil
	}

	ref := req.now()
	evt := event.New(title, pickStr(raw, "start_datetime"), req.SourceName, ref)
	evt.SetEnd(pickStr(raw, "end_datetime"), ref)

	if venue := nestedStr(raw, "venue", "name"); venue != "" {
		evt.Venue = venue
	}
	evt.VenueAddress = nestedStr(raw, "venue", "address")
	evt.SetDescription(pickStr(raw, "description", "excerpt"))
	evt.ImageURL = strOrNested(raw, "featured_image", "url")
	evt.SourceURL = pickStr(raw, "url", "canonical_url")
	evt.TicketsURL = pickStr(raw, "ticket_url", "custom_ticket_url")
	return evt
}

func origin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return strings.TrimRight(rawURL, "/")
	}
	return u.Scheme + "://" + u.Host
}
