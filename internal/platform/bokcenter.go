package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/locate918/eventengine/internal/event"
	"github.com/locate918/eventengine/internal/logger"
	"github.com/locate918/eventengine/internal/metrics"
)

// BOKCenterBaseURL is the arena site serving the listing fragments.
const BOKCenterBaseURL = "https://www.bokcenter.com"

const (
	bokPerPage    = 6
	bokMinHTML    = 50
	bokMaxClimb   = 8
	bokVenueName  = "BOK Center"
	bokDetailPath = "/events/detail/"
)

var monthAbbrevs = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// BOKCenter reads the arena's AJAX listing, which answers with an HTML
// fragment wrapped in a JSON string.
type BOKCenter struct {
	client  *Client
	hosts   []string
	BaseURL string
}

// NewBOKCenter creates the BOK Center platform.
func NewBOKCenter(client *Client, hosts []string) *BOKCenter {
	return &BOKCenter{client: client, hosts: hosts, BaseURL: BOKCenterBaseURL}
}

func (p *BOKCenter) Name() string { return "BOK Center" }

func (p *BOKCenter) Detect(_, pageURL string) (Params, bool) {
	if hostIn(pageURL, p.hosts) {
		return Params{BaseURL: p.BaseURL}, true
	}
	return Params{}, false
}

type bokQuery struct {
	Category     int    `url:"category"`
	Venue        int    `url:"venue"`
	Team         int    `url:"team"`
	Exclude      string `url:"exclude"`
	PerPage      int    `url:"per_page"`
	CameFromPage string `url:"came_from_page"`
}

// FetchAndParse walks the listing by offset until a fragment is empty or
// holds no event links. Events are deduplicated by detail URL.
func (p *BOKCenter) FetchAndParse(ctx context.Context, params Params, req Request) ([]*event.Event, error) {
	log := req.log().With(logger.Fields{"platform": p.Name()})
	base := strings.TrimRight(params.BaseURL, "/")
	if base == "" {
		base = strings.TrimRight(p.BaseURL, "/")
	}

	col := newCollector(req)
	seenURL := make(map[string]bool)

	for page := 0; ; page++ {
		if page >= p.client.MaxPages() {
			return col.events, ErrPageCap
		}
		if err := ctx.Err(); err != nil {
			return col.events, err
		}

		offset := page * bokPerPage
		s := p.client.New().
			Get(fmt.Sprintf("%s/events/events_ajax/%d", base, offset)).
			QueryStruct(bokQuery{PerPage: bokPerPage, CameFromPage: "event-list-page"})
		body, err := p.client.ReceiveText(ctx, p.Name(), s)
		if err != nil {
			log.Warn("Listing request failed, keeping partial results", logger.Fields{"offset": offset, "events": len(col.events)})
			return col.events, fmt.Errorf("bok center offset %d: %w", offset, err)
		}

		fragment := body
		var decoded string
		if json.Unmarshal([]byte(body), &decoded) == nil {
			fragment = decoded
		}
		if len(strings.TrimSpace(fragment)) < bokMinHTML {
			break
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
		if err != nil {
			log.Warn("Unparseable listing fragment", logger.Fields{"offset": offset})
			break
		}
		links := doc.Find("h3 a")
		if links.Length() == 0 {
			links = doc.Find(`a[href*="/events/detail/"]`)
		}
		if links.Length() == 0 {
			break
		}

		links.Each(func(_ int, a *goquery.Selection) {
			title := event.CollapseWhitespace(a.Text())
			href, _ := a.Attr("href")
			if title == "" || !strings.Contains(href, bokDetailPath) {
				return
			}
			detail := event.ResolveURL(base+"/", href)
			if seenURL[detail] {
				return
			}
			seenURL[detail] = true

			dateText := bokDateText(a)
			if repaired, changed := event.RepairDuplicatedDate(dateText); changed {
				log.Debug("Repaired duplicated date", logger.Fields{"from": dateText, "to": repaired})
				metrics.RepairsApplied.WithLabelValues("duplicated_date").Inc()
				dateText = repaired
			}

			evt := event.New(title, dateText, req.SourceName, req.now())
			evt.Venue = bokVenueName
			evt.SourceURL = detail
			col.add(evt)
		})
	}

	log.Info("Fetched events from listing", logger.Fields{"events": len(col.events)})
	return col.events, nil
}

// bokDateText climbs from the title link until an ancestor holds spans whose
// text names a month, and returns those span texts joined.
func bokDateText(a *goquery.Selection) string {
	container := a.Parent()
	for i := 0; i < bokMaxClimb && container.Length() > 0; i++ {
		var parts []string
		container.Find("span").Each(func(_ int, s *goquery.Selection) {
			if t := strings.TrimSpace(s.Text()); t != "" {
				parts = append(parts, t)
			}
		})
		joined := strings.Join(parts, " ")
		for _, m := range monthAbbrevs {
			if strings.Contains(joined, m) {
				return event.CollapseWhitespace(joined)
			}
		}
		container = container.Parent()
	}
	return ""
}
