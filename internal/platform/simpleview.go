package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/locate918/eventengine/internal/event"
	"github.com/locate918/eventengine/internal/logger"
)

const (
	simpleviewBatch    = 100
	simpleviewMaxToken = 100
	simpleviewCity     = "Tulsa"
	simpleviewDay      = "2006-01-02"
	// Listings are keyed to 06:00 UTC, midnight in the site's zone.
	simpleviewDayStart = "T06:00:00.000Z"
)

// WebsiteResolver finds a venue's own website from its listing page on an
// aggregator site. Implementations cache and may return "".
type WebsiteResolver interface {
	Resolve(ctx context.Context, listingURL string) string
}

// Simpleview reads events from Simpleview CMS tourism sites through the
// plugin REST endpoint, authenticated with the site's public token.
type Simpleview struct {
	client   *Client
	hosts    []string
	websites WebsiteResolver
}

// NewSimpleview creates the Simpleview platform for the given known hosts.
func NewSimpleview(client *Client, hosts []string) *Simpleview {
	return &Simpleview{client: client, hosts: hosts}
}

// WithWebsiteResolver sets the lookup used when a listing carries no website.
func (p *Simpleview) WithWebsiteResolver(r WebsiteResolver) *Simpleview {
	p.websites = r
	return p
}

func (p *Simpleview) Name() string { return "Simpleview" }

// Detect accepts known hosts and any page that loads the Simpleview events
// plugin.
func (p *Simpleview) Detect(html, pageURL string) (Params, bool) {
	base := origin(pageURL)
	if hostIn(pageURL, p.hosts) {
		return Params{BaseURL: base}, true
	}
	lower := strings.ToLower(html)
	if strings.Contains(lower, "simpleview") || strings.Contains(lower, "plugins_events") {
		return Params{BaseURL: base}, true
	}
	return Params{}, false
}

type simpleviewQuery struct {
	JSON  string `url:"json"`
	Token string `url:"token"`
}

type svDate struct {
	Date string `json:"$date"`
}

type svFind struct {
	Filter struct {
		Active    bool `json:"active"`
		DateRange struct {
			Start svDate `json:"start"`
			End   svDate `json:"end"`
		} `json:"date_range"`
	} `json:"filter"`
	Options struct {
		Limit    int            `json:"limit"`
		Skip     int            `json:"skip"`
		Count    bool           `json:"count"`
		CastDocs bool           `json:"castDocs"`
		Fields   map[string]int `json:"fields"`
		Hooks    []string       `json:"hooks"`
		Sort     map[string]int `json:"sort"`
	} `json:"options"`
}

var simpleviewFields = []string{
	"_id", "location", "date", "startDate", "endDate", "recurrence", "recurType",
	"latitude", "longitude", "media_raw", "recid", "title", "url", "description",
	"categories", "listing.primary_category", "listing.title", "listing.url",
	"listing.website", "address",
}

// FetchAndParse obtains the site token, then pages through the events
// collection 100 documents at a time.
func (p *Simpleview) FetchAndParse(ctx context.Context, params Params, req Request) ([]*event.Event, error) {
	log := req.log().With(logger.Fields{"platform": p.Name(), "site": params.BaseURL})
	base := strings.TrimRight(params.BaseURL, "/")

	token, err := p.client.ReceiveText(ctx, p.Name(), p.client.New().Get(base+"/plugins/core/get_simple_token/"))
	if err != nil {
		return nil, fmt.Errorf("simpleview token: %w", err)
	}
	token = strings.TrimSpace(token)
	if token == "" || len(token) > simpleviewMaxToken {
		return nil, fmt.Errorf("simpleview token: invalid token of %d bytes", len(token))
	}

	now := req.now().UTC()
	start := now.Format(simpleviewDay) + simpleviewDayStart
	if !req.FutureOnly {
		start = "2020-01-01" + simpleviewDayStart
	}
	end := now.AddDate(0, 0, 365).Format(simpleviewDay) + simpleviewDayStart

	col := newCollector(req)
	fetched := 0
	for page := 0; ; page++ {
		if page >= p.client.MaxPages() {
			return col.events, ErrPageCap
		}
		if err := ctx.Err(); err != nil {
			return col.events, err
		}

		find := newSimpleviewFind(start, end, page*simpleviewBatch)
		encoded, err := json.Marshal(find)
		if err != nil {
			return col.events, fmt.Errorf("encoding simpleview query: %w", err)
		}

		var data any
		s := p.client.New().
			Get(base + "/includes/rest_v2/plugins_events_events_by_date/find/").
			QueryStruct(simpleviewQuery{JSON: string(encoded), Token: token})
		if err := p.client.ReceiveJSON(ctx, p.Name(), s, &data); err != nil {
			log.Warn("Page request failed, keeping partial results", logger.Fields{"skip": page * simpleviewBatch, "events": len(col.events)})
			return col.events, fmt.Errorf("simpleview skip %d: %w", page*simpleviewBatch, err)
		}

		docs, total := simpleviewDocs(data)
		if len(docs) == 0 {
			break
		}
		for _, doc := range docs {
			col.add(p.parse(ctx, doc, base, req))
		}

		fetched += len(docs)
		if total > 0 && fetched >= total {
			break
		}
		if len(docs) < simpleviewBatch {
			break
		}
	}

	log.Info("Fetched events from API", logger.Fields{"raw": fetched, "events": len(col.events)})
	return col.events, nil
}

func newSimpleviewFind(start, end string, skip int) svFind {
	var f svFind
	f.Filter.Active = true
	f.Filter.DateRange.Start.Date = start
	f.Filter.DateRange.End.Date = end
	f.Options.Limit = simpleviewBatch
	f.Options.Skip = skip
	f.Options.Count = true
	f.Options.Fields = make(map[string]int, len(simpleviewFields))
	for _, name := range simpleviewFields {
		f.Options.Fields[name] = 1
	}
	f.Options.Hooks = []string{}
	f.Options.Sort = map[string]int{"date": 1, "rank": 1, "title_sort": 1}
	return f
}

// simpleviewDocs accepts the nested {"docs":{"docs":[],"count":n}} shape, the
// flat {"docs":[],"count":n} shape, results/items arrays, or a bare array.
func simpleviewDocs(data any) ([]Raw, int) {
	switch v := data.(type) {
	case []any:
		return records(v), len(v)
	case map[string]any:
		if inner := pickMap(v, "docs"); inner != nil {
			total, _ := pickFloat(inner, "count")
			return records(pickList(inner, "docs")), int(total)
		}
		total, _ := pickFloat(v, "count")
		docs := pickList(v, "docs", "results", "items")
		return records(docs), int(total)
	}
	return nil, 0
}

func (p *Simpleview) parse(ctx context.Context, doc Raw, base string, req Request) *event.Event {
	title := pickStr(doc, "title")
	if title == "" {
		return nil
	}

	ref := req.now()
	evt := event.New(title, svDateField(doc, "startDate", "date"), req.SourceName, ref)
	evt.SetEnd(svDateField(doc, "endDate"), ref)

	listing := pickMap(doc, "listing")
	external := pickStr(doc,
		"ticketUrl", "ticket_url", "externalUrl", "external_url",
		"registrationUrl", "registration_url", "eventUrl", "event_url",
		"websiteUrl", "website_url", "link")
	if external == "" {
		external = pickStr(listing, "ticketUrl", "externalUrl", "websiteUrl", "website", "web")
	}
	switch {
	case external != "":
		evt.SourceURL = event.EnsureScheme(external)
	case pickStr(doc, "url") != "":
		evt.SourceURL = event.ResolveURL(base+"/", pickStr(doc, "url"))
	default:
		evt.SourceURL = base + "/events/"
	}

	evt.Venue = pickStr(doc, "location")
	if evt.Venue == "" {
		evt.Venue = pickStr(listing, "title")
	}
	if evt.Venue == "" {
		evt.Venue = req.SourceName
	}
	evt.VenueAddress = pickStr(doc, "address")
	evt.Location = simpleviewCity

	if media := pickList(doc, "media_raw"); len(media) > 0 {
		switch m := media[0].(type) {
		case map[string]any:
			evt.ImageURL = pickStr(m, "mediaurl", "url")
		case string:
			evt.ImageURL = strings.TrimSpace(m)
		}
	}
	evt.SetDescription(pickStr(doc, "description"))

	for _, cat := range pickList(doc, "categories") {
		switch c := cat.(type) {
		case map[string]any:
			if name := pickStr(c, "catName"); name != "" {
				evt.Categories = append(evt.Categories, name)
			}
		case string:
			if c = strings.TrimSpace(c); c != "" {
				evt.Categories = append(evt.Categories, c)
			}
		}
	}

	evt.VenueWebsite = event.EnsureScheme(pickStr(listing, "website", "websiteUrl", "web", "url_website", "externalUrl"))
	if evt.VenueWebsite == "" && p.websites != nil {
		if listingURL := pickStr(listing, "url"); listingURL != "" {
			evt.VenueWebsite = p.websites.Resolve(ctx, event.ResolveURL(base+"/", listingURL))
		}
	}
	return evt
}

// svDateField reads a date stored either as a string or as {"$date": ...}.
func svDateField(doc Raw, keys ...string) string {
	for _, k := range keys {
		if s := pickStr(doc, k); s != "" {
			return s
		}
		if nested := pickMap(doc, k); nested != nil {
			if s := pickStr(nested, "$date"); s != "" {
				return s
			}
		}
	}
	return ""
}
