package platform

import (
	"context"
	"net/http"
	"testing"
	"time"
)

func TestTimely_Detect(t *testing.T) {
	p := NewTimely(testClient(0), DefaultSites().Timely)

	tests := []struct {
		name    string
		html    string
		pageURL string
		wantID  string
	}{
		{"known site", "", "https://www.thestarlitebar.com/events", "54755961"},
		{"data attribute", `<div class="timely-embed" data-calendar-id="12345"></div>`, "https://bar.test/", "12345"},
		{"api url", `<script src="https://events.timely.fun/api/calendars/777/events"></script>`, "https://bar.test/", "777"},
		{"embed url", `<iframe src="https://events.timely.fun/888/"></iframe>`, "https://bar.test/", "888"},
		{"none", `<p>Calendar coming soon</p>`, "https://bar.test/", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params, ok := p.Detect(tt.html, tt.pageURL)
			if ok != (tt.wantID != "") || params.ID != tt.wantID {
				t.Fatalf("Detect() = %+v, %v; want id %q", params, ok, tt.wantID)
			}
			if ok && params.Referer != tt.pageURL {
				t.Errorf("Referer = %q, want page URL", params.Referer)
			}
		})
	}
}

func TestTimely_FetchAndParse(t *testing.T) {
	const referer = "https://thestarlitebar.com/calendar/"
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/calendars/54755961/events" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("Referer") != referer || r.Header.Get("Origin") != "https://thestarlitebar.com" {
			t.Errorf("Referer/Origin = %q / %q", r.Header.Get("Referer"), r.Header.Get("Origin"))
		}
		q := r.URL.Query()
		if q.Get("view") != "agenda" || q.Get("per_page") != "30" || q.Get("page") != "1" {
			t.Errorf("query = %q", r.URL.RawQuery)
		}
		if q.Get("start_date_utc") != "1769947200" {
			t.Errorf("start_date_utc = %q", q.Get("start_date_utc"))
		}
		writeJSON(t, w, map[string]any{
			"data": map[string]any{
				"total": 2,
				"items": []any{
					map[string]any{"events": []Raw{
						{
							"title":          "Starlite Trivia NightTriviatriviatrivia night",
							"start_datetime": "2026-02-05 19:00:00",
							"end_datetime":   "2026-02-05 21:00:00",
							"venue":          map[string]any{"name": "The Starlite", "address": "6 N Lewis Ave"},
							"featured_image": map[string]any{"url": "https://img.test/trivia.jpg"},
							"url":            "https://starlite.test/event/trivia",
						},
					}},
					map[string]any{"events": []Raw{
						{"title": "Drag Brunch", "start_datetime": "2026-02-08 11:00:00", "featured_image": "https://img.test/brunch.jpg"},
					}},
				},
			},
		})
	})

	p := NewTimely(testClient(0), nil)
	p.BaseURL = srv.URL
	events, err := p.FetchAndParse(context.Background(), Params{ID: "54755961", Referer: referer}, testRequest("The Starlite", true))
	if err != nil {
		t.Fatalf("FetchAndParse() error = %v", err)
	}

	assertTitles(t, events, "Starlite Trivia Night", "Drag Brunch")
	trivia := events[0]
	if want := time.Date(2026, 2, 5, 19, 0, 0, 0, time.UTC); trivia.Start == nil || !trivia.Start.Equal(want) {
		t.Errorf("Start = %v, want %v", trivia.Start, want)
	}
	if trivia.Venue != "The Starlite" || trivia.VenueAddress != "6 N Lewis Ave" {
		t.Errorf("venue = %q, %q", trivia.Venue, trivia.VenueAddress)
	}
	if trivia.ImageURL != "https://img.test/trivia.jpg" || events[1].ImageURL != "https://img.test/brunch.jpg" {
		t.Errorf("images = %q, %q", trivia.ImageURL, events[1].ImageURL)
	}
}

func TestTimely_FallsBackToMarkup(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"data": map[string]any{"items": []any{}, "total": 0}})
	})

	req := testRequest("The Starlite", false)
	req.HTML = `<html><body><div class="timely-calendar">
		<div class="timely-event">
			<div class="timely-title">Karaoke Night</div>
			<div class="timely-date">Feb 9, 2026 9:00 pm</div>
		</div>
	</div></body></html>`

	p := NewTimely(testClient(0), nil)
	p.BaseURL = srv.URL
	events, err := p.FetchAndParse(context.Background(), Params{ID: "1"}, req)
	if err != nil {
		t.Fatalf("FetchAndParse() error = %v", err)
	}
	assertTitles(t, events, "Karaoke Night")
	if s := events[0].Start; s == nil || s.Day() != 9 || s.Hour() != 21 {
		t.Errorf("Start = %v", s)
	}
}
