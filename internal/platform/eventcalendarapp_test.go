package platform

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync/atomic"
	"testing"
)

func TestEventCalendarApp_Detect(t *testing.T) {
	p := NewEventCalendarApp(testClient(0), DefaultSites().EventCalendarApp)

	tests := []struct {
		name     string
		html     string
		pageURL  string
		wantOK   bool
		wantID   string
		wantUUID string
	}{
		{
			name:     "known site",
			pageURL:  "https://guthriegreen.com/events",
			wantOK:   true,
			wantID:   "11692",
			wantUUID: "dcafff1d-f2a8-4799-9a6b-a5ad3e3a6ff2",
		},
		{
			name:     "id before uuid",
			html:     `<iframe src="https://eventcalendarapp.com/widget?id=123&theme=light&widgetUuid=aaaa-bbbb"></iframe>`,
			pageURL:  "https://venue.test/",
			wantOK:   true,
			wantID:   "123",
			wantUUID: "aaaa-bbbb",
		},
		{
			name:     "uuid before id",
			html:     `<iframe src="https://eventcalendarapp.com/widget?widgetUuid=abc-def&theme=1&id=456"></iframe>`,
			pageURL:  "https://venue.test/",
			wantOK:   true,
			wantID:   "456",
			wantUUID: "abc-def",
		},
		{
			name:     "id with token elsewhere",
			html:     `<div data-src="https://eventcalendarapp.com/embed?id=321" data-widgetUuid="0d3c1f10-aaaa-bbbb-cccc-123456789012"></div>`,
			pageURL:  "https://venue.test/",
			wantOK:   true,
			wantID:   "321",
			wantUUID: "0d3c1f10-aaaa-bbbb-cccc-123456789012",
		},
		{
			name:    "not embedded",
			html:    `<p>No calendar here</p>`,
			pageURL: "https://venue.test/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params, ok := p.Detect(tt.html, tt.pageURL)
			if ok != tt.wantOK {
				t.Fatalf("Detect() ok = %v, want %v", ok, tt.wantOK)
			}
			if params.ID != tt.wantID || params.WidgetUUID != tt.wantUUID {
				t.Errorf("Detect() = %+v, want id %q uuid %q", params, tt.wantID, tt.wantUUID)
			}
		})
	}
}

func ecaPage(t *testing.T, w http.ResponseWriter, total int, events ...Raw) {
	writeJSON(t, w, map[string]any{
		"events": events,
		"pages":  map[string]any{"total": total},
	})
}

func TestEventCalendarApp_FetchAndParse(t *testing.T) {
	var hits int32
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		q := r.URL.Query()
		if r.URL.Path != "/events" || q.Get("id") != "11692" || q.Get("widgetUuid") != "uuid-1" {
			t.Errorf("unexpected request %s", r.URL)
		}
		if r.Header.Get("User-Agent") != "eventengine-test" {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		switch q.Get("page") {
		case "1":
			ecaPage(t, w, 2,
				Raw{
					"summary":          "Concert on the Green",
					"timezoneStart":    "2026-02-10T19:00:00",
					"timezoneEnd":      "2026-02-10T21:00:00",
					"location":         map[string]any{"description": "Guthrie Green"},
					"shortDescription": "<b>Free</b> show",
					"image":            "https://img.test/1.jpg",
					"ticketsLink":      "https://tickets.test/1",
					"url":              "https://guthriegreen.test/e/1",
					"featured":         true,
				},
				Raw{"summary": "Morning Yoga", "timezoneStart": "2026-01-15T00:00:00"},
			)
		case "2":
			ecaPage(t, w, 2,
				Raw{"summary": "Concert on the Green", "timezoneStart": "2026-03-10T19:00:00"},
				Raw{"summary": "Mystery Night", "timezoneStart": "TBA"},
				Raw{"summary": ""},
			)
		default:
			t.Errorf("requested page %s past the declared total", q.Get("page"))
		}
	})

	p := NewEventCalendarApp(testClient(0), nil)
	p.BaseURL = srv.URL
	events, err := p.FetchAndParse(context.Background(), Params{ID: "11692", WidgetUUID: "uuid-1"}, testRequest("Guthrie Green", true))
	if err != nil {
		t.Fatalf("FetchAndParse() error = %v", err)
	}

	assertTitles(t, events, "Concert on the Green", "Mystery Night")
	if n := atomic.LoadInt32(&hits); n != 2 {
		t.Errorf("made %d requests, want 2", n)
	}

	evt := events[0]
	if evt.Venue != "Guthrie Green" || evt.Description != "Free show" || !evt.Featured {
		t.Errorf("mapped event = %+v", evt)
	}
	if evt.Start == nil || evt.Start.Day() != 10 || evt.End == nil || evt.End.Hour() != 21 {
		t.Errorf("start/end = %v/%v", evt.Start, evt.End)
	}
	if evt.TicketsURL != "https://tickets.test/1" || evt.SourceURL != "https://guthriegreen.test/e/1" || evt.ImageURL != "https://img.test/1.jpg" {
		t.Errorf("urls = %q %q %q", evt.TicketsURL, evt.SourceURL, evt.ImageURL)
	}
	if events[1].Start != nil || events[1].DateText != "TBA" {
		t.Errorf("unparsable start should be kept as text, got %v %q", events[1].Start, events[1].DateText)
	}
	if events[1].Venue != "Guthrie Green" {
		t.Errorf("venue fallback = %q, want source name", events[1].Venue)
	}
}

func TestEventCalendarApp_PartialResults(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "1" {
			ecaPage(t, w, 3, Raw{"summary": "First Page Show", "timezoneStart": "2026-02-10T19:00:00"})
			return
		}
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	p := NewEventCalendarApp(testClient(0), nil)
	p.BaseURL = srv.URL
	events, err := p.FetchAndParse(context.Background(), Params{ID: "1"}, testRequest("Venue", false))

	var se *StatusError
	if !errors.As(err, &se) || se.Status != http.StatusInternalServerError {
		t.Fatalf("error = %v, want status 500", err)
	}
	assertTitles(t, events, "First Page Show")
}

func TestEventCalendarApp_PageCap(t *testing.T) {
	var hits int32
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&hits, 1)
		ecaPage(t, w, 10, Raw{"summary": "Show " + strconv.Itoa(int(n))})
	})

	p := NewEventCalendarApp(testClient(2), nil)
	p.BaseURL = srv.URL
	events, err := p.FetchAndParse(context.Background(), Params{ID: "1"}, testRequest("Venue", false))

	if !errors.Is(err, ErrPageCap) {
		t.Fatalf("error = %v, want ErrPageCap", err)
	}
	assertTitles(t, events, "Show 1", "Show 2")
	if n := atomic.LoadInt32(&hits); n != 2 {
		t.Errorf("made %d requests, want 2", n)
	}
}

func TestEventCalendarApp_Cancelled(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected after cancellation")
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewEventCalendarApp(testClient(0), nil)
	p.BaseURL = srv.URL
	events, err := p.FetchAndParse(ctx, Params{ID: "1"}, testRequest("Venue", false))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if len(events) != 0 {
		t.Errorf("got %d events, want none", len(events))
	}
}
