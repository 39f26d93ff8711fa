package platform

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/locate918/eventengine/internal/event"
	"github.com/locate918/eventengine/internal/logger"
)

var testNow = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

func testClient(maxPages int) *Client {
	return NewClient(ClientOptions{
		UserAgent: "eventengine-test",
		MaxPages:  maxPages,
		RetryWait: time.Millisecond,
	})
}

func testRequest(source string, futureOnly bool) Request {
	return Request{
		SourceName: source,
		PageURL:    "https://venue.test/events",
		FutureOnly: futureOnly,
		Now:        func() time.Time { return testNow },
		Log:        logger.New(logger.LevelError, io.Discard),
	}
}

func newServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encoding response: %v", err)
	}
}

func eventTitles(events []*event.Event) []string {
	out := make([]string, len(events))
	for i, evt := range events {
		out[i] = evt.Title
	}
	return out
}

func assertTitles(t *testing.T, events []*event.Event, want ...string) {
	t.Helper()
	got := eventTitles(events)
	if len(got) != len(want) {
		t.Fatalf("got titles %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("title[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCollector(t *testing.T) {
	req := testRequest("Venue", true)
	col := newCollector(req)

	past := event.New("Old Show", "2026-01-15T00:00:00", "Venue", testNow)
	today := event.New("Today Show", "2026-02-01T09:00:00", "Venue", testNow)
	unknown := event.New("Someday Show", "TBA", "Venue", testNow)
	dup := event.New("Today Show", "2026-03-01T09:00:00", "Venue", testNow)

	for _, evt := range []*event.Event{past, today, unknown, dup, nil, {Title: ""}} {
		col.add(evt)
	}

	assertTitles(t, col.events, "Today Show", "Someday Show")
	if col.events[0].Start.Month() != time.February {
		t.Errorf("first occurrence should win, got start %v", col.events[0].Start)
	}
}

func TestCollector_KeepsPastWithoutFutureOnly(t *testing.T) {
	col := newCollector(testRequest("Venue", false))
	col.add(event.New("Old Show", "2026-01-15T00:00:00", "Venue", testNow))
	assertTitles(t, col.events, "Old Show")
}

func TestRegistry_Order(t *testing.T) {
	platforms := Registry(testClient(0), DefaultSites(), nil)
	want := []string{"EventCalendarApp", "Timely", "BOK Center", "Expo Square", "Eventbrite API", "Simpleview"}
	if len(platforms) != len(want) {
		t.Fatalf("got %d platforms, want %d", len(platforms), len(want))
	}
	for i, p := range platforms {
		if p.Name() != want[i] {
			t.Errorf("platform[%d] = %q, want %q", i, p.Name(), want[i])
		}
	}
}

func TestRegistry_DetectKnownSites(t *testing.T) {
	platforms := Registry(testClient(0), DefaultSites(), nil)
	tests := map[string]string{
		"https://www.guthriegreen.com/events":           "EventCalendarApp",
		"https://thestarlitebar.com/calendar/":          "Timely",
		"https://www.bokcenter.com/events":              "BOK Center",
		"https://www.exposquare.com/events":             "Expo Square",
		"https://www.eventbrite.com/d/ok--tulsa/events": "Eventbrite API",
		"https://www.visittulsa.com/events/":            "Simpleview",
	}
	for pageURL, want := range tests {
		var got string
		for _, p := range platforms {
			if _, ok := p.Detect("<html></html>", pageURL); ok {
				got = p.Name()
				break
			}
		}
		if got != want {
			t.Errorf("%s detected by %q, want %q", pageURL, got, want)
		}
	}

	for _, p := range platforms {
		if _, ok := p.Detect("<html><body>Plain page</body></html>", "https://unknown.test/"); ok {
			t.Errorf("%s detected a plain page", p.Name())
		}
	}
}

func TestHostIn(t *testing.T) {
	hosts := []string{"bokcenter.com", "www.bokcenter.com"}
	if !hostIn("https://WWW.BOKCenter.com/events", hosts) {
		t.Error("expected case-insensitive host match")
	}
	if hostIn("https://bokcenter.com.evil.test/", hosts) || hostIn("not a url", hosts) {
		t.Error("unexpected host match")
	}
}

func TestHostLimiter(t *testing.T) {
	if NewHostLimiter(0, time.Second) != nil {
		t.Error("zero requests should disable limiting")
	}
	var disabled *HostLimiter
	if err := disabled.Wait(context.Background(), "api.test"); err != nil {
		t.Errorf("nil limiter Wait() = %v", err)
	}

	l := NewHostLimiter(1, time.Hour)
	if err := l.Wait(context.Background(), "api.test"); err != nil {
		t.Fatalf("first Wait() = %v", err)
	}
	if err := l.Wait(context.Background(), "other.test"); err != nil {
		t.Fatalf("other host Wait() = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx, "API.test"); err == nil {
		t.Error("expected second request to the same host to be held back")
	}
}
