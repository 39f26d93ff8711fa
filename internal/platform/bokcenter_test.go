package platform

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

func TestBOKCenter_FetchAndParse(t *testing.T) {
	var hits int32
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if got := r.URL.Query().Get("per_page"); got != "6" {
			t.Errorf("per_page = %q", got)
		}
		switch r.URL.Path {
		case "/events/events_ajax/0":
			writeJSON(t, w, `<div class="entry">
				<div class="date"><span>Thu,Feb5, 2026</span> <span>Thu, Feb 5 , 2026 On Sale Soon</span></div>
				<h3><a href="/events/detail/big-concert">Big Concert</a></h3>
			</div>
			<div class="entry">
				<div class="date"><span>Mar 1, 2026</span></div>
				<h3><a href="/events/detail/hockey-night">Hockey Night</a></h3>
			</div>
			<div class="entry">
				<h3><a href="/events/detail/big-concert">Big Concert</a></h3>
			</div>
			<div class="entry"><h3><a href="/about">About the arena</a></h3></div>`)
		case "/events/events_ajax/6":
			writeJSON(t, w, `<div></div>`)
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	})

	p := NewBOKCenter(testClient(0), nil)
	events, err := p.FetchAndParse(context.Background(), Params{BaseURL: srv.URL}, testRequest("BOK Center", false))
	if err != nil {
		t.Fatalf("FetchAndParse() error = %v", err)
	}

	assertTitles(t, events, "Big Concert", "Hockey Night")
	if n := atomic.LoadInt32(&hits); n != 2 {
		t.Errorf("made %d requests, want 2", n)
	}

	concert := events[0]
	if concert.DateText != "Feb 5, 2026" {
		t.Errorf("DateText = %q, want repaired date", concert.DateText)
	}
	if want := time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC); concert.Start == nil || !concert.Start.Equal(want) {
		t.Errorf("Start = %v, want %v", concert.Start, want)
	}
	if concert.SourceURL != srv.URL+"/events/detail/big-concert" || concert.Venue != "BOK Center" {
		t.Errorf("SourceURL = %q, Venue = %q", concert.SourceURL, concert.Venue)
	}
	if events[1].DateText != "Mar 1, 2026" {
		t.Errorf("DateText = %q", events[1].DateText)
	}
}

func TestBOKCenter_Detect(t *testing.T) {
	p := NewBOKCenter(testClient(0), DefaultSites().BOKCenter)
	if params, ok := p.Detect("", "https://www.bokcenter.com/events"); !ok || params.BaseURL != BOKCenterBaseURL {
		t.Errorf("Detect() = %+v, %v", params, ok)
	}
	if _, ok := p.Detect(`<a href="https://www.bokcenter.com/">BOK</a>`, "https://blog.test/"); ok {
		t.Error("a link to the arena should not count as the arena's listing")
	}
}
