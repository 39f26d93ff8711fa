package scraper

import (
	"testing"
	"time"

	"github.com/locate918/eventengine/internal/event"
)

var testNow = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

func mustPage(t *testing.T, pageURL, body string) *Page {
	t.Helper()
	p, err := NewPage(body, pageURL, "Test Venue", testNow)
	if err != nil {
		t.Fatalf("NewPage() error = %v", err)
	}
	return p
}

func titles(events []*event.Event) []string {
	out := make([]string, len(events))
	for i, evt := range events {
		out[i] = evt.Title
	}
	return out
}

func assertTitles(t *testing.T, events []*event.Event, want ...string) {
	t.Helper()
	got := titles(events)
	if len(got) != len(want) {
		t.Fatalf("got titles %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("title[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNewPage_StripsChrome(t *testing.T) {
	body := `<html><head>
		<script>var shows = "https://dice.fm/event/x";</script>
		<script type="application/ld+json">{"@type":"Event","name":"Kept"}</script>
		<script type="etix-api-data">[]</script>
	</head><body>
		<header><a href="https://dice.fm/event/header">Header Show</a></header>
		<nav><a href="https://dice.fm/event/nav">Nav Show</a></nav>
		<main><a href="https://dice.fm/event/real">Real Show</a></main>
		<footer><a href="https://dice.fm/event/footer">Footer Show</a></footer>
	</body></html>`

	p := mustPage(t, "https://venue.test/", body)

	if n := p.Doc.Find("script").Length(); n != 2 {
		t.Errorf("kept %d script elements, want 2", n)
	}
	assertTitles(t, NewLinkExtractor(Dice).Extract(p), "Real Show")
}

func TestNewPage_ZeroNow(t *testing.T) {
	p, err := NewPage("<p>x</p>", "https://venue.test/", "Venue", time.Time{})
	if err != nil {
		t.Fatalf("NewPage() error = %v", err)
	}
	if p.Now.IsZero() {
		t.Error("expected Now to default to the current time")
	}
}

func TestIsEtixHost(t *testing.T) {
	tests := map[string]bool{
		"https://www.etix.com/ticket/v/123":    true,
		"https://etix.com/ticket/p/1":          true,
		"https://notetix.com/":                 false,
		"https://venue.test/?ref=www.etix.com": false,
		"":                                     false,
	}
	for input, want := range tests {
		if got := IsEtixHost(input); got != want {
			t.Errorf("IsEtixHost(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestRegistryOrder(t *testing.T) {
	var got []string
	for _, x := range Heuristics() {
		got = append(got, x.Name())
	}
	want := []string{
		"WordPress Events Calendar", "Eventbrite", "Stubwire", "Dice.fm", "Bandsintown",
		"Songkick", "Ticketmaster", "AXS", "Etix", "See Tickets",
	}
	if len(got) != len(want) {
		t.Fatalf("Heuristics() = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Heuristics()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	var fallbacks []string
	for _, x := range Fallbacks() {
		fallbacks = append(fallbacks, x.Name())
	}
	if len(fallbacks) != 3 || fallbacks[0] != "Timely HTML" || fallbacks[1] != "Repeating structures" || fallbacks[2] != "Date proximity" {
		t.Errorf("Fallbacks() = %q", fallbacks)
	}
	if Structured().Name() != "Schema.org" {
		t.Errorf("Structured() = %q", Structured().Name())
	}
}
