package scraper

import (
	"testing"
	"time"
)

func TestSchemaOrg_MusicEvent(t *testing.T) {
	body := `<html><body><script type="application/ld+json">{"@type":"MusicEvent","name":"Foo","startDate":"2026-03-01T20:00:00"}</script></body></html>`

	events := SchemaOrg{}.Extract(mustPage(t, "https://venue.test/", body))

	assertTitles(t, events, "Foo")
	want := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	if events[0].Start == nil || !events[0].Start.Equal(want) {
		t.Errorf("Start = %v, want %v", events[0].Start, want)
	}
	if events[0].Venue != "Test Venue" {
		t.Errorf("Venue = %q, want source name", events[0].Venue)
	}
}

func TestSchemaOrg_Shapes(t *testing.T) {
	body := `<html><head>
	<script type="application/ld+json">{not json</script>
	<script type="application/ld+json">{
		"@context": "https://schema.org",
		"@graph": [
			{"@type": "Organization", "name": "Tulsa PAC"},
			{
				"@type": ["Event", "TheaterEvent"],
				"name": "Hamlet",
				"startDate": "2026-04-10T19:30:00-05:00",
				"location": {
					"@type": "Place",
					"name": "Tulsa PAC",
					"address": {"streetAddress": "110 E 2nd St", "addressLocality": "Tulsa"}
				},
				"offers": {"lowPrice": "20", "highPrice": 45, "url": "/tickets/hamlet"},
				"image": ["https://cdn.test/hamlet.jpg"],
				"description": "<p>Shakespeare&#39;s tragedy</p>"
			}
		]
	}</script>
	<script type="application/ld+json">[
		{"@type": "Festival", "name": "Mayfest", "location": "Downtown"},
		{"@type": "Product", "name": "Shirt"},
		{"@type": "Event", "name": ""}
	]</script>
	</head><body></body></html>`

	events := SchemaOrg{}.Extract(mustPage(t, "https://venue.test/events", body))

	assertTitles(t, events, "Hamlet", "Mayfest")
	hamlet := events[0]
	if hamlet.Venue != "Tulsa PAC" || hamlet.Location != "Tulsa" {
		t.Errorf("venue/location = %q/%q", hamlet.Venue, hamlet.Location)
	}
	if hamlet.VenueAddress != "110 E 2nd St, Tulsa" {
		t.Errorf("VenueAddress = %q", hamlet.VenueAddress)
	}
	if hamlet.PriceMin == nil || *hamlet.PriceMin != 20 || hamlet.PriceMax == nil || *hamlet.PriceMax != 45 {
		t.Errorf("prices = %v/%v, want 20/45", hamlet.PriceMin, hamlet.PriceMax)
	}
	if hamlet.TicketsURL != "https://venue.test/tickets/hamlet" {
		t.Errorf("TicketsURL = %q", hamlet.TicketsURL)
	}
	if hamlet.ImageURL != "https://cdn.test/hamlet.jpg" {
		t.Errorf("ImageURL = %q", hamlet.ImageURL)
	}
	if hamlet.Description != "Shakespeare's tragedy" {
		t.Errorf("Description = %q", hamlet.Description)
	}
	if hamlet.Start == nil || hamlet.Start.UTC().Hour() != 0 || hamlet.Start.UTC().Day() != 11 {
		t.Errorf("Start = %v, want 2026-04-11T00:30Z", hamlet.Start)
	}
	if events[1].Venue != "Downtown" {
		t.Errorf("string location: Venue = %q", events[1].Venue)
	}
}

func TestIsEventType(t *testing.T) {
	tests := []struct {
		in   any
		want bool
	}{
		{"Event", true},
		{"MusicEvent", true},
		{"https://schema.org/ComedyEvent", true},
		{"schema:Festival", true},
		{[]any{"Thing", "SocialEvent"}, true},
		{"Place", false},
		{nil, false},
		{[]any{"Organization"}, false},
	}
	for _, tt := range tests {
		if got := isEventType(tt.in); got != tt.want {
			t.Errorf("isEventType(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
