package calendar

import (
	"strings"
	"testing"
	"time"

	"github.com/locate918/eventengine/internal/event"
)

var testNow = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

func at(t time.Time) *time.Time { return &t }

func TestGenerateICS(t *testing.T) {
	central := time.FixedZone("CST", -6*3600)
	events := []*event.Event{
		{
			ID:           "jazz-1",
			Title:        "Jazz Night",
			Start:        at(time.Date(2026, 3, 1, 20, 0, 0, 0, central)),
			End:          at(time.Date(2026, 3, 1, 23, 0, 0, 0, central)),
			Venue:        "Blue Note",
			VenueAddress: "1 Main St, Tulsa",
			Location:     "Tulsa",
			SourceURL:    "https://venue.test/e/1",
			TicketsURL:   "https://tix.test/1",
			SourceName:   "Blue Note",
			Categories:   []string{"Music", "Jazz"},
		},
		{Title: "No Date Yet", DateText: "TBA"},
		{
			Title:      "Park Day",
			Start:      at(time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC)),
			SourceName: "Parks",
		},
	}

	ics := GenerateICS(events, testNow)

	requiredFields := []string{
		"BEGIN:VCALENDAR\r\n",
		"VERSION:2.0\r\n",
		"PRODID:-//Locate918//eventengine//EN\r\n",
		"UID:jazz-1@eventengine\r\n",
		"DTSTAMP:20260201T120000Z\r\n",
		"DTSTART:20260302T020000Z\r\n",
		"DTEND:20260302T050000Z\r\n",
		"SUMMARY:Jazz Night\r\n",
		"LOCATION:Blue Note\\, 1 Main St\\, Tulsa\r\n",
		"URL:https://venue.test/e/1\r\n",
		"CATEGORIES:Music,Jazz\r\n",
		"DTSTART:20260307T100000Z\r\n",
		"DTEND:20260307T120000Z\r\n",
		"END:VCALENDAR\r\n",
	}
	for _, field := range requiredFields {
		if !strings.Contains(ics, field) {
			t.Errorf("ICS missing %q", field)
		}
	}

	if n := strings.Count(ics, "BEGIN:VEVENT"); n != 2 {
		t.Errorf("VEVENT count = %d, want 2 (undated event skipped)", n)
	}
	if strings.Contains(ics, "No Date Yet") {
		t.Error("undated event should be left out")
	}
	if !strings.Contains(ics, "UID:"+event.GenerateID("Parks", "Park Day", "")+"@eventengine") {
		t.Error("event without ID should get a generated UID")
	}
}

func TestGenerateICS_Empty(t *testing.T) {
	ics := GenerateICS(nil, testNow)
	if strings.Contains(ics, "BEGIN:VEVENT") || !strings.HasSuffix(ics, "END:VCALENDAR\r\n") {
		t.Errorf("unexpected calendar:\n%s", ics)
	}
}

func TestEscapeICS(t *testing.T) {
	got := escapeICS("Test Event; With, Special\\Characters\nAnd Newlines")
	want := "Test Event\\; With\\, Special\\\\Characters\\nAnd Newlines"
	if got != want {
		t.Errorf("escapeICS() = %q, want %q", got, want)
	}
}

func TestWriteLine_Folds(t *testing.T) {
	var b strings.Builder
	line := "DESCRIPTION:" + strings.Repeat("é", 60)
	writeLine(&b, line)

	out := b.String()
	for i, part := range strings.Split(strings.TrimSuffix(out, "\r\n"), "\r\n") {
		if len(part) > maxLineOctets {
			t.Errorf("line %d has %d octets", i, len(part))
		}
		if i > 0 && !strings.HasPrefix(part, " ") {
			t.Errorf("continuation line %d does not start with a space", i)
		}
	}
	if unfolded := strings.ReplaceAll(out, "\r\n ", ""); unfolded != line+"\r\n" {
		t.Error("unfolding did not restore the original line")
	}
}
