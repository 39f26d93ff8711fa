package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/locate918/eventengine/internal/event"
)

func ptrTime(t time.Time) *time.Time { return &t }

func ptrFloat(f float64) *float64 { return &f }

func sampleResult() *OutputResult {
	events := []*event.Event{
		{
			ID:         "abc",
			Title:      "Jazz Night",
			Start:      ptrTime(time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)),
			Venue:      "Blue Note",
			SourceURL:  "https://venue.test/jazz",
			TicketsURL: "https://tix.test/jazz",
			PriceMin:   ptrFloat(15),
			PriceMax:   ptrFloat(25),
		},
		{
			ID:       "def",
			Title:    "Open Mic",
			DateText: "Every Tuesday",
			PriceMin: ptrFloat(0),
		},
	}
	return &OutputResult{
		ExtractedAt: time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC),
		URL:         "https://venue.test/events",
		Source:      "Blue Note",
		RunID:       "run-1",
		Events:      events,
		EventCount:  len(events),
		Methods:     []string{"Schema.org (1)", "Repeating structures (1)"},
		HTMLSize:    2048,
		Filename:    "Blue_Note_20260201_120000.json",
	}
}

func TestParseFormat(t *testing.T) {
	for _, in := range []string{"text", "JSON", " ics "} {
		if _, err := ParseFormat(in); err != nil {
			t.Errorf("ParseFormat(%q) error = %v", in, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("ParseFormat(xml) should fail")
	}
}

func TestWriteOutput_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteOutput(&buf, sampleResult(), FormatText, true); err != nil {
		t.Fatalf("WriteOutput() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"Blue Note (2 events)",
		"Methods: Schema.org (1), Repeating structures (1)",
		"Sun Mar 1 2026 8:00PM",
		"Jazz Night @ Blue Note",
		"Every Tuesday",
		"Tickets: https://tix.test/jazz",
		"Price: $15.00 - $25.00",
		"Price: Free",
		"Total: 2 events",
		"Saved to Blue_Note_20260201_120000.json",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteOutput_TextEmpty(t *testing.T) {
	var buf bytes.Buffer
	res := &OutputResult{URL: "https://venue.test/", Reason: "No events found by any extraction method"}
	if err := WriteOutput(&buf, res, FormatText, false); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No events found on https://venue.test/") ||
		!strings.Contains(buf.String(), "Reason: No events found by any extraction method") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestWriteOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteOutput(&buf, sampleResult(), FormatJSON, false); err != nil {
		t.Fatal(err)
	}
	var decoded OutputResult
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded.EventCount != 2 || decoded.RunID != "run-1" || decoded.Events[0].Title != "Jazz Night" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWriteOutput_ICS(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteOutput(&buf, sampleResult(), FormatICS, false); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "BEGIN:VCALENDAR") {
		t.Errorf("not a calendar: %q", out)
	}
	// The undated event is skipped.
	if n := strings.Count(out, "BEGIN:VEVENT"); n != 1 {
		t.Errorf("VEVENT count = %d, want 1", n)
	}
}

func TestPriceText(t *testing.T) {
	tests := []struct {
		min, max *float64
		want     string
	}{
		{nil, nil, ""},
		{ptrFloat(0), nil, "Free"},
		{ptrFloat(0), ptrFloat(0), "Free"},
		{ptrFloat(10), ptrFloat(10), "$10.00"},
		{ptrFloat(10), nil, "$10.00"},
		{nil, ptrFloat(30), "up to $30.00"},
	}
	for _, tt := range tests {
		if got := priceText(&event.Event{PriceMin: tt.min, PriceMax: tt.max}); got != tt.want {
			t.Errorf("priceText(%v, %v) = %q, want %q", tt.min, tt.max, got, tt.want)
		}
	}
}
