package filter

import (
	"testing"
	"time"
)

func TestParseDateRange(t *testing.T) {
	// Mid-May reference: March rolls into next year, June stays in this one
	now := time.Date(2026, 5, 15, 12, 0, 0, 0, time.UTC)
	day := func(y int, m time.Month, d, h, min, s int) time.Time {
		return time.Date(y, m, d, h, min, s, 0, time.UTC)
	}

	tests := []struct {
		input    string
		wantFrom time.Time
		wantTo   time.Time
	}{
		{"Jun 1-15", day(2026, 6, 1, 0, 0, 0), day(2026, 6, 15, 23, 59, 59)},
		{"june 1 - 15", day(2026, 6, 1, 0, 0, 0), day(2026, 6, 15, 23, 59, 59)},
		{"Mar 1-15", day(2027, 3, 1, 0, 0, 0), day(2027, 3, 15, 23, 59, 59)},
		{"May 20-31", day(2026, 5, 20, 0, 0, 0), day(2026, 5, 31, 23, 59, 59)},
		{"June 20 - July 4", day(2026, 6, 20, 0, 0, 0), day(2026, 7, 4, 23, 59, 59)},
		{"Sept 1 - Sep 30", day(2026, 9, 1, 0, 0, 0), day(2026, 9, 30, 23, 59, 59)},
		{"Dec 20 - Jan 5", day(2026, 12, 20, 0, 0, 0), day(2027, 1, 5, 23, 59, 59)},
		{"February", day(2027, 2, 1, 0, 0, 0), day(2027, 2, 28, 23, 59, 59)},
		{"july", day(2026, 7, 1, 0, 0, 0), day(2026, 7, 31, 23, 59, 59)},
		{"2026-03-01..2026-03-15", day(2026, 3, 1, 0, 0, 0), day(2026, 3, 15, 23, 59, 59)},
		{"2026-03-01 to 2026-04-01", day(2026, 3, 1, 0, 0, 0), day(2026, 4, 1, 23, 59, 59)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			from, to, err := ParseDateRange(tt.input, now, time.UTC)
			if err != nil {
				t.Fatalf("ParseDateRange(%q) error = %v", tt.input, err)
			}
			if !from.Equal(tt.wantFrom) || !to.Equal(tt.wantTo) {
				t.Errorf("ParseDateRange(%q) = %v - %v, want %v - %v", tt.input, from, to, tt.wantFrom, tt.wantTo)
			}
		})
	}
}

func TestParseDateRange_Errors(t *testing.T) {
	now := time.Date(2026, 5, 15, 12, 0, 0, 0, time.UTC)
	for _, input := range []string{
		"",
		"next week",
		"Jun 15-1",
		"Jun 0-5",
		"Jun 1-32",
		"Foo 1-5",
		"2026-03-15..2026-03-01",
		"2026-13-01..2026-13-05",
	} {
		if _, _, err := ParseDateRange(input, now, time.UTC); err == nil {
			t.Errorf("ParseDateRange(%q) should fail", input)
		}
	}
}

func TestParseDateRange_Location(t *testing.T) {
	chicago, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	from, _, err := ParseDateRange("2026-03-01..2026-03-02", time.Now(), chicago)
	if err != nil {
		t.Fatal(err)
	}
	if from.Location() != chicago {
		t.Errorf("location = %v, want America/Chicago", from.Location())
	}
}
