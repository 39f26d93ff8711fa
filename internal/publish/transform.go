package publish

import (
	"strconv"
	"strings"
	"time"

	"github.com/locate918/eventengine/internal/event"
)

// MaxDescription bounds the delivered description, in characters.
const MaxDescription = 2000

// Payload is the ingestion API's event schema.
type Payload struct {
	Title          string   `json:"title"`
	SourceURL      string   `json:"source_url"`
	StartTime      string   `json:"start_time"`
	EndTime        string   `json:"end_time,omitempty"`
	SourceName     string   `json:"source_name,omitempty"`
	Venue          string   `json:"venue,omitempty"`
	VenueAddress   string   `json:"venue_address,omitempty"`
	Location       string   `json:"location,omitempty"`
	Description    string   `json:"description,omitempty"`
	ImageURL       string   `json:"image_url,omitempty"`
	Categories     []string `json:"categories,omitempty"`
	PriceMin       *float64 `json:"price_min,omitempty"`
	PriceMax       *float64 `json:"price_max,omitempty"`
	Outdoor        bool     `json:"outdoor"`
	FamilyFriendly bool     `json:"family_friendly"`
}

// Transform maps a record to the ingestion schema. A start that is missing
// or unparseable becomes now plus one day, since the API requires one.
// Times without an offset are taken as UTC.
func Transform(rec Record, now time.Time) Payload {
	p := Payload{
		Title:     rec.first("title"),
		SourceURL: rec.first("source_url", "detail_url", "url", "tickets_url"),
	}
	if p.Title == "" {
		p.Title = "Untitled Event"
	}

	fallback := now.UTC().Add(24 * time.Hour).Format(time.RFC3339)
	p.StartTime = fallback
	if text := rec.first("start_time", "startDate", "date", "start_date", "date_text"); text != "" {
		if t, ok := parseTime(text, now); ok {
			p.StartTime = t
		}
	}
	if text := rec.first("end_time", "endDate", "end_date", "end_text"); text != "" {
		if t, ok := parseTime(text, now); ok {
			p.EndTime = t
		}
	}

	p.SourceName = rec.first("source_name", "source")
	p.Venue = rec.first("venue")
	p.VenueAddress = rec.first("venue_address")

	if loc := rec.first("location"); loc != "" {
		if !isCoordinates(loc) {
			p.Location = loc
		}
	} else {
		p.Location = rec.first("city")
	}

	if desc := strings.TrimSpace(rec.first("description")); desc != "" {
		if r := []rune(desc); len(r) > MaxDescription {
			desc = string(r[:MaxDescription])
		}
		p.Description = desc
	}
	p.ImageURL = rec.first("image_url")

	p.PriceMin, _ = rec.number("price_min")
	p.PriceMax, _ = rec.number("price_max")
	if p.PriceMin == nil {
		if price := rec.first("price"); price != "" {
			if min, max := ParsePrice(price); min != nil {
				p.PriceMin, p.PriceMax = min, max
			}
		}
	}
	if free, ok := rec["is_free"].(bool); ok && free {
		a, b := 0.0, 0.0
		p.PriceMin, p.PriceMax = &a, &b
	}

	switch cats := rec["categories"].(type) {
	case string:
		if cats != "" {
			p.Categories = []string{cats}
		}
	case []interface{}:
		for _, c := range cats {
			if s := stringOf(c); s != "" {
				p.Categories = append(p.Categories, s)
			}
		}
	case []string:
		for _, s := range cats {
			if s != "" {
				p.Categories = append(p.Categories, s)
			}
		}
	}

	p.Outdoor = truthy(rec["outdoor"])
	p.FamilyFriendly = truthy(rec["family_friendly"])
	return p
}

// ParsePrice reads a price label such as "$15", "$15-25" or "Free". A range
// sets both ends; a single amount sets only the minimum.
func ParsePrice(label string) (min, max *float64) {
	s := strings.TrimSpace(strings.NewReplacer("$", "", ",", "").Replace(label))
	if lo, hi, found := strings.Cut(s, "-"); found {
		a, errA := strconv.ParseFloat(strings.TrimSpace(lo), 64)
		b, errB := strconv.ParseFloat(strings.TrimSpace(hi), 64)
		if errA != nil || errB != nil {
			return nil, nil
		}
		return &a, &b
	}
	switch strings.ToLower(s) {
	case "free", "0", "0.00":
		a, b := 0.0, 0.0
		return &a, &b
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return &v, nil
	}
	return nil, nil
}

func parseTime(text string, now time.Time) (string, bool) {
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(text)); err == nil {
		return t.Format(time.RFC3339), true
	}
	t, ok := event.ParseDateIn(text, now, time.UTC)
	if !ok {
		return "", false
	}
	return t.Format(time.RFC3339), true
}

// isCoordinates reports whether s looks like "36.15,-95.99".
func isCoordinates(s string) bool {
	if !strings.Contains(s, ",") {
		return false
	}
	digits := strings.NewReplacer(",", "", ".", "", "-", "").Replace(s)
	if digits == "" {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// first returns the first key holding a non-empty value, as a string.
func (r Record) first(keys ...string) string {
	for _, k := range keys {
		if s := strings.TrimSpace(stringOf(r[k])); s != "" {
			return s
		}
	}
	return ""
}

func (r Record) number(key string) (*float64, bool) {
	switch v := r[key].(type) {
	case float64:
		return &v, true
	case int:
		f := float64(v)
		return &f, true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return &f, true
		}
	}
	return nil, false
}

func stringOf(v interface{}) string {
	switch v := v.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

func truthy(v interface{}) bool {
	switch v := v.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "yes" || v == "y" {
			return true
		}
		b, err := strconv.ParseBool(v)
		return err == nil && b
	}
	return false
}
