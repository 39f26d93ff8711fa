// Package filter narrows extracted events down to what an operator asked for.
//
// Criteria combine with AND; list criteria match when any entry matches:
//   - Date range (from/to, inclusive)
//   - Keywords (substring of title or description, case-insensitive)
//   - Venues (substring of venue name, case-insensitive)
//   - Categories (exact, case-insensitive)
//   - Weekends only (Saturday/Sunday)
//   - Free only, or a maximum price
//
// Events without a resolved start date are kept by the date criteria: a
// listing whose date could not be parsed is still a listing.
//
// Example usage:
//
//	f := filter.NewFilter()
//	f.WeekendsOnly = true
//	f.Venues = []string{"Cain's Ballroom"}
//	filtered := f.Apply(events)
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/locate918/eventengine/internal/event"
)

// Filter represents event filtering criteria
type Filter struct {
	// Date range filtering
	DateFrom *time.Time `json:"date_from,omitempty"`
	DateTo   *time.Time `json:"date_to,omitempty"`

	Keywords   []string `json:"keywords,omitempty"`
	Venues     []string `json:"venues,omitempty"`
	Categories []string `json:"categories,omitempty"`

	WeekendsOnly bool `json:"weekends_only,omitempty"`

	// FreeOnly keeps events priced at zero. MaxPrice keeps events whose
	// lowest price is at most MaxPrice; events without a price are kept.
	FreeOnly bool    `json:"free_only,omitempty"`
	MaxPrice float64 `json:"max_price,omitempty"`
}

// NewFilter creates a new empty filter with no active criteria.
func NewFilter() *Filter {
	return &Filter{}
}

// IsEmpty checks if the filter has any active criteria.
func (f *Filter) IsEmpty() bool {
	return f.DateFrom == nil &&
		f.DateTo == nil &&
		len(f.Keywords) == 0 &&
		len(f.Venues) == 0 &&
		len(f.Categories) == 0 &&
		!f.WeekendsOnly &&
		!f.FreeOnly &&
		f.MaxPrice == 0
}

// Matches checks if an event matches all active filter criteria.
// An empty filter matches all events.
func (f *Filter) Matches(evt *event.Event) bool {
	if f.IsEmpty() {
		return true
	}

	if evt.Start != nil {
		if f.DateFrom != nil && evt.Start.Before(*f.DateFrom) {
			return false
		}
		if f.DateTo != nil && evt.Start.After(*f.DateTo) {
			return false
		}
		if f.WeekendsOnly {
			weekday := evt.Start.Weekday()
			if weekday != time.Saturday && weekday != time.Sunday {
				return false
			}
		}
	}

	if len(f.Keywords) > 0 && !containsAny(evt.Title+"\n"+evt.Description, f.Keywords) {
		return false
	}

	if len(f.Venues) > 0 && !containsAny(evt.Venue, f.Venues) {
		return false
	}

	if len(f.Categories) > 0 && !hasCategory(evt.Categories, f.Categories) {
		return false
	}

	if f.FreeOnly && !isFree(evt) {
		return false
	}

	if f.MaxPrice > 0 && evt.PriceMin != nil && *evt.PriceMin > f.MaxPrice {
		return false
	}

	return true
}

// Apply applies the filter to a list of events and returns only matching events.
// If the filter is empty, returns the original list unchanged.
func (f *Filter) Apply(events []*event.Event) []*event.Event {
	if f.IsEmpty() {
		return events
	}

	filtered := []*event.Event{}
	for _, evt := range events {
		if f.Matches(evt) {
			filtered = append(filtered, evt)
		}
	}

	return filtered
}

// String returns a human-readable description of the active filter criteria.
// Format: "From: Mar 1, 2026 | To: Mar 15, 2026 | Venues: Cain's | Weekends only"
func (f *Filter) String() string {
	if f.IsEmpty() {
		return "No active filters"
	}

	var parts []string

	if f.DateFrom != nil {
		parts = append(parts, fmt.Sprintf("From: %s", f.DateFrom.Format("Jan 2, 2006")))
	}

	if f.DateTo != nil {
		parts = append(parts, fmt.Sprintf("To: %s", f.DateTo.Format("Jan 2, 2006")))
	}

	if len(f.Keywords) > 0 {
		parts = append(parts, fmt.Sprintf("Keywords: %s", strings.Join(f.Keywords, ", ")))
	}

	if len(f.Venues) > 0 {
		parts = append(parts, fmt.Sprintf("Venues: %s", strings.Join(f.Venues, ", ")))
	}

	if len(f.Categories) > 0 {
		parts = append(parts, fmt.Sprintf("Categories: %s", strings.Join(f.Categories, ", ")))
	}

	if f.WeekendsOnly {
		parts = append(parts, "Weekends only")
	}

	if f.FreeOnly {
		parts = append(parts, "Free only")
	}

	if f.MaxPrice > 0 {
		parts = append(parts, fmt.Sprintf("Max price: $%.2f", f.MaxPrice))
	}

	return strings.Join(parts, " | ")
}

func containsAny(text string, needles []string) bool {
	lower := strings.ToLower(text)
	for _, n := range needles {
		if n = strings.TrimSpace(n); n != "" && strings.Contains(lower, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

func hasCategory(have, want []string) bool {
	for _, h := range have {
		for _, w := range want {
			if strings.EqualFold(strings.TrimSpace(h), strings.TrimSpace(w)) {
				return true
			}
		}
	}
	return false
}

func isFree(evt *event.Event) bool {
	if evt.PriceMin == nil || *evt.PriceMin != 0 {
		return false
	}
	return evt.PriceMax == nil || *evt.PriceMax == 0
}
