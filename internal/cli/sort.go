package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/locate918/eventengine/internal/event"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortNone    SortOrder = "none"
	SortByDate  SortOrder = "date"
	SortByTitle SortOrder = "title"
	SortByVenue SortOrder = "venue"
)

// ParseSortOrder validates a --sort value.
func ParseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(strings.ToLower(strings.TrimSpace(s))); o {
	case "", SortNone:
		return SortNone, nil
	case SortByDate, SortByTitle, SortByVenue:
		return o, nil
	}
	return "", fmt.Errorf("invalid sort order: %s (must be 'none', 'date', 'title' or 'venue')", s)
}

// sortEvents sorts a slice of events based on the specified sort order.
// SortNone keeps extraction order.
func sortEvents(events []*event.Event, sortOrder SortOrder) {
	switch sortOrder {
	case SortByDate:
		sort.SliceStable(events, func(i, j int) bool {
			return compareByDate(events[i], events[j])
		})
	case SortByTitle:
		sort.SliceStable(events, func(i, j int) bool {
			ti, tj := strings.ToLower(events[i].Title), strings.ToLower(events[j].Title)
			if ti != tj {
				return ti < tj
			}
			// If titles are equal, sort by date
			return compareByDate(events[i], events[j])
		})
	case SortByVenue:
		sort.SliceStable(events, func(i, j int) bool {
			vi, vj := strings.ToLower(events[i].Venue), strings.ToLower(events[j].Venue)
			if vi != vj {
				return vi < vj
			}
			// If venues are equal, sort by date
			return compareByDate(events[i], events[j])
		})
	}
}

// compareByDate compares two events by their start
// Returns true if event i should come before event j
func compareByDate(i, j *event.Event) bool {
	// If both dates are known, compare them
	if i.Start != nil && j.Start != nil {
		if !i.Start.Equal(*j.Start) {
			return i.Start.Before(*j.Start)
		}
		return strings.ToLower(i.Title) < strings.ToLower(j.Title)
	}

	// If only one date is known, put it first
	if i.Start != nil {
		return true
	}
	if j.Start != nil {
		return false
	}

	// If neither has a date, sort by title
	return strings.ToLower(i.Title) < strings.ToLower(j.Title)
}
