package event

import (
	"crypto/sha1"
	"fmt"
	"strings"
	"time"
)

// MaxDescriptionLen bounds the description carried by an Event.
const MaxDescriptionLen = 500

// Event is a canonical event listing produced by one extraction run.
type Event struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Start          *time.Time `json:"start_time,omitempty"`
	DateText       string     `json:"date_text,omitempty"` // Original start text, kept when it could not be resolved
	End            *time.Time `json:"end_time,omitempty"`
	EndText        string     `json:"end_text,omitempty"`
	Venue          string     `json:"venue,omitempty"`
	VenueAddress   string     `json:"venue_address,omitempty"`
	VenueWebsite   string     `json:"venue_website,omitempty"`
	Location       string     `json:"location,omitempty"` // City or area, not a street address
	Description    string     `json:"description,omitempty"`
	ImageURL       string     `json:"image_url,omitempty"`
	SourceURL      string     `json:"source_url,omitempty"`
	TicketsURL     string     `json:"tickets_url,omitempty"`
	SourceName     string     `json:"source_name"`
	Categories     []string   `json:"categories,omitempty"`
	PriceMin       *float64   `json:"price_min,omitempty"`
	PriceMax       *float64   `json:"price_max,omitempty"`
	Outdoor        bool       `json:"outdoor"`
	FamilyFriendly bool       `json:"family_friendly"`
	Featured       bool       `json:"featured,omitempty"`

	// ExtractionMethods is provenance metadata and is stripped before delivery.
	ExtractionMethods []string `json:"extraction_methods,omitempty"`
}

// GenerateID creates a deterministic ID for an event based on its source and title
func GenerateID(sourceName, title, dateText string) string {
	h := sha1.New()
	h.Write([]byte(sourceName + "|" + TitleKey(title) + "|" + strings.TrimSpace(dateText)))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// New creates an Event with title and source populated. The start is resolved
// from dateText relative to ref; unresolvable text is kept in DateText.
func New(title, dateText, sourceName string, ref time.Time) *Event {
	evt := &Event{
		Title:      strings.TrimSpace(title),
		SourceName: sourceName,
		Venue:      sourceName,
	}
	evt.SetStart(dateText, ref)
	evt.ID = GenerateID(sourceName, evt.Title, evt.DateText)
	return evt
}

// SetStart records the raw start text and resolves it when possible.
func (e *Event) SetStart(text string, ref time.Time) {
	text = CollapseWhitespace(text)
	e.DateText = text
	e.Start = nil
	if text == "" {
		return
	}
	if t, ok := ParseDateIn(text, ref, ref.Location()); ok {
		e.Start = &t
	}
}

// SetEnd records the raw end text and resolves it when possible.
func (e *Event) SetEnd(text string, ref time.Time) {
	text = CollapseWhitespace(text)
	e.EndText = text
	e.End = nil
	if text == "" {
		return
	}
	if t, ok := ParseDateIn(text, ref, ref.Location()); ok {
		e.End = &t
	}
}

// SetDescription strips markup and bounds the length of the description.
func (e *Event) SetDescription(raw string) {
	e.Description = Truncate(CollapseWhitespace(StripHTML(raw)), MaxDescriptionLen)
}

// SetPrices records a price range. Negative values are ignored.
func (e *Event) SetPrices(min, max *float64) {
	if min != nil && *min >= 0 {
		v := *min
		e.PriceMin = &v
	}
	if max != nil && *max >= 0 {
		v := *max
		e.PriceMax = &v
	}
}

// Free marks the event as free of charge.
func (e *Event) Free() {
	zero := 0.0
	e.SetPrices(&zero, &zero)
}

// StripProvenance clears extraction metadata from every event.
func StripProvenance(events []*Event) {
	for _, evt := range events {
		evt.ExtractionMethods = nil
	}
}
