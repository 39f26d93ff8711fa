// Package calendar renders extracted events as an iCalendar feed.
package calendar

import (
	"strings"
	"time"

	"github.com/locate918/eventengine/internal/event"
)

// DefaultDuration is assumed for events without an end time.
const DefaultDuration = 2 * time.Hour

// maxLineOctets is the RFC 5545 content line limit, excluding CRLF.
const maxLineOctets = 75

// GenerateICS generates one VCALENDAR holding a VEVENT per event. Events
// whose start could not be resolved cannot be placed on a calendar and are
// left out.
func GenerateICS(events []*event.Event, now time.Time) string {
	var ics strings.Builder

	ics.WriteString("BEGIN:VCALENDAR\r\n")
	ics.WriteString("VERSION:2.0\r\n")
	ics.WriteString("PRODID:-//Locate918//eventengine//EN\r\n")
	ics.WriteString("CALSCALE:GREGORIAN\r\n")
	ics.WriteString("METHOD:PUBLISH\r\n")

	stamp := formatICSTime(now)
	for _, evt := range events {
		if evt == nil || evt.Start == nil {
			continue
		}
		writeEvent(&ics, evt, stamp)
	}

	ics.WriteString("END:VCALENDAR\r\n")
	return ics.String()
}

func writeEvent(ics *strings.Builder, evt *event.Event, stamp string) {
	id := evt.ID
	if id == "" {
		id = event.GenerateID(evt.SourceName, evt.Title, evt.DateText)
	}

	end := evt.Start.Add(DefaultDuration)
	if evt.End != nil && evt.End.After(*evt.Start) {
		end = *evt.End
	}

	ics.WriteString("BEGIN:VEVENT\r\n")
	writeLine(ics, "UID:"+id+"@eventengine")
	writeLine(ics, "DTSTAMP:"+stamp)
	writeLine(ics, "DTSTART:"+formatICSTime(*evt.Start))
	writeLine(ics, "DTEND:"+formatICSTime(end))
	writeLine(ics, "SUMMARY:"+escapeICS(evt.Title))

	if desc := description(evt); desc != "" {
		writeLine(ics, "DESCRIPTION:"+escapeICS(desc))
	}
	if loc := location(evt); loc != "" {
		writeLine(ics, "LOCATION:"+escapeICS(loc))
	}
	if u := firstNonEmpty(evt.SourceURL, evt.TicketsURL); u != "" {
		writeLine(ics, "URL:"+u)
	}
	if len(evt.Categories) > 0 {
		cats := make([]string, 0, len(evt.Categories))
		for _, c := range evt.Categories {
			cats = append(cats, escapeICS(c))
		}
		writeLine(ics, "CATEGORIES:"+strings.Join(cats, ","))
	}

	ics.WriteString("STATUS:CONFIRMED\r\n")
	ics.WriteString("TRANSP:OPAQUE\r\n")
	ics.WriteString("END:VEVENT\r\n")
}

func description(evt *event.Event) string {
	var parts []string
	if evt.Description != "" {
		parts = append(parts, evt.Description)
	}
	if evt.TicketsURL != "" && evt.TicketsURL != evt.SourceURL {
		parts = append(parts, "Tickets: "+evt.TicketsURL)
	}
	if evt.SourceName != "" {
		parts = append(parts, "Source: "+evt.SourceName)
	}
	return strings.Join(parts, "\n\n")
}

func location(evt *event.Event) string {
	var parts []string
	for _, p := range []string{evt.Venue, evt.VenueAddress, evt.Location} {
		if p != "" && !strings.Contains(strings.Join(parts, ", "), p) {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// writeLine folds content lines longer than 75 octets. Continuation lines
// start with a space, which counts toward their limit, and a UTF-8 sequence
// is never split.
func writeLine(ics *strings.Builder, line string) {
	limit := maxLineOctets
	for len(line) > limit {
		cut := limit
		for cut > 0 && !isRuneStart(line[cut]) {
			cut--
		}
		ics.WriteString(line[:cut])
		ics.WriteString("\r\n ")
		line = line[cut:]
		limit = maxLineOctets - 1
	}
	ics.WriteString(line)
	ics.WriteString("\r\n")
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// formatICSTime formats a time.Time as an iCalendar UTC datetime string
func formatICSTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// escapeICS escapes special characters for iCalendar format
func escapeICS(s string) string {
	// Replace special characters according to RFC 5545
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, "\r\n", "\\n")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
