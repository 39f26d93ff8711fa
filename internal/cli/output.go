package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/locate918/eventengine/internal/calendar"
	"github.com/locate918/eventengine/internal/event"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
	FormatICS  OutputFormat = "ics"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatICS:
		return f, nil
	}
	return "", fmt.Errorf("invalid format: %s (must be 'text', 'json' or 'ics')", s)
}

// OutputResult contains data to be output
type OutputResult struct {
	ExtractedAt time.Time      `json:"extracted_at"`
	URL         string         `json:"url"`
	Source      string         `json:"source"`
	RunID       string         `json:"run_id,omitempty"`
	Events      []*event.Event `json:"events"`
	EventCount  int            `json:"event_count"`
	Methods     []string       `json:"methods"`
	Detected    string         `json:"detected,omitempty"`
	Reason      string         `json:"reason,omitempty"`
	HTMLSize    int            `json:"html_size"`
	Filename    string         `json:"filename,omitempty"`
	Filter      string         `json:"filter,omitempty"`
}

// WriteOutput writes the result in the specified format
func WriteOutput(w io.Writer, result *OutputResult, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return writeText(w, result, verbose)
	case FormatICS:
		_, err := io.WriteString(w, calendar.GenerateICS(result.Events, result.ExtractedAt))
		return err
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs results as JSON
func writeJSON(w io.Writer, result *OutputResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// writeText outputs results as human-readable text
func writeText(w io.Writer, result *OutputResult, verbose bool) error {
	if result.EventCount == 0 {
		if result.Filter != "" {
			fmt.Fprintf(w, "No events on %s matched the filter (%s).\n", result.URL, result.Filter)
			return nil
		}
		fmt.Fprintf(w, "No events found on %s.\n", result.URL)
		if result.Reason != "" {
			fmt.Fprintf(w, "Reason: %s\n", result.Reason)
		}
		return nil
	}

	fmt.Fprintf(w, "%s (%d events)\n", result.Source, result.EventCount)
	if result.Detected != "" {
		fmt.Fprintf(w, "Platform: %s\n", result.Detected)
	}
	if len(result.Methods) > 0 {
		fmt.Fprintf(w, "Methods: %s\n", strings.Join(result.Methods, ", "))
	}
	if result.Filter != "" {
		fmt.Fprintf(w, "Filter: %s\n", result.Filter)
	}
	fmt.Fprintln(w)

	for _, evt := range result.Events {
		fmt.Fprintf(w, "  %-22s %s", whenText(evt), evt.Title)
		if evt.Venue != "" && !strings.EqualFold(evt.Venue, evt.Title) {
			fmt.Fprintf(w, " @ %s", evt.Venue)
		}
		fmt.Fprintln(w)

		if verbose {
			fmt.Fprintf(w, "       ID: %s\n", evt.ID)
			if evt.SourceURL != "" {
				fmt.Fprintf(w, "       URL: %s\n", evt.SourceURL)
			}
			if evt.TicketsURL != "" && evt.TicketsURL != evt.SourceURL {
				fmt.Fprintf(w, "       Tickets: %s\n", evt.TicketsURL)
			}
			if price := priceText(evt); price != "" {
				fmt.Fprintf(w, "       Price: %s\n", price)
			}
			if evt.Location != "" {
				fmt.Fprintf(w, "       Location: %s\n", evt.Location)
			}
		}
	}

	fmt.Fprintf(w, "\nTotal: %d events\n", result.EventCount)
	if result.Filename != "" {
		fmt.Fprintf(w, "Saved to %s\n", result.Filename)
	}
	return nil
}

// whenText renders the start time, or the original date text when the date
// could not be resolved.
func whenText(evt *event.Event) string {
	if evt.Start != nil {
		if evt.Start.Hour() == 0 && evt.Start.Minute() == 0 {
			return evt.Start.Format("Mon Jan 2 2006")
		}
		return evt.Start.Format("Mon Jan 2 2006 3:04PM")
	}
	if evt.DateText != "" {
		return evt.DateText
	}
	return "date TBA"
}

func priceText(evt *event.Event) string {
	switch {
	case evt.PriceMin == nil && evt.PriceMax == nil:
		return ""
	case evt.PriceMin != nil && *evt.PriceMin == 0 && (evt.PriceMax == nil || *evt.PriceMax == 0):
		return "Free"
	case evt.PriceMin != nil && evt.PriceMax != nil && *evt.PriceMax != *evt.PriceMin:
		return fmt.Sprintf("$%.2f - $%.2f", *evt.PriceMin, *evt.PriceMax)
	case evt.PriceMin != nil:
		return fmt.Sprintf("$%.2f", *evt.PriceMin)
	default:
		return fmt.Sprintf("up to $%.2f", *evt.PriceMax)
	}
}
