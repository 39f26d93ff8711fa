package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// DryRun prints the payloads that would be posted without sending anything
type DryRun struct {
	out  io.Writer
	city string
	now  func() time.Time
}

// NewDryRun creates a dry-run publisher writing to out, or stdout when nil.
func NewDryRun(out io.Writer) *DryRun {
	if out == nil {
		out = os.Stdout
	}
	return &DryRun{out: out, city: DefaultCity, now: time.Now}
}

// Publish prints each venue and event payload
func (d *DryRun) Publish(_ context.Context, records []Record) (*Report, error) {
	report := &Report{Total: len(records)}

	venues := collectVenues(records, d.city)
	for i, v := range venues {
		if v.Website != "" {
			report.VenuesWithWebsites++
		}
		if err := d.print(fmt.Sprintf("Venue %d/%d", i+1, len(venues)), v); err != nil {
			return report, err
		}
	}
	report.VenuesRegistered = len(venues)

	now := d.now()
	for i, rec := range records {
		if err := d.print(fmt.Sprintf("Event %d/%d", i+1, len(records)), Transform(rec, now)); err != nil {
			return report, err
		}
		report.Saved++
	}
	return report, nil
}

func (d *DryRun) print(label string, payload interface{}) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}
	_, err = fmt.Fprintf(d.out, "--- %s ---\n%s\n\n", label, data)
	return err
}
