package publish

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/locate918/eventengine/internal/event"
)

// Record is one event as stored on disk: canonical events marshal to it, and
// legacy result files decode to it directly.
type Record map[string]interface{}

// Report summarises one delivery.
type Report struct {
	Saved              int      `json:"saved"`
	Total              int      `json:"total"`
	VenuesRegistered   int      `json:"venues_registered"`
	VenuesWithWebsites int      `json:"venues_with_websites"`
	Errors             []string `json:"errors,omitempty"`
}

// Publisher defines the interface for delivering events downstream
type Publisher interface {
	// Publish delivers records and reports how many were accepted. Rejected
	// records are counted, not returned as errors.
	Publish(ctx context.Context, records []Record) (*Report, error)
}

// FromEvents converts canonical events to records. Provenance metadata is
// not part of the delivered payload and is dropped.
func FromEvents(events []*event.Event) ([]Record, error) {
	records := make([]Record, 0, len(events))
	for _, evt := range events {
		if evt == nil {
			continue
		}
		clean := *evt
		clean.ExtractionMethods = nil

		data, err := json.Marshal(&clean)
		if err != nil {
			return nil, fmt.Errorf("encoding event %q: %w", evt.Title, err)
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decoding event %q: %w", evt.Title, err)
		}
		records = append(records, rec)
	}
	return records, nil
}
