package publish

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dghubble/sling"
	"golang.org/x/sync/errgroup"

	"github.com/locate918/eventengine/internal/logger"
	"github.com/locate918/eventengine/internal/metrics"
)

const (
	DefaultWorkers = 10
	DefaultCity    = "Tulsa"

	eventTimeout = 5 * time.Second
	venueTimeout = 3 * time.Second
)

// Venue names that are not places and are never registered.
var placeholderVenues = map[string]bool{
	"tba": true, "tbd": true, "online": true, "online event": true, "virtual": true,
}

// VenuePayload is the ingestion API's venue schema.
type VenuePayload struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	City    string `json:"city"`
	Website string `json:"website,omitempty"`
}

// BackendOptions configures a Backend publisher.
type BackendOptions struct {
	BaseURL    string
	HTTPClient *http.Client
	UserAgent  string
	Workers    int
	// City is recorded on registered venues.
	City string
	Now  func() time.Time
}

// Backend posts events to the ingestion API.
type Backend struct {
	base    *sling.Sling
	http    *http.Client
	workers int
	city    string
	now     func() time.Time
}

// NewBackend creates a Backend publisher for the API at opts.BaseURL.
func NewBackend(opts BackendOptions) (*Backend, error) {
	base := strings.TrimSpace(opts.BaseURL)
	if base == "" {
		return nil, fmt.Errorf("backend base URL is required")
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	s := sling.New().Base(base).Doer(client).Set("Accept", "application/json")
	if opts.UserAgent != "" {
		s = s.Set("User-Agent", opts.UserAgent)
	}
	b := &Backend{base: s, http: client, workers: opts.Workers, city: opts.City, now: opts.Now}
	if b.workers <= 0 {
		b.workers = DefaultWorkers
	}
	if b.city == "" {
		b.city = DefaultCity
	}
	if b.now == nil {
		b.now = time.Now
	}
	return b, nil
}

// Publish registers the unique venues of records, best effort, then posts
// every record through the worker pool. The error is non-nil only when ctx
// ends before delivery completes.
func (b *Backend) Publish(ctx context.Context, records []Record) (*Report, error) {
	report := &Report{Total: len(records)}
	if len(records) == 0 {
		return report, nil
	}

	venues := collectVenues(records, b.city)
	for _, v := range venues {
		if v.Website != "" {
			report.VenuesWithWebsites++
		}
		if err := b.post(ctx, "api/venues", v, venueTimeout); err != nil {
			metrics.Deliveries.WithLabelValues("venue", "error").Inc()
			logger.Debug("Venue registration failed", logger.Fields{"venue": v.Name, "error": err.Error()})
			continue
		}
		metrics.Deliveries.WithLabelValues("venue", "ok").Inc()
	}
	report.VenuesRegistered = len(venues)
	logger.Info("Venues registered", logger.Fields{
		"venues":        len(venues),
		"with_websites": report.VenuesWithWebsites,
	})

	now := b.now()
	var saved int32
	// failures is indexed by record so the report keeps input order.
	failures := make([]string, len(records))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i, rec := range records {
		i, rec := i, rec
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			payload := Transform(rec, now)
			if err := b.post(gctx, "api/events", payload, eventTimeout); err != nil {
				metrics.Deliveries.WithLabelValues("event", "error").Inc()
				logger.Warn("Event rejected", logger.Fields{"title": payload.Title, "error": err.Error()})
				failures[i] = fmt.Sprintf("%s: %v", payload.Title, err)
				return nil
			}
			metrics.Deliveries.WithLabelValues("event", "ok").Inc()
			atomic.AddInt32(&saved, 1)
			return nil
		})
	}
	err := g.Wait()
	report.Saved = int(atomic.LoadInt32(&saved))
	for _, f := range failures {
		if f != "" {
			report.Errors = append(report.Errors, f)
		}
	}

	logger.Info("Delivery complete", logger.Fields{"saved": report.Saved, "total": report.Total})
	if err == nil {
		err = ctx.Err()
	}
	return report, err
}

func (b *Backend) post(ctx context.Context, path string, body interface{}, timeout time.Duration) error {
	req, err := b.base.New().Post(path).BodyJSON(body).Request()
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := b.http.Do(req.WithContext(ctx))
	if err != nil {
		return err
	}
	defer resp.Body.Close() // nolint:errcheck

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 100))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}

// collectVenues returns one payload per venue name, case-insensitively, in
// first-seen order. A later record supplies the website when the first had
// none.
func collectVenues(records []Record, city string) []*VenuePayload {
	index := make(map[string]*VenuePayload)
	var venues []*VenuePayload
	for _, rec := range records {
		name := rec.first("venue")
		key := strings.ToLower(name)
		if key == "" || placeholderVenues[key] {
			continue
		}
		website := rec.first("venue_website", "_venue_website")
		if v, ok := index[key]; ok {
			if v.Website == "" {
				v.Website = website
			}
			continue
		}
		v := &VenuePayload{Name: name, Address: rec.first("venue_address"), City: city, Website: website}
		index[key] = v
		venues = append(venues, v)
	}
	return venues
}
