// Package metrics holds the Prometheus collectors shared by the engine and
// its collaborators. Collectors register on the default registry and are
// exposed by the serve command at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ExtractionRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventengine_extraction_runs_total",
		Help: "Extraction runs, labelled by outcome (events, empty, blocked, error).",
	}, []string{"outcome"})

	EventsExtracted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventengine_events_extracted_total",
		Help: "Events surviving deduplication, labelled by extraction method.",
	}, []string{"method"})

	ExtractionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "eventengine_extraction_duration_seconds",
		Help:    "Wall time of one cascade run, including API pagination.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	})

	APIPages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventengine_api_pages_total",
		Help: "Direct API page requests, labelled by platform and status (ok, error).",
	}, []string{"platform", "status"})

	RobotsDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventengine_robots_decisions_total",
		Help: "Robots gate decisions, labelled by result (allowed, blocked, no_policy).",
	}, []string{"result"})

	RepairsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventengine_repairs_applied_total",
		Help: "Text repairs that changed upstream data, labelled by repair kind.",
	}, []string{"repair"})

	PagesFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventengine_pages_fetched_total",
		Help: "Target pages acquired, labelled by fetcher (http, render) and status.",
	}, []string{"fetcher", "status"})

	Deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventengine_deliveries_total",
		Help: "Backend deliveries, labelled by kind (event, venue) and status.",
	}, []string{"kind", "status"})

	VenueLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventengine_venue_lookups_total",
		Help: "Venue website lookups, labelled by result (cached, found, missing, error).",
	}, []string{"result"})
)
