// Package extract runs the extraction cascade over one page: platform APIs
// first, then structured data and DOM heuristics, then generic fallbacks,
// and finally title deduplication with provenance stamping.
//
// The Engine works on HTML it is given. The Runner wraps it with the robots
// gate and page acquisition.
package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/locate918/eventengine/internal/event"
	"github.com/locate918/eventengine/internal/logger"
	"github.com/locate918/eventengine/internal/metrics"
	"github.com/locate918/eventengine/internal/platform"
	"github.com/locate918/eventengine/internal/scraper"
)

// Input is one page handed to the engine.
type Input struct {
	HTML       string
	URL        string
	SourceName string
	FutureOnly bool
}

// Result is the outcome of one cascade run.
type Result struct {
	RunID  string         `json:"run_id"`
	Events []*event.Event `json:"events"`
	// Methods lists "<Method> (<count>)" for every method that contributed,
	// in the order they ran.
	Methods []string `json:"methods"`
	// Detected names the platform whose API answered for the page, if any.
	Detected string `json:"detected,omitempty"`
	// Reason explains an empty result.
	Reason   string `json:"reason,omitempty"`
	HTMLSize int    `json:"html_size"`
	Stage    Stage  `json:"-"`
	// HTML is the page the run worked on, kept for saving alongside results.
	HTML string `json:"-"`
}

// EngineOptions configures an Engine. Nil extractor lists fall back to the
// scraper package's registries.
type EngineOptions struct {
	Platforms  []platform.Platform
	Structured scraper.Extractor
	Heuristics []scraper.Extractor
	Fallbacks  []scraper.Extractor
	Now        func() time.Time
	Log        *logger.Logger
}

// Engine is the cascade controller. It holds no per-run state and may be
// used by concurrent runs.
type Engine struct {
	platforms  []platform.Platform
	override   scraper.Extractor
	structured scraper.Extractor
	heuristics []scraper.Extractor
	fallbacks  []scraper.Extractor
	now        func() time.Time
	log        *logger.Logger
}

// NewEngine creates an Engine.
func NewEngine(opts EngineOptions) *Engine {
	e := &Engine{
		platforms:  opts.Platforms,
		override:   scraper.Etix{},
		structured: opts.Structured,
		heuristics: opts.Heuristics,
		fallbacks:  opts.Fallbacks,
		now:        opts.Now,
		log:        opts.Log,
	}
	if e.structured == nil {
		e.structured = scraper.Structured()
	}
	if e.heuristics == nil {
		e.heuristics = scraper.Heuristics()
	}
	if e.fallbacks == nil {
		e.fallbacks = scraper.Fallbacks()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.log == nil {
		e.log = logger.Default()
	}
	return e
}

// run accumulates the events of one cascade.
type run struct {
	in      Input
	now     time.Time
	log     *logger.Logger
	res     *Result
	events  []*event.Event
	origin  map[*event.Event]string
	methods []string
}

func (r *run) advance(s Stage) {
	r.res.Stage = s
	r.log.Debug("Cascade stage reached", logger.Fields{"stage": s.String(), "events": len(r.events)})
}

func (r *run) add(method string, events []*event.Event) {
	if len(events) == 0 {
		return
	}
	r.methods = append(r.methods, fmt.Sprintf("%s (%d)", method, len(events)))
	for _, evt := range events {
		r.origin[evt] = method
	}
	r.events = append(r.events, events...)
}

// Extract runs the cascade. It never fails: an empty result carries a Reason.
func (e *Engine) Extract(ctx context.Context, in Input) *Result {
	start := time.Now()
	res := &Result{RunID: uuid.NewString(), HTMLSize: len(in.HTML), HTML: in.HTML}
	r := &run{
		in:     in,
		now:    e.now(),
		res:    res,
		origin: make(map[*event.Event]string),
		log: e.log.With(logger.Fields{
			"run_id": res.RunID,
			"source": in.SourceName,
			"url":    in.URL,
		}),
	}

	e.cascade(ctx, r)
	r.finish()

	outcome := "events"
	if len(res.Events) == 0 {
		outcome = "empty"
		if res.Reason == "" {
			res.Reason = "No events found by any extraction method"
		}
	}
	metrics.ExtractionRuns.WithLabelValues(outcome).Inc()
	metrics.ExtractionDuration.Observe(time.Since(start).Seconds())

	r.log.Info("Extraction finished", logger.Fields{
		"events":      len(res.Events),
		"methods":     res.Methods,
		"detected":    res.Detected,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return res
}

func (e *Engine) cascade(ctx context.Context, r *run) {
	page, err := scraper.NewPage(r.in.HTML, r.in.URL, r.in.SourceName, r.now)
	if err != nil {
		r.log.Warn("Page markup could not be parsed", logger.Fields{"error": err.Error()})
	} else {
		page.Log = r.log
	}

	if page != nil && scraper.IsEtixHost(r.in.URL) {
		if events := e.runExtractor(r, e.override, page); len(events) > 0 {
			r.add(e.override.Name(), events)
			return
		}
	}

	if e.tryPlatforms(ctx, r) {
		return
	}
	r.advance(DirectAPITried)

	if page == nil {
		r.res.Reason = "Page could not be parsed: " + err.Error()
		return
	}

	r.add(e.structured.Name(), e.runExtractor(r, e.structured, page))
	r.advance(StructuredTried)

	for _, x := range e.heuristics {
		r.add(x.Name(), e.runExtractor(r, x, page))
	}
	r.advance(HeuristicsAccumulated)

	for _, x := range e.fallbacks {
		if len(r.events) > 0 {
			break
		}
		r.add(x.Name(), e.runExtractor(r, x, page))
	}
	r.advance(FallbackIfEmpty)
}

// tryPlatforms reports whether a platform detected the page. The first
// detection ends the cascade even when its API yields nothing.
func (e *Engine) tryPlatforms(ctx context.Context, r *run) bool {
	for _, p := range e.platforms {
		params, ok := p.Detect(r.in.HTML, r.in.URL)
		if !ok {
			continue
		}
		r.res.Detected = p.Name()
		log := r.log.With(logger.Fields{"platform": p.Name()})
		log.Info("Platform detected", nil)

		events, err := p.FetchAndParse(ctx, params, platform.Request{
			SourceName: r.in.SourceName,
			PageURL:    r.in.URL,
			HTML:       r.in.HTML,
			FutureOnly: r.in.FutureOnly,
			Now:        func() time.Time { return r.now },
			Log:        log,
		})
		if err != nil {
			log.Warn("Platform extraction incomplete", logger.Fields{"events": len(events), "error": err.Error()})
		}
		r.add(apiMethod(p.Name()), events)
		r.advance(DirectAPITried)

		if len(events) == 0 {
			r.res.Reason = p.Name() + " detected but returned no events"
			if err != nil {
				r.res.Reason += ": " + err.Error()
			}
		}
		return true
	}
	return false
}

// runExtractor isolates one extractor: a panic costs only its own results.
func (e *Engine) runExtractor(r *run, x scraper.Extractor, page *scraper.Page) (events []*event.Event) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("Extractor failed", logger.Fields{"extractor": x.Name()}, fmt.Errorf("panic: %v", rec))
			events = nil
		}
	}()
	events = x.Extract(page)
	if len(events) > 0 {
		r.log.Debug("Extractor matched", logger.Fields{"extractor": x.Name(), "events": len(events)})
	}
	return events
}

// finish deduplicates by title and stamps every survivor with the methods
// that contributed to the run.
func (r *run) finish() {
	unique := event.Dedupe(r.events)
	r.advance(Deduplicated)

	for _, evt := range unique {
		evt.ExtractionMethods = append([]string(nil), r.methods...)
		metrics.EventsExtracted.WithLabelValues(r.origin[evt]).Inc()
	}
	r.res.Events = unique
	r.res.Methods = append([]string{}, r.methods...)
	r.advance(Done)
}

func apiMethod(name string) string {
	if strings.HasSuffix(name, " API") {
		return name
	}
	return name + " API"
}
