package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/locate918/eventengine/internal/event"
	"github.com/locate918/eventengine/internal/extract"
	"github.com/locate918/eventengine/internal/filter"
	"github.com/locate918/eventengine/internal/logger"
	"github.com/locate918/eventengine/internal/storage"
)

type extractOptions struct {
	name         string
	render       bool
	noRender     bool
	allDates     bool
	ignoreRobots bool
	format       string
	sort         string
	save         bool
	output       string

	dates      string
	keywords   []string
	venues     []string
	categories []string
	weekends   bool
	free       bool
	maxPrice   float64
}

// eventFilter builds the output filter from the filter flags.
func (o *extractOptions) eventFilter(now time.Time) (*filter.Filter, error) {
	f := filter.NewFilter()
	if o.dates != "" {
		from, to, err := filter.ParseDateRange(o.dates, now, time.Local)
		if err != nil {
			return nil, err
		}
		f.DateFrom, f.DateTo = from, to
	}
	f.Keywords = o.keywords
	f.Venues = o.venues
	f.Categories = o.categories
	f.WeekendsOnly = o.weekends
	f.FreeOnly = o.free
	if o.maxPrice < 0 {
		return nil, fmt.Errorf("--max-price must not be negative")
	}
	f.MaxPrice = o.maxPrice
	return f, nil
}

func newExtractCmd() *cobra.Command {
	opts := &extractOptions{}
	cmd := &cobra.Command{
		Use:   "extract URL",
		Short: "Extract events from one page",
		Long: `Fetch a page and extract its events. Pages built on a known calendar
platform are read through the platform's API; other pages go through
structured data, DOM heuristics, and finally generic fallbacks.

Exit codes: 0 events found, 1 error, 2 no events, 3 blocked by robots.txt.`,
		Example: `  eventengine extract https://venue.example/events
  eventengine extract https://venue.example/calendar --render --format json
  eventengine extract https://venue.example/events --format ics --output events.ics`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd.Context(), args[0], opts, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.name, "name", "", "Source name (default: the page host)")
	flags.BoolVar(&opts.render, "render", false, "Render the page in a headless browser")
	flags.BoolVar(&opts.noRender, "no-render", false, "Fetch over plain HTTP even when rendering is the default")
	flags.BoolVar(&opts.allDates, "all-dates", false, "Keep past events returned by platform APIs")
	flags.BoolVar(&opts.ignoreRobots, "ignore-robots", false, "Skip the robots.txt check for this page")
	flags.StringVar(&opts.format, "format", "text", "Output format: text, json, or ics")
	flags.StringVar(&opts.sort, "sort", "none", "Sort events by: none, date, title, or venue")
	flags.BoolVar(&opts.save, "save", false, "Save the result to the data directory")
	flags.StringVarP(&opts.output, "output", "o", "", "Write output to a file instead of stdout")

	flags.StringVar(&opts.dates, "dates", "", `Only events in a date range ("Mar 1-15", "March", "2026-03-01..2026-03-15")`)
	flags.StringSliceVar(&opts.keywords, "keyword", nil, "Only events whose title or description contains a keyword")
	flags.StringSliceVar(&opts.venues, "venue", nil, "Only events at a matching venue")
	flags.StringSliceVar(&opts.categories, "category", nil, "Only events in a category")
	flags.BoolVar(&opts.weekends, "weekends", false, "Only Saturday and Sunday events")
	flags.BoolVar(&opts.free, "free", false, "Only free events")
	flags.Float64Var(&opts.maxPrice, "max-price", 0, "Only events whose lowest price is at most this")
	return cmd
}

func runExtract(ctx context.Context, target string, opts *extractOptions, stdout io.Writer) error {
	format, err := ParseFormat(opts.format)
	if err != nil {
		return err
	}
	order, err := ParseSortOrder(opts.sort)
	if err != nil {
		return err
	}
	now := time.Now()
	f, err := opts.eventFilter(now)
	if err != nil {
		return err
	}

	cfg := rootConfig
	a, err := newApp(cfg, newShared())
	if err != nil {
		return err
	}

	render := cfg.Rendering.Default
	if opts.render {
		render = true
	}
	if opts.noRender {
		render = false
	}

	job := extract.Job{
		URL:          target,
		SourceName:   opts.name,
		FutureOnly:   cfg.Extraction.FutureOnly && !opts.allDates,
		Render:       render,
		IgnoreRobots: opts.ignoreRobots,
	}
	res, err := a.runner.Run(ctx, job)
	if err != nil {
		return err
	}
	event.StripProvenance(res.Events)

	out := &OutputResult{
		ExtractedAt: now,
		URL:         target,
		Source:      sourceOf(job),
		RunID:       res.RunID,
		Events:      res.Events,
		EventCount:  len(res.Events),
		Methods:     res.Methods,
		Detected:    res.Detected,
		Reason:      res.Reason,
		HTMLSize:    res.HTMLSize,
	}
	if !f.IsEmpty() {
		out.Events = f.Apply(out.Events)
		out.EventCount = len(out.Events)
		out.Filter = f.String()
	}
	sortEvents(out.Events, order)

	// Saved results keep every extracted event; filters shape only the output.
	if opts.save && len(res.Events) > 0 {
		name, err := saveResult(a.store, out.Source, res, cfg.Extraction.SaveHTML, out.ExtractedAt)
		if err != nil {
			return err
		}
		out.Filename = name
	}

	w := stdout
	if opts.output != "" {
		file, err := os.Create(opts.output)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer file.Close()
		w = file
	}
	if err := WriteOutput(w, out, format, flagVerbose); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	if out.EventCount == 0 {
		return &exitError{code: ExitNoEvents}
	}
	return nil
}

func sourceOf(job extract.Job) string {
	if job.SourceName != "" {
		return job.SourceName
	}
	return event.HostOf(job.URL)
}

// saveResult writes the events and, when enabled, the page HTML.
func saveResult(store *storage.Storage, source string, res *extract.Result, withHTML bool, at time.Time) (string, error) {
	name, err := store.SaveResult(source, res.Events, at)
	if err != nil {
		return "", err
	}
	if withHTML && res.HTML != "" {
		if _, err := store.SaveHTML(source, res.HTML, at); err != nil {
			logger.Warn("Saving page HTML failed", logger.Fields{"source": source, "error": err.Error()})
		}
	}
	return name, nil
}

type batchOptions struct {
	file        string
	saved       bool
	allDates    bool
	concurrency int
}

func newBatchCmd() *cobra.Command {
	opts := &batchOptions{}
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Extract events from many pages and save the results",
		Long: `Extract every page of a URL list and save each result to the data
directory. The list is either a file with one "URL [name]" per line, or the
saved-URL list (--saved). Pages run concurrently; one failing page does not
stop the others.`,
		Example: `  eventengine batch --saved
  eventengine batch --file venues.txt --concurrency 8`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.file, "file", "f", "", "File with one URL (and optional name) per line")
	flags.BoolVar(&opts.saved, "saved", false, "Extract every saved URL")
	flags.BoolVar(&opts.allDates, "all-dates", false, "Keep past events returned by platform APIs")
	flags.IntVar(&opts.concurrency, "concurrency", 0, "Pages extracted at once (default from config)")
	return cmd
}

// batchSummary is one line of the batch report.
type batchSummary struct {
	URL      string
	Events   int
	Filename string
	Err      error
}

func runBatch(ctx context.Context, opts *batchOptions, stdout io.Writer) error {
	cfg := rootConfig
	a, err := newApp(cfg, newShared())
	if err != nil {
		return err
	}

	var targets []storage.SavedURL
	switch {
	case opts.file != "":
		f, err := os.Open(opts.file)
		if err != nil {
			return fmt.Errorf("opening url list: %w", err)
		}
		targets, err = parseURLList(f)
		f.Close()
		if err != nil {
			return err
		}
	case opts.saved:
		targets = a.store.LoadSavedURLs()
	default:
		return fmt.Errorf("either --file or --saved is required")
	}
	if len(targets) == 0 {
		fmt.Fprintln(stdout, "No URLs to extract.")
		return &exitError{code: ExitNoEvents}
	}

	limit := opts.concurrency
	if limit <= 0 {
		limit = cfg.Extraction.Concurrency
	}

	summaries := make([]batchSummary, len(targets))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, t := range targets {
		i, t := i, t
		g.Go(func() error {
			job := extract.Job{
				URL:        t.URL,
				SourceName: t.Name,
				FutureOnly: cfg.Extraction.FutureOnly && !opts.allDates,
				Render:     t.Render || cfg.Rendering.Default,
			}
			s := batchSummary{URL: t.URL}
			res, err := a.runner.Run(gctx, job)
			if err != nil {
				s.Err = err
			} else {
				s.Events = len(res.Events)
				event.StripProvenance(res.Events)
				if len(res.Events) > 0 {
					s.Filename, s.Err = saveResult(a.store, sourceOf(job), res, cfg.Extraction.SaveHTML, time.Now())
				}
			}
			mu.Lock()
			summaries[i] = s
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	total, failed := 0, 0
	for _, s := range summaries {
		switch {
		case s.Err != nil:
			failed++
			fmt.Fprintf(stdout, "FAIL  %s: %v\n", s.URL, s.Err)
		case s.Events == 0:
			fmt.Fprintf(stdout, "EMPTY %s\n", s.URL)
		default:
			total += s.Events
			fmt.Fprintf(stdout, "OK    %s: %d events -> %s\n", s.URL, s.Events, s.Filename)
		}
	}
	fmt.Fprintf(stdout, "\n%d pages, %d events, %d failed\n", len(summaries), total, failed)

	if failed == len(summaries) {
		return fmt.Errorf("all %d pages failed", failed)
	}
	if total == 0 {
		return &exitError{code: ExitNoEvents}
	}
	return nil
}

// parseURLList reads "URL [name]" lines. Blank lines and lines starting with
// # are skipped.
func parseURLList(r io.Reader) ([]storage.SavedURL, error) {
	var urls []storage.SavedURL
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		entry := storage.SavedURL{URL: fields[0]}
		if len(fields) > 1 {
			entry.Name = strings.Join(fields[1:], " ")
		}
		urls = append(urls, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading url list: %w", err)
	}
	return urls, nil
}
