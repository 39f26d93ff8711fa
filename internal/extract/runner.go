package extract

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/locate918/eventengine/internal/event"
	"github.com/locate918/eventengine/internal/fetch"
	"github.com/locate918/eventengine/internal/logger"
	"github.com/locate918/eventengine/internal/metrics"
	"github.com/locate918/eventengine/internal/robots"
)

// ErrInvalidURL is returned for targets that are not absolute http(s) URLs.
var ErrInvalidURL = errors.New("invalid target url")

// PolicyError reports a target the robots gate refused. It is a hard stop,
// distinct from fetch or extraction failures.
type PolicyError struct {
	URL      string
	Decision robots.Decision
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("%s: %s", e.URL, e.Decision.Message)
}

// Job describes one page to extract.
type Job struct {
	URL        string `json:"url"`
	SourceName string `json:"name"`
	FutureOnly bool   `json:"future_only"`
	Render     bool   `json:"render"`
	// IgnoreRobots skips the robots gate for this job.
	IgnoreRobots bool `json:"ignore_robots"`
}

// Runner checks robots.txt, acquires the page, and runs the engine.
type Runner struct {
	// Gate may be nil, which disables the robots check.
	Gate    *robots.Gate
	Fetcher fetch.Fetcher
	Engine  *Engine
}

// Run extracts one page. Errors are returned only when no extraction could
// be attempted: an invalid URL, a robots denial, or a failed fetch.
func (r *Runner) Run(ctx context.Context, job Job) (*Result, error) {
	u, err := url.Parse(strings.TrimSpace(job.URL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, job.URL)
	}
	job.URL = u.String()
	if job.SourceName == "" {
		job.SourceName = event.HostOf(job.URL)
	}

	log := logger.With(logger.Fields{"url": job.URL, "source": job.SourceName})
	if job.IgnoreRobots {
		log.Warn("Robots check skipped by request", nil)
	}

	if r.Gate != nil && !job.IgnoreRobots {
		decision := r.Gate.CheckAllowed(ctx, job.URL)
		log.Debug("Robots decision", logger.Fields{"allowed": decision.Allowed, "message": decision.Message})
		if !decision.Allowed {
			metrics.ExtractionRuns.WithLabelValues("blocked").Inc()
			return nil, &PolicyError{URL: job.URL, Decision: decision}
		}
	}

	page, err := r.Fetcher.Fetch(ctx, fetch.Request{URL: job.URL, Render: job.Render})
	if err != nil {
		metrics.ExtractionRuns.WithLabelValues("error").Inc()
		log.Error("Page fetch failed", nil, err)
		return nil, fmt.Errorf("fetching %s: %w", job.URL, err)
	}

	return r.Engine.Extract(ctx, Input{
		HTML:       page.HTML,
		URL:        job.URL,
		SourceName: job.SourceName,
		FutureOnly: job.FutureOnly,
	}), nil
}
