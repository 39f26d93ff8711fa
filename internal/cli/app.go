package cli

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/locate918/eventengine/internal/config"
	"github.com/locate918/eventengine/internal/extract"
	"github.com/locate918/eventengine/internal/fetch"
	"github.com/locate918/eventengine/internal/logger"
	"github.com/locate918/eventengine/internal/platform"
	"github.com/locate918/eventengine/internal/publish"
	"github.com/locate918/eventengine/internal/robots"
	"github.com/locate918/eventengine/internal/storage"
	"github.com/locate918/eventengine/internal/venue"
)

// app holds the components built from one configuration.
type app struct {
	cfg *config.Config
	// gate answers the robots command even when extraction skips it.
	gate    *robots.Gate
	fetcher fetch.Fetcher
	runner  *extract.Runner
	store   *storage.Storage
}

// shared outlives config reloads: caches stay warm across rebuilds.
type shared struct {
	robotsCache *robots.MemoryCache
	venueCache  *venue.Cache
}

func newShared() *shared {
	return &shared{
		robotsCache: robots.NewMemoryCache(),
		venueCache:  venue.NewCache(venue.DefaultTTL),
	}
}

// loadConfig reads the config file and applies the global flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	applyFlags(cfg)
	return cfg, nil
}

func applyFlags(cfg *config.Config) {
	if flagDataDir != "" {
		cfg.Storage.DataDir = flagDataDir
	}
	if flagUserAgent != "" {
		cfg.UserAgent = flagUserAgent
	}
	if flagNoRobots {
		cfg.Robots.Respect = false
	}
	if flagLogLevel != "" {
		cfg.Logging.Level = flagLogLevel
	}
	if flagVerbose {
		cfg.Logging.Level = "debug"
	}
}

// setupLogger installs the default logger on stderr.
func setupLogger(cfg *config.Config) error {
	level, err := logger.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	logger.SetDefault(logger.New(level, os.Stderr))
	return nil
}

// newApp wires the extraction stack for cfg.
func newApp(cfg *config.Config, sh *shared) (*app, error) {
	store, err := storage.New(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}

	httpFetcher := fetch.NewHTTPFetcher(fetch.Options{
		UserAgent:    cfg.UserAgent,
		Timeout:      cfg.HTTP.Timeout.Duration,
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
	})
	renderer := fetch.NewChromedpRenderer(fetch.RenderOptions{
		Timeout:            cfg.Rendering.Timeout.Duration,
		UserAgent:          cfg.UserAgent,
		MaxBodyBytes:       cfg.HTTP.MaxBodyBytes,
		DisableHeadless:    !cfg.Rendering.Headless,
		ConcurrentSessions: cfg.Rendering.ConcurrentSessions,
		CaptureDelay:       cfg.Rendering.CaptureDelay.Duration,
	})
	fetcher := fetch.NewComposite(httpFetcher, renderer)

	var limiter *platform.HostLimiter
	if cfg.RateLimit.Enabled() {
		limiter = platform.NewHostLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window.Duration)
	}
	client := platform.NewClient(platform.ClientOptions{
		HTTPClient: &http.Client{Timeout: cfg.HTTP.Timeout.Duration},
		UserAgent:  cfg.UserAgent,
		MaxPages:   cfg.HTTP.MaxPages,
		Retries:    uint64(cfg.HTTP.Retries),
		RetryWait:  cfg.HTTP.RetryWait.Duration,
		Limiter:    limiter,
	})
	resolver := venue.NewResolver(httpFetcher, sh.venueCache)

	engine := extract.NewEngine(extract.EngineOptions{
		Platforms: platform.Registry(client, cfg.Sites.PlatformSites(), resolver),
	})

	gate := robots.NewGate(&http.Client{Timeout: cfg.Robots.Timeout.Duration}, cfg.UserAgent, sh.robotsCache)
	runner := &extract.Runner{Fetcher: fetcher, Engine: engine}
	if cfg.Robots.Respect {
		runner.Gate = gate
	}

	return &app{
		cfg:     cfg,
		gate:    gate,
		fetcher: fetcher,
		runner:  runner,
		store:   store,
	}, nil
}

// publisher returns the backend publisher, or a dry run.
func (a *app) publisher(dryRun bool) (publish.Publisher, error) {
	if dryRun {
		return publish.NewDryRun(os.Stdout), nil
	}
	return publish.NewBackend(publish.BackendOptions{
		BaseURL:    a.cfg.Backend.URL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		UserAgent:  a.cfg.UserAgent,
		Workers:    a.cfg.Backend.Workers,
		City:       a.cfg.Backend.City,
	})
}
