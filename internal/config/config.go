// Package config loads the engine configuration from a YAML file.
//
// Every setting has a default, so an empty file (or no file at all) yields
// a working configuration. Unknown keys are rejected. The known-site tables
// extend the built-in ones unless replace_defaults is set.
package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/locate918/eventengine/internal/logger"
	"github.com/locate918/eventengine/internal/platform"
)

// DefaultUserAgent identifies the engine to the sites it reads.
const DefaultUserAgent = "Locate918 Event Aggregator (educational project)"

// Config is the full engine configuration.
type Config struct {
	UserAgent  string           `yaml:"user_agent"`
	HTTP       HTTPConfig       `yaml:"http"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Robots     RobotsConfig     `yaml:"robots"`
	Rendering  RenderingConfig  `yaml:"rendering"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Sites      SitesConfig      `yaml:"sites"`
	Backend    BackendConfig    `yaml:"backend"`
	Storage    StorageConfig    `yaml:"storage"`
	Logging    LoggingConfig    `yaml:"logging"`
	Serve      ServeConfig      `yaml:"serve"`
}

// HTTPConfig controls page fetches and platform API requests.
type HTTPConfig struct {
	Timeout      Duration `yaml:"timeout"`
	MaxBodyBytes int64    `yaml:"max_body_bytes"`
	MaxPages     int      `yaml:"max_pages"`
	Retries      int      `yaml:"retries"`
	RetryWait    Duration `yaml:"retry_wait"`
}

// RateLimitConfig paces API requests per host. Zero requests disables it.
type RateLimitConfig struct {
	Requests int      `yaml:"requests"`
	Window   Duration `yaml:"window"`
}

// Enabled reports whether pacing applies.
func (r RateLimitConfig) Enabled() bool {
	return r.Requests > 0 && r.Window.Duration > 0
}

// RobotsConfig controls the robots gate.
type RobotsConfig struct {
	Respect bool     `yaml:"respect"`
	Timeout Duration `yaml:"timeout"`
}

// RenderingConfig controls the headless browser.
type RenderingConfig struct {
	// Default renders pages unless a job says otherwise.
	Default            bool     `yaml:"default"`
	Headless           bool     `yaml:"headless"`
	Timeout            Duration `yaml:"timeout"`
	CaptureDelay       Duration `yaml:"capture_delay"`
	ConcurrentSessions int      `yaml:"concurrent_sessions"`
}

// ExtractionConfig holds run defaults.
type ExtractionConfig struct {
	FutureOnly  bool `yaml:"future_only"`
	Concurrency int  `yaml:"concurrency"`
	SaveHTML    bool `yaml:"save_html"`
}

// SitesConfig lists known sites per platform.
type SitesConfig struct {
	ReplaceDefaults  bool                        `yaml:"replace_defaults"`
	EventCalendarApp map[string]platform.ECASite `yaml:"eventcalendarapp"`
	Timely           map[string]string           `yaml:"timely"`
	BOKCenter        []string                    `yaml:"bok_center"`
	Simpleview       []string                    `yaml:"simpleview"`
	EventbritePlaces []platform.Place            `yaml:"eventbrite_places"`
}

// BackendConfig points at the event ingestion API.
type BackendConfig struct {
	URL     string `yaml:"url"`
	Workers int    `yaml:"workers"`
	City    string `yaml:"city"`
}

// StorageConfig locates saved results.
type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
}

// LoggingConfig sets the log level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// ServeConfig controls the HTTP service.
type ServeConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		UserAgent: DefaultUserAgent,
		HTTP: HTTPConfig{
			Timeout:      durationOf(30 * time.Second),
			MaxBodyBytes: 5 << 20,
			MaxPages:     platform.DefaultMaxPages,
			Retries:      2,
			RetryWait:    durationOf(500 * time.Millisecond),
		},
		RateLimit: RateLimitConfig{
			Requests: 4,
			Window:   durationOf(time.Second),
		},
		Robots: RobotsConfig{
			Respect: true,
			Timeout: durationOf(5 * time.Second),
		},
		Rendering: RenderingConfig{
			Headless:           true,
			Timeout:            durationOf(60 * time.Second),
			CaptureDelay:       durationOf(3 * time.Second),
			ConcurrentSessions: 2,
		},
		Extraction: ExtractionConfig{
			FutureOnly:  true,
			Concurrency: 4,
		},
		Backend: BackendConfig{
			URL:     "http://localhost:3000",
			Workers: 10,
			City:    "Tulsa",
		},
		Storage: StorageConfig{DataDir: "~/.local/share/eventengine"},
		Logging: LoggingConfig{Level: "info"},
		Serve:   ServeConfig{Addr: ":8080"},
	}
}

// Load reads, normalises, and validates configuration from a YAML file. An
// empty path returns the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		cfg := Default()
		cfg.applyEnv()
		cfg.normalise()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer fh.Close() // nolint:errcheck

	return LoadFromReader(fh)
}

// LoadFromReader decodes configuration from an arbitrary reader.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := decodeYAML(r, &cfg); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	cfg.normalise()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decodeYAML(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// applyEnv lets the deployment override the backend location.
func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("BACKEND_URL")); v != "" {
		c.Backend.URL = v
	}
}

func (c *Config) normalise() {
	c.UserAgent = strings.TrimSpace(c.UserAgent)
	c.Backend.URL = strings.TrimRight(strings.TrimSpace(c.Backend.URL), "/")
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	for i := range c.Sites.BOKCenter {
		c.Sites.BOKCenter[i] = strings.ToLower(strings.TrimSpace(c.Sites.BOKCenter[i]))
	}
	for i := range c.Sites.Simpleview {
		c.Sites.Simpleview[i] = strings.ToLower(strings.TrimSpace(c.Sites.Simpleview[i]))
	}
}

// Validate enforces the invariants the engine relies on.
func (c Config) Validate() error {
	if c.UserAgent == "" {
		return errors.New("user_agent must not be empty")
	}
	if c.HTTP.Timeout.Duration <= 0 {
		return fmt.Errorf("http.timeout must be positive, got %s", c.HTTP.Timeout)
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		return fmt.Errorf("http.max_body_bytes must be positive, got %d", c.HTTP.MaxBodyBytes)
	}
	if c.HTTP.MaxPages <= 0 {
		return fmt.Errorf("http.max_pages must be positive, got %d", c.HTTP.MaxPages)
	}
	if c.HTTP.Retries < 0 {
		return fmt.Errorf("http.retries must not be negative, got %d", c.HTTP.Retries)
	}
	if c.RateLimit.Requests < 0 || c.RateLimit.Window.Duration < 0 {
		return errors.New("rate_limit values must not be negative")
	}
	if c.Rendering.Timeout.Duration <= 0 {
		return fmt.Errorf("rendering.timeout must be positive, got %s", c.Rendering.Timeout)
	}
	if c.Extraction.Concurrency <= 0 {
		return fmt.Errorf("extraction.concurrency must be positive, got %d", c.Extraction.Concurrency)
	}
	if c.Backend.Workers <= 0 {
		return fmt.Errorf("backend.workers must be positive, got %d", c.Backend.Workers)
	}
	if c.Backend.URL != "" {
		u, err := url.Parse(c.Backend.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("backend.url %q is not an http(s) URL", c.Backend.URL)
		}
	}
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	for host, site := range c.Sites.EventCalendarApp {
		if site.ID == "" || site.WidgetUUID == "" {
			return fmt.Errorf("sites.eventcalendarapp[%s] needs id and widget_uuid", host)
		}
	}
	for host, id := range c.Sites.Timely {
		if id == "" {
			return fmt.Errorf("sites.timely[%s] has empty calendar id", host)
		}
	}
	for i, p := range c.Sites.EventbritePlaces {
		if p.Slug == "" || p.ID == "" {
			return fmt.Errorf("sites.eventbrite_places[%d] needs slug and id", i)
		}
	}
	return nil
}

// PlatformSites merges the configured tables into the built-in ones. A
// configured host overrides the built-in entry; configured Eventbrite places
// follow the built-in default place.
func (s SitesConfig) PlatformSites() platform.Sites {
	sites := platform.Sites{
		EventCalendarApp: map[string]platform.ECASite{},
		Timely:           map[string]string{},
	}
	if !s.ReplaceDefaults {
		sites = platform.DefaultSites()
	}
	for host, site := range s.EventCalendarApp {
		sites.EventCalendarApp[strings.ToLower(host)] = site
	}
	for host, id := range s.Timely {
		sites.Timely[strings.ToLower(host)] = id
	}
	sites.BOKCenter = appendNew(sites.BOKCenter, s.BOKCenter...)
	sites.Simpleview = appendNew(sites.Simpleview, s.Simpleview...)

	for _, p := range s.EventbritePlaces {
		replaced := false
		for i := range sites.EventbritePlaces {
			if sites.EventbritePlaces[i].Slug == p.Slug {
				sites.EventbritePlaces[i] = p
				replaced = true
			}
		}
		if !replaced {
			sites.EventbritePlaces = append(sites.EventbritePlaces, p)
		}
	}
	return sites
}

func appendNew(list []string, values ...string) []string {
	out := append([]string(nil), list...)
	for _, v := range values {
		found := false
		for _, existing := range out {
			if existing == v {
				found = true
				break
			}
		}
		if !found && v != "" {
			out = append(out, v)
		}
	}
	return out
}
