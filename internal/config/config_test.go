package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/locate918/eventengine/internal/platform"
)

func TestLoadFromReader_Defaults(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader() error = %v", err)
	}
	if cfg.UserAgent != DefaultUserAgent {
		t.Errorf("UserAgent = %q", cfg.UserAgent)
	}
	if cfg.HTTP.Timeout.Duration != 30*time.Second || cfg.HTTP.MaxPages != platform.DefaultMaxPages {
		t.Errorf("HTTP = %+v", cfg.HTTP)
	}
	if !cfg.Robots.Respect || !cfg.Extraction.FutureOnly || cfg.Backend.Workers != 10 {
		t.Errorf("defaults = %+v", cfg)
	}
}

func TestLoadFromReader_Overrides(t *testing.T) {
	t.Setenv("BACKEND_URL", "")
	yml := `
user_agent: " Test Agent "
http:
  timeout: 10s
  max_pages: 5
rate_limit:
  requests: 0
rendering:
  default: true
  timeout: 90s
backend:
  url: https://api.locate918.test/
  workers: 4
logging:
  level: DEBUG
sites:
  timely:
    Venue.Test: "123"
  bok_center: [" Arena.Test "]
`
	cfg, err := LoadFromReader(strings.NewReader(yml))
	if err != nil {
		t.Fatalf("LoadFromReader() error = %v", err)
	}
	if cfg.UserAgent != "Test Agent" || cfg.HTTP.Timeout.Duration != 10*time.Second || cfg.HTTP.MaxPages != 5 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.RateLimit.Enabled() {
		t.Error("rate limit should be disabled with zero requests")
	}
	if !cfg.Rendering.Default || cfg.Rendering.Timeout.Duration != 90*time.Second || !cfg.Rendering.Headless {
		t.Errorf("Rendering = %+v", cfg.Rendering)
	}
	if cfg.Backend.URL != "https://api.locate918.test" || cfg.Logging.Level != "debug" {
		t.Errorf("Backend.URL = %q, level = %q", cfg.Backend.URL, cfg.Logging.Level)
	}
	if cfg.Sites.BOKCenter[0] != "arena.test" {
		t.Errorf("BOKCenter = %v", cfg.Sites.BOKCenter)
	}
}

func TestLoadFromReader_Errors(t *testing.T) {
	t.Setenv("BACKEND_URL", "")
	tests := []struct {
		name string
		yml  string
		want string
	}{
		{"unknown key", "colour: blue\n", "decode config"},
		{"bad duration", "http:\n  timeout: soon\n", "invalid duration"},
		{"negative duration", "http:\n  retry_wait: -1s\n", "must not be negative"},
		{"list duration", "rate_limit:\n  window: [1, 2]\n", "duration must be a scalar"},
		{"zero pages", "http:\n  max_pages: 0\n", "max_pages"},
		{"bad level", "logging:\n  level: loud\n", "logging.level"},
		{"bad backend", "backend:\n  url: ftp://x\n", "backend.url"},
		{"incomplete site", "sites:\n  eventcalendarapp:\n    x.test: {id: '1'}\n", "widget_uuid"},
		{"incomplete place", "sites:\n  eventbrite_places:\n    - slug: tulsa\n", "slug and id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromReader(strings.NewReader(tt.yml))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestLoad_BackendEnv(t *testing.T) {
	t.Setenv("BACKEND_URL", "http://backend.test:3000/")
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Backend.URL != "http://backend.test:3000" {
		t.Errorf("Backend.URL = %q", cfg.Backend.URL)
	}
}

func TestPlatformSites(t *testing.T) {
	s := SitesConfig{
		Timely:           map[string]string{"Bar.Test": "77"},
		BOKCenter:        []string{"bokcenter.com", "arena.test"},
		EventbritePlaces: []platform.Place{{Slug: "tulsa", ID: "1"}, {Slug: "norman", ID: "2"}},
	}
	sites := s.PlatformSites()

	if sites.Timely["bar.test"] != "77" || sites.Timely["thestarlitebar.com"] == "" {
		t.Errorf("Timely = %v", sites.Timely)
	}
	if len(sites.BOKCenter) != 3 {
		t.Errorf("BOKCenter = %v", sites.BOKCenter)
	}
	places := sites.EventbritePlaces
	if places[0].Slug != "tulsa" || places[0].ID != "1" || places[len(places)-1].Slug != "norman" {
		t.Errorf("EventbritePlaces = %v", places)
	}

	s.ReplaceDefaults = true
	sites = s.PlatformSites()
	if len(sites.Timely) != 1 || len(sites.EventCalendarApp) != 0 || len(sites.EventbritePlaces) != 2 {
		t.Errorf("replaced sites = %+v", sites)
	}
}

func TestLoader_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eventengine.yaml")
	if err := os.WriteFile(path, []byte("http:\n  max_pages: 3\n"), 0644); err != nil {
		t.Fatal(err)
	}
	l, err := NewLoader(path)
	if err != nil {
		t.Fatal(err)
	}

	var notified *Config
	l.OnChange(func(c *Config) { notified = c })

	if err := os.WriteFile(path, []byte("http:\n  max_pages: 9\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Reload(); err != nil {
		t.Fatal(err)
	}
	if l.Config().HTTP.MaxPages != 9 || notified == nil || notified.HTTP.MaxPages != 9 {
		t.Errorf("reloaded max_pages = %d", l.Config().HTTP.MaxPages)
	}

	if err := os.WriteFile(path, []byte("http:\n  max_pages: -1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Reload(); err == nil {
		t.Error("Reload() of invalid config should fail")
	}
	if l.Config().HTTP.MaxPages != 9 {
		t.Error("failed reload replaced the config")
	}
}

func TestLoader_Watch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eventengine.yaml")
	if err := os.WriteFile(path, []byte("http:\n  max_pages: 3\n"), 0644); err != nil {
		t.Fatal(err)
	}
	l, err := NewLoader(path)
	if err != nil {
		t.Fatal(err)
	}
	changed := make(chan int, 4)
	l.OnChange(func(c *Config) { changed <- c.HTTP.MaxPages })

	stop, err := l.Watch()
	if err != nil {
		t.Fatal(err)
	}
	defer stop()

	if err := os.WriteFile(path, []byte("http:\n  max_pages: 7\n"), 0644); err != nil {
		t.Fatal(err)
	}
	deadline := time.After(5 * time.Second)
	for {
		select {
		case got := <-changed:
			if got == 7 {
				return
			}
		case <-deadline:
			t.Fatal("config change was not picked up")
		}
	}
}
