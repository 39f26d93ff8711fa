package extract

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/locate918/eventengine/internal/fetch"
	"github.com/locate918/eventengine/internal/robots"
)

type stubFetcher struct {
	html string
	err  error
	got  []fetch.Request
}

func (s *stubFetcher) Fetch(_ context.Context, req fetch.Request) (*fetch.Page, error) {
	s.got = append(s.got, req)
	if s.err != nil {
		return nil, s.err
	}
	return &fetch.Page{URL: req.URL, HTML: s.html}, nil
}

func robotsServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.Write([]byte(body)) // nolint:errcheck
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunner_Run(t *testing.T) {
	srv := robotsServer(t, "User-agent: *\nDisallow: /private/\n")
	gate := robots.NewGate(srv.Client(), "Locate918 Event Aggregator (educational project)", nil)
	schema := &stubExtractor{name: "Schema.org", titles: []string{"Gallery Walk"}}

	t.Run("allowed page is extracted", func(t *testing.T) {
		f := &stubFetcher{html: "<html><body>ok</body></html>"}
		r := &Runner{Gate: gate, Fetcher: f, Engine: newTestEngine(nil, schema, nil, nil)}

		res, err := r.Run(context.Background(), Job{URL: srv.URL + "/events", Render: true})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if len(res.Events) != 1 || res.Events[0].Title != "Gallery Walk" {
			t.Errorf("events = %v", eventTitles(res.Events))
		}
		if len(f.got) != 1 || !f.got[0].Render {
			t.Errorf("fetch requests = %+v", f.got)
		}
		host := strings.TrimPrefix(srv.URL, "http://")
		if res.Events[0].SourceName != host {
			t.Errorf("SourceName = %q, want host %q", res.Events[0].SourceName, host)
		}
	})

	t.Run("robots denial stops before fetching", func(t *testing.T) {
		f := &stubFetcher{html: "<html></html>"}
		r := &Runner{Gate: gate, Fetcher: f, Engine: newTestEngine(nil, schema, nil, nil)}

		res, err := r.Run(context.Background(), Job{URL: srv.URL + "/private/list", SourceName: "Private"})
		var pe *PolicyError
		if !errors.As(err, &pe) {
			t.Fatalf("error = %v, want PolicyError", err)
		}
		if res != nil || len(f.got) != 0 {
			t.Errorf("result = %v, fetches = %d", res, len(f.got))
		}
		if pe.Decision.Allowed || !strings.Contains(pe.Error(), "Blocked by robots.txt for path: /private/list") {
			t.Errorf("error = %q", pe.Error())
		}
	})

	t.Run("robots override", func(t *testing.T) {
		f := &stubFetcher{html: "<html></html>"}
		r := &Runner{Gate: gate, Fetcher: f, Engine: newTestEngine(nil, schema, nil, nil)}

		if _, err := r.Run(context.Background(), Job{URL: srv.URL + "/private/list", IgnoreRobots: true}); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if len(f.got) != 1 {
			t.Errorf("fetches = %d, want 1", len(f.got))
		}
	})

	t.Run("fetch failure", func(t *testing.T) {
		f := &stubFetcher{err: &fetch.StatusError{URL: srv.URL + "/events", Status: 503}}
		r := &Runner{Fetcher: f, Engine: newTestEngine(nil, schema, nil, nil)}

		_, err := r.Run(context.Background(), Job{URL: srv.URL + "/events"})
		var se *fetch.StatusError
		if !errors.As(err, &se) || se.Status != 503 {
			t.Errorf("error = %v, want wrapped StatusError", err)
		}
	})
}

func TestRunner_InvalidURL(t *testing.T) {
	r := &Runner{Fetcher: &stubFetcher{}, Engine: newTestEngine(nil, nil, nil, nil)}
	for _, raw := range []string{"", "/events", "ftp://venue.test/", "https://"} {
		if _, err := r.Run(context.Background(), Job{URL: raw}); !errors.Is(err, ErrInvalidURL) {
			t.Errorf("Run(%q) error = %v, want ErrInvalidURL", raw, err)
		}
	}
}
