package venue

import (
	"context"
	"testing"

	"github.com/locate918/eventengine/internal/fetch"
)

type stubFetcher struct {
	pages map[string]string
	hits  int
}

func (s *stubFetcher) Fetch(_ context.Context, req fetch.Request) (*fetch.Page, error) {
	s.hits++
	html, ok := s.pages[req.URL]
	if !ok {
		return nil, &fetch.StatusError{URL: req.URL, Status: 404}
	}
	return &fetch.Page{URL: req.URL, HTML: html}, nil
}

func TestFindWebsite(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "visit website link",
			html: `<a href="https://www.visittulsa.com/about">About</a>
				<a href="https://bluenote.test/">Visit Website</a>`,
			want: "https://bluenote.test/",
		},
		{
			name: "aggregator link skipped",
			html: `<a href="https://www.visittulsa.com/go">Visit Website</a>
				<a class="listing-Website-link" href="https://cain.test">cainsballroom</a>`,
			want: "https://cain.test",
		},
		{
			name: "contact section",
			html: `<div class="Contact-Info">
				<a href="https://maps.google.com/?q=x">Map</a>
				<a href="https://facebook.com/venue">Facebook</a>
				<a href="/listing/other">Other</a>
				<a href="https://gilcrease.test">gilcrease.test</a>
			</div>`,
			want: "https://gilcrease.test",
		},
		{
			name: "relative links ignored",
			html: `<a href="/website">Official Website</a>`,
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FindWebsite("<html><body>"+tt.html+"</body></html>", "www.visittulsa.com"); got != tt.want {
				t.Errorf("FindWebsite() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolver_Resolve(t *testing.T) {
	const listing = "https://www.visittulsa.com/listing/blue-note/9/"
	f := &stubFetcher{pages: map[string]string{
		listing: `<html><body><a href="https://bluenote.test">Visit Website</a></body></html>`,
	}}
	r := NewResolver(f, nil)

	for i := 0; i < 2; i++ {
		if got := r.Resolve(context.Background(), listing); got != "https://bluenote.test" {
			t.Errorf("Resolve() = %q", got)
		}
	}
	if f.hits != 1 {
		t.Errorf("fetches = %d, want 1 (cached)", f.hits)
	}

	missing := "https://www.visittulsa.com/listing/gone/1/"
	r.Resolve(context.Background(), missing)
	if got := r.Resolve(context.Background(), missing); got != "" {
		t.Errorf("Resolve(missing) = %q", got)
	}
	if f.hits != 2 {
		t.Errorf("fetches = %d, want failure cached", f.hits)
	}

	if got := r.Resolve(context.Background(), ""); got != "" || f.hits != 2 {
		t.Errorf("Resolve(\"\") = %q, fetches = %d", got, f.hits)
	}
}

func TestResolver_CancelledNotCached(t *testing.T) {
	cache := NewCache(0)
	r := NewResolver(fetchFunc(func(ctx context.Context, req fetch.Request) (*fetch.Page, error) {
		return nil, ctx.Err()
	}), cache)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if got := r.Resolve(ctx, "https://visit.test/listing/x"); got != "" {
		t.Errorf("Resolve() = %q", got)
	}
	if cache.Size() != 0 {
		t.Error("cancelled lookup was cached")
	}
}

type fetchFunc func(context.Context, fetch.Request) (*fetch.Page, error)

func (f fetchFunc) Fetch(ctx context.Context, req fetch.Request) (*fetch.Page, error) {
	return f(ctx, req)
}
