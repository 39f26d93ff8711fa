package scraper

import (
	"strings"

	"github.com/locate918/eventengine/internal/event"
)

// Extractor finds events in a parsed page. Extract never fails: malformed
// items are skipped and an empty result means the pattern was not found.
type Extractor interface {
	// Name is the provenance label, e.g. "Dice.fm".
	Name() string
	Extract(p *Page) []*event.Event
}

// Structured returns the JSON-LD extractor.
func Structured() Extractor {
	return SchemaOrg{}
}

// Heuristics returns the DOM heuristic extractors in priority order. All of
// them run on every page and their results are accumulated.
func Heuristics() []Extractor {
	return []Extractor{
		Tribe{},
		EventbriteEmbed{},
		Stubwire{},
		NewLinkExtractor(Dice),
		NewLinkExtractor(Bandsintown),
		NewLinkExtractor(Songkick),
		NewLinkExtractor(Ticketmaster),
		NewLinkExtractor(AXS),
		Etix{},
		NewLinkExtractor(SeeTickets),
	}
}

// Fallbacks returns the extractors tried in order, each only while nothing
// has been found.
func Fallbacks() []Extractor {
	return []Extractor{
		TimelyWidget{},
		Repeating{},
		Proximity{},
	}
}

// IsEtixHost reports whether the page is served by Etix itself, where the
// Etix extractor reads native performance cards before anything else runs.
func IsEtixHost(pageURL string) bool {
	host := event.HostOf(pageURL)
	return host == "etix.com" || strings.HasSuffix(host, ".etix.com")
}
