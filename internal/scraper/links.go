package scraper

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/locate918/eventengine/internal/event"
)

// LinkStrategy describes a ticketing platform recognised by outbound links
// to its event pages.
type LinkStrategy struct {
	Method string
	// Links selects candidate anchors, usually by domain.
	Links string
	// Paths lists href fragments of real event pages; empty accepts any.
	Paths []string
	// Generic lists lower-cased button labels that are not event titles.
	Generic []string
	// HeadingScope and Heading locate a title near the anchor when its own
	// text is too short or generic. An empty HeadingScope disables the lookup.
	HeadingScope string
	Heading      string
	DateScope    string
	Date         string
	// Image, when set, is looked up inside DateScope.
	Image string
	// SplitDate cuts anchor text at the first month and day, for platforms
	// that run artist, venue and date together in one link.
	SplitDate bool
}

const minLinkTitle = 3

var (
	buttonLabels = []string{"buy tickets", "get tickets"}
	cardScope    = "div, article, li"
	cardHeading  = `h1, h2, h3, h4, [class*="title"]`
	cardDate     = `time, [class*="date"]`
)

// Link strategies for the supported ticketing platforms.
var (
	Dice = LinkStrategy{
		Method:       "Dice.fm",
		Links:        `a[href*="dice.fm"]`,
		Generic:      []string{"buy tickets", "get tickets", "book now"},
		HeadingScope: "div, article",
		Heading:      cardHeading,
		DateScope:    cardScope,
		Date:         `time, [class*="date"], [datetime]`,
	}
	Bandsintown = LinkStrategy{
		Method:    "Bandsintown",
		Links:     `a[href*="bandsintown.com/e/"]`,
		DateScope: "div, li, tr",
		Date:      cardDate,
		SplitDate: true,
	}
	Songkick = LinkStrategy{
		Method:    "Songkick",
		Links:     `a[href*="songkick.com"]`,
		Paths:     []string{"/concerts/", "/events/"},
		DateScope: "div, li",
		Date:      cardDate,
	}
	Ticketmaster = LinkStrategy{
		Method:       "Ticketmaster",
		Links:        `a[href*="ticketmaster.com"], a[href*="livenation.com"]`,
		Paths:        []string{"/event/", "/venue/"},
		Generic:      []string{"buy tickets", "get tickets", "buy now"},
		HeadingScope: cardScope,
		Heading:      `h1, h2, h3, h4, [class*="title"], [class*="name"]`,
		DateScope:    cardScope,
		Date:         `time, [class*="date"], [datetime]`,
	}
	AXS = LinkStrategy{
		Method:       "AXS",
		Links:        `a[href*="axs.com"]`,
		Paths:        []string{"/events/"},
		Generic:      buttonLabels,
		HeadingScope: cardScope,
		Heading:      cardHeading,
		DateScope:    cardScope,
		Date:         cardDate,
	}
	SeeTickets = LinkStrategy{
		Method:       "See Tickets",
		Links:        `a[href*="seetickets.us"], a[href*="seetickets.com"]`,
		Generic:      buttonLabels,
		HeadingScope: cardScope,
		Heading:      cardHeading,
		DateScope:    cardScope,
		Date:         cardDate,
	}
	etixOutbound = LinkStrategy{
		Method:       "Etix",
		Links:        `a[href*="etix.com"]`,
		Paths:        []string{"/ticket/", "/event/"},
		Generic:      buttonLabels,
		HeadingScope: cardScope,
		Heading:      cardHeading,
		DateScope:    cardScope,
		Date:         cardDate,
	}
	etixNative = LinkStrategy{
		Method:       "Etix",
		Links:        `a[href*="/ticket/p/"]`,
		Generic:      []string{"buy tickets", "get tickets", "buy", "tickets"},
		HeadingScope: "div, article, li, section",
		Heading:      `h1, h2, h3, h4, h5, [class*="title"], [class*="Title"], [class*="name"], [class*="Name"]`,
		DateScope:    "div, article, li, section",
		Date:         `time, [class*="date"], [class*="Date"], [class*="time"], [class*="Time"]`,
		Image:        "img",
	}
)

var monthDaySplit = regexp.MustCompile(`(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\s*\d{1,2}`)

// LinkExtractor applies a LinkStrategy. Selectors are compiled once.
type LinkExtractor struct {
	strategy     LinkStrategy
	links        cascadia.Selector
	headingScope cascadia.Selector
	heading      cascadia.Selector
	dateScope    cascadia.Selector
	date         cascadia.Selector
	image        cascadia.Selector
}

// NewLinkExtractor compiles s. It panics on an invalid selector, as the
// strategies are static.
func NewLinkExtractor(s LinkStrategy) *LinkExtractor {
	x := &LinkExtractor{
		strategy:  s,
		links:     cascadia.MustCompile(s.Links),
		dateScope: cascadia.MustCompile(s.DateScope),
		date:      cascadia.MustCompile(s.Date),
	}
	if s.HeadingScope != "" {
		x.headingScope = cascadia.MustCompile(s.HeadingScope)
		x.heading = cascadia.MustCompile(s.Heading)
	}
	if s.Image != "" {
		x.image = cascadia.MustCompile(s.Image)
	}
	return x
}

func (x *LinkExtractor) Name() string { return x.strategy.Method }

func (x *LinkExtractor) Extract(p *Page) []*event.Event {
	return x.extract(p, make(map[string]bool))
}

// extract skips anchors whose href is already in seen and records new ones.
func (x *LinkExtractor) extract(p *Page, seen map[string]bool) []*event.Event {
	var events []*event.Event
	p.Doc.FindMatcher(x.links).Each(func(_ int, a *goquery.Selection) {
		href := attr(a, "href")
		if len(x.strategy.Paths) > 0 && !containsAny(href, x.strategy.Paths...) {
			return
		}
		link := p.resolve(href)
		if link == "" || seen[link] {
			return
		}
		seen[link] = true

		title := text(a)
		var dateText string
		if x.strategy.SplitDate {
			if loc := monthDaySplit.FindStringIndex(title); loc != nil {
				dateText = strings.TrimSpace(title[loc[0]:])
				title = strings.TrimSpace(title[:loc[0]])
			}
		}
		if x.weak(title) && x.heading != nil {
			if h := first(ancestor(a, x.headingScope), x.heading); h.Length() > 0 {
				title = text(h)
			}
		}
		if x.weak(title) {
			return
		}

		card := ancestor(a, x.dateScope)
		if dateText == "" {
			dateText = dateOf(first(card, x.date))
		}

		evt := p.newEvent(title, dateText)
		evt.SourceURL = link
		evt.TicketsURL = link
		if x.image != nil {
			evt.ImageURL = p.resolve(attr(first(card, x.image), "src"))
		}
		events = append(events, evt)
	})
	return events
}

func (x *LinkExtractor) weak(title string) bool {
	if len(title) < minLinkTitle {
		return true
	}
	lower := strings.ToLower(title)
	for _, g := range x.strategy.Generic {
		if lower == g {
			return true
		}
	}
	return false
}
