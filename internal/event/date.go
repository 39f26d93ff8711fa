package event

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const monthNames = `jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?`

var (
	// datePattern finds date-like fragments in free text: "Feb 5, 2026",
	// "Thursday, February 5", "2/5/2026", "2026-02-05".
	datePattern = regexp.MustCompile(`(?i)(?:\b(?:mon|tue|wed|thu|fri|sat|sun)[a-z]*\.?,?\s+)?\b(?:` + monthNames + `)\.?\s*\d{1,2}(?:st|nd|rd|th)?\b(?:,?\s+\d{4}\b)?|\b\d{1,2}/\d{1,2}/\d{2,4}\b|\b\d{4}-\d{2}-\d{2}\b`)

	// timePattern finds clock times: "8:00pm", "8 PM", "20:00", "Doors: 7pm".
	timePattern = regexp.MustCompile(`(?i)(?:\bdoors:?\s*)?\b\d{1,2}(?::\d{2})?\s*[ap]\.?m\b\.?|\b\d{1,2}:\d{2}\b`)

	monthDayRe = regexp.MustCompile(`(?i)\b(` + monthNames + `)\.?\s*(\d{1,2})(?:st|nd|rd|th)?\b(?:,?\s+(\d{4})\b)?`)
	slashRe    = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{2,4})\b`)
	isoDateRe  = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	clockRe    = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*([ap])\.?m\b`)
	clock24Re  = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
)

// zonedLayouts carry their own offset.
var zonedLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04Z07:00",
}

// localLayouts are interpreted in the caller's location.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// FindDate returns the first date-like fragment in text, or "".
func FindDate(text string) string {
	return strings.TrimSpace(datePattern.FindString(text))
}

// FindTime returns the first clock-time fragment in text, or "".
func FindTime(text string) string {
	return strings.TrimSpace(timePattern.FindString(text))
}

// HasDate reports whether text contains a date-like fragment.
func HasDate(text string) bool {
	return datePattern.MatchString(text)
}

// HasTime reports whether text contains a clock-time fragment.
func HasTime(text string) bool {
	return timePattern.MatchString(text)
}

// DateTimeFromText scans text for a date and a time and joins them as
// "date @ time". Either half may be missing.
func DateTimeFromText(text string) string {
	return JoinDateTime(FindDate(text), FindTime(text))
}

// JoinDateTime formats a date and optional time as "date @ time".
func JoinDateTime(date, clock string) string {
	switch {
	case date != "" && clock != "":
		return date + " @ " + clock
	case date != "":
		return date
	default:
		return clock
	}
}

// ParseDateIn resolves free-form date/time text to a timestamp in loc.
// Structured ISO values are tried first; otherwise the first date fragment is
// located and combined with the first clock time that follows it. Dates
// without a year take the year of ref, rolling forward when that would put
// them more than 90 days in the past.
func ParseDateIn(text string, ref time.Time, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	text = CollapseWhitespace(text)
	if text == "" {
		return time.Time{}, false
	}

	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t, true
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, text, loc); err == nil {
			return t, true
		}
	}

	year, month, day, rest, ok := findCalendarDate(text, ref.In(loc))
	if !ok {
		return time.Time{}, false
	}
	hour, minute := findClock(rest)
	return time.Date(year, month, day, hour, minute, 0, 0, loc), true
}

// findCalendarDate extracts the first date fragment and returns the text
// following it, which is where the start time usually sits.
func findCalendarDate(text string, ref time.Time) (int, time.Month, int, string, bool) {
	type candidate struct {
		start, end int
		year       int
		month      time.Month
		day        int
	}
	var best *candidate

	consider := func(c candidate) {
		if c.month < time.January || c.month > time.December || c.day < 1 || c.day > 31 {
			return
		}
		if best == nil || c.start < best.start {
			best = &c
		}
	}

	if m := monthDayRe.FindStringSubmatchIndex(text); m != nil {
		month := monthFromName(text[m[2]:m[3]])
		day, _ := strconv.Atoi(text[m[4]:m[5]])
		year := 0
		if m[6] >= 0 {
			year, _ = strconv.Atoi(text[m[6]:m[7]])
		}
		consider(candidate{start: m[0], end: m[1], year: year, month: month, day: day})
	}
	if m := slashRe.FindStringSubmatchIndex(text); m != nil {
		month, _ := strconv.Atoi(text[m[2]:m[3]])
		day, _ := strconv.Atoi(text[m[4]:m[5]])
		year, _ := strconv.Atoi(text[m[6]:m[7]])
		if year < 100 {
			year += 2000
		}
		consider(candidate{start: m[0], end: m[1], year: year, month: time.Month(month), day: day})
	}
	if m := isoDateRe.FindStringSubmatchIndex(text); m != nil {
		year, _ := strconv.Atoi(text[m[2]:m[3]])
		month, _ := strconv.Atoi(text[m[4]:m[5]])
		day, _ := strconv.Atoi(text[m[6]:m[7]])
		consider(candidate{start: m[0], end: m[1], year: year, month: time.Month(month), day: day})
	}

	if best == nil {
		return 0, 0, 0, "", false
	}

	year := best.year
	if year == 0 {
		year = ref.Year()
		guess := time.Date(year, best.month, best.day, 0, 0, 0, 0, ref.Location())
		if guess.Before(ref.AddDate(0, 0, -90)) {
			year++
		}
	}
	// time.Date rolls Feb 30 into March; such dates are not real.
	if t := time.Date(year, best.month, best.day, 0, 0, 0, 0, ref.Location()); t.Month() != best.month || t.Day() != best.day {
		return 0, 0, 0, "", false
	}
	return year, best.month, best.day, text[best.end:], true
}

// findClock returns the first clock time in text, or midnight.
func findClock(text string) (int, int) {
	if m := clockRe.FindStringSubmatch(text); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		if hour > 12 || minute > 59 {
			return 0, 0
		}
		pm := strings.EqualFold(m[3], "p")
		switch {
		case pm && hour < 12:
			hour += 12
		case !pm && hour == 12:
			hour = 0
		}
		return hour, minute
	}
	if m := clock24Re.FindStringSubmatch(text); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if hour < 24 && minute < 60 {
			return hour, minute
		}
	}
	return 0, 0
}

func monthFromName(name string) time.Month {
	name = strings.ToLower(name)
	if len(name) > 3 {
		name = name[:3]
	}
	switch name {
	case "jan":
		return time.January
	case "feb":
		return time.February
	case "mar":
		return time.March
	case "apr":
		return time.April
	case "may":
		return time.May
	case "jun":
		return time.June
	case "jul":
		return time.July
	case "aug":
		return time.August
	case "sep":
		return time.September
	case "oct":
		return time.October
	case "nov":
		return time.November
	case "dec":
		return time.December
	}
	return 0
}

// Midnight returns the start of the day containing now, in now's location.
func Midnight(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

// IsPastAt checks if the event started before the day containing now.
// Returns false if the start is unknown (safer default).
func (e *Event) IsPastAt(now time.Time) bool {
	if e.Start == nil {
		return false
	}
	return e.Start.Before(Midnight(now))
}
