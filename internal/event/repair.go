package event

import (
	"regexp"
	"strings"
)

// The repairs in this file undo text corruption observed on specific upstream
// platforms. They are heuristics: each returns whether it changed the input
// so callers can log the repair.

var (
	caseBoundary   = regexp.MustCompile(`[a-z][A-Z]`)
	yearPattern    = regexp.MustCompile(`\d{4}`)
	commaNoSpace   = regexp.MustCompile(`,(\S)`)
	spaceComma     = regexp.MustCompile(`\s+,`)
	letterDigit    = regexp.MustCompile(`([A-Za-z])(\d)`)
	onSaleSuffix   = regexp.MustCompile(`(?i)\s*On Sale.*$`)
	leadingWeekday = regexp.MustCompile(`^(?i:mon|tue|wed|thu|fri|sat|sun)[a-z]*\.?,?\s*`)
)

var (
	weekdayTokens = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}
	monthTokens   = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}
)

// RepairTaggedTitle cuts a title polluted by tag text concatenated without a
// separator, e.g. "Starlite Trivia NightTriviatrivia night" becomes
// "Starlite Trivia Night". The cut is made at the first lowercase→uppercase
// boundary when the prefix is long enough, else at the first repeated word.
func RepairTaggedTitle(title string) (string, bool) {
	if len(title) < 20 {
		return title, false
	}

	if loc := caseBoundary.FindStringIndex(title); loc != nil {
		prefix := strings.TrimSpace(title[:loc[0]+1])
		if len(prefix) >= 10 || strings.Count(prefix, " ") >= 2 {
			return prefix, prefix != title
		}
	}

	words := strings.Fields(title)
	seen := make(map[string]bool, len(words))
	for i, w := range words {
		key := strings.ToLower(w)
		if seen[key] && i > 1 {
			return strings.Join(words[:i], " "), true
		}
		seen[key] = true
	}

	if len(title) > 50 && strings.Count(title, " ") < 5 {
		if parts := strings.SplitN(title, " - ", 2); len(parts) == 2 && len(parts[0]) >= 10 {
			return strings.TrimSpace(parts[0]), true
		}
		cut := title[:50]
		if i := strings.LastIndex(cut, " "); i > 20 {
			return strings.TrimSpace(cut[:i]), true
		}
	}
	return title, false
}

// CollapseDoubled collapses text rendered twice back to back, e.g.
// "Jazz NightJazz Night" becomes "Jazz Night".
func CollapseDoubled(s string) (string, bool) {
	runes := []rune(s)
	if len(runes) <= 10 {
		return s, false
	}
	half := len(runes) / 2
	if string(runes[:half]) == string(runes[half:2*half]) {
		return strings.TrimSpace(string(runes[:half])), true
	}
	return s, false
}

// RepairDuplicatedDate cleans date strings that repeat their weekday/month
// tokens and carry a sales-status suffix, e.g.
// "Thu,Feb5, 2026 Thu, Feb 5 , 2026 On Sale Soon" becomes "Feb 5, 2026".
func RepairDuplicatedDate(s string) (string, bool) {
	orig := s
	s = CollapseWhitespace(s)

	if loc := yearPattern.FindStringIndex(s); loc != nil {
		s = s[:loc[1]]
	}
	s = keepFromSecond(s, weekdayTokens)
	s = keepFromSecond(s, monthTokens)

	s = leadingWeekday.ReplaceAllString(s, "")
	s = spaceComma.ReplaceAllString(s, ",")
	s = commaNoSpace.ReplaceAllString(s, ", $1")
	s = letterDigit.ReplaceAllString(s, "$1 $2")
	s = CollapseWhitespace(s)
	s = strings.TrimSpace(onSaleSuffix.ReplaceAllString(s, ""))

	return s, s != orig
}

// keepFromSecond keeps the text from the second occurrence of the first token
// that appears at least twice.
func keepFromSecond(s string, tokens []string) string {
	for _, tok := range tokens {
		if strings.Count(s, tok) < 2 {
			continue
		}
		first := strings.Index(s, tok)
		second := strings.Index(s[first+len(tok):], tok)
		if second >= 0 {
			return s[first+len(tok)+second:]
		}
		break
	}
	return s
}
