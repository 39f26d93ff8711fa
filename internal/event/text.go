package event

import (
	"html"
	"net/url"
	"regexp"
	"strings"
)

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// StripHTML removes markup and decodes entities.
func StripHTML(s string) string {
	if s == "" {
		return ""
	}
	return html.UnescapeString(tagPattern.ReplaceAllString(s, " "))
}

// CollapseWhitespace trims s and folds every whitespace run into one space.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[:n]))
}

// TitleKey is the deduplication key for a title.
func TitleKey(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// ResolveURL resolves href against base. Fragment-only, javascript: and
// mailto: links resolve to "".
func ResolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "mailto:") || strings.HasPrefix(lower, "tel:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if ref.IsAbs() {
		return ref.String()
	}
	b, err := url.Parse(base)
	if err != nil || !b.IsAbs() {
		return href
	}
	return b.ResolveReference(ref).String()
}

// EnsureScheme turns a bare host such as "www.example.com/x" into an https URL.
func EnsureScheme(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return raw
	}
	if strings.HasPrefix(raw, "//") {
		return "https:" + raw
	}
	if strings.Contains(raw, ".") && !strings.HasPrefix(raw, "/") {
		return "https://" + raw
	}
	return raw
}

// HostOf returns the lower-cased host of rawURL, or "".
func HostOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}
