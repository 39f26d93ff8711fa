package scraper

import (
	"strconv"
	"strings"
)

// jsonStr returns the first key holding a non-empty string or number.
func jsonStr(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func jsonMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// jsonMaps returns the objects in v, which may be a single object or an
// array of them.
func jsonMaps(v any) []map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return []map[string]any{t}
	case []any:
		out := make([]map[string]any, 0, len(t))
		for _, item := range t {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

// jsonText reads a value that is either a string or an object carrying the
// string under one of keys. Arrays yield their first usable element.
func jsonText(v any, keys ...string) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]any:
		return jsonStr(t, keys...)
	case []any:
		for _, item := range t {
			if s := jsonText(item, keys...); s != "" {
				return s
			}
		}
	}
	return ""
}

func jsonFloat(m map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		switch v := m[k].(type) {
		case float64:
			return v, true
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}
