package platform

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Raw is one undecoded upstream record. Platform mappings read it through the
// pick helpers below, each taking the first non-empty candidate key.
type Raw = map[string]any

// pickStr returns the first non-empty string value among keys.
func pickStr(m Raw, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok {
				s2 := strings.TrimSpace(s)
				if s2 != "" {
					return s2
				}
			}
		}
	}
	return ""
}

// pickMap returns the first object value among keys.
func pickMap(m Raw, keys ...string) Raw {
	for _, k := range keys {
		if v, ok := m[k].(map[string]any); ok {
			return v
		}
	}
	return nil
}

// pickList returns the first non-empty array value among keys.
func pickList(m Raw, keys ...string) []any {
	for _, k := range keys {
		if v, ok := m[k].([]any); ok && len(v) > 0 {
			return v
		}
	}
	return nil
}

// pickBool reports whether key holds true or a truthy string.
func pickBool(m Raw, key string) bool {
	switch v := m[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(v))
		return b
	}
	return false
}

// pickFloat returns a numeric value stored as a number or numeric string.
func pickFloat(m Raw, keys ...string) (float64, bool) {
	for _, k := range keys {
		switch v := m[k].(type) {
		case float64:
			return v, true
		case json.Number:
			if f, err := v.Float64(); err == nil {
				return f, true
			}
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

// pickID renders an identifier that may arrive as a number or a string.
func pickID(m Raw, key string) string {
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	}
	return ""
}

// nestedStr follows an object path and returns the string at its end.
func nestedStr(m Raw, path ...string) string {
	cur := m
	for i, k := range path {
		if i == len(path)-1 {
			return pickStr(cur, k)
		}
		cur = pickMap(cur, k)
		if cur == nil {
			return ""
		}
	}
	return ""
}

// records converts a decoded JSON array into objects, skipping anything else.
func records(list []any) []Raw {
	out := make([]Raw, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// strOrNested accepts either a plain string or an object holding the string
// under key, e.g. an image given as a URL or as {"url": ...}.
func strOrNested(m Raw, field, key string) string {
	if s := pickStr(m, field); s != "" {
		return s
	}
	if nested := pickMap(m, field); nested != nil {
		return pickStr(nested, key)
	}
	return ""
}
