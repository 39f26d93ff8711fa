// Package scraper extracts events from listing HTML without calling any
// platform API.
//
// A Page is parsed once per run and shared by every Extractor. Extractors fall
// into three groups, each returned by its own constructor in priority order:
// the JSON-LD reader (Structured), known-widget heuristics for ticketing
// platforms (Heuristics), and generic fallbacks for unknown layouts
// (Fallbacks). Link-based ticketing platforms share one implementation driven
// by a LinkStrategy table.
package scraper
