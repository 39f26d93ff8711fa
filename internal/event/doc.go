// Package event provides the canonical event record shared by every extractor.
//
// An Event is a transient value created fresh on each extraction run. Free-text
// dates are resolved to timestamps where possible and otherwise kept verbatim in
// DateText for later resolution. The package also carries the normalization
// helpers used by extractors (HTML stripping, URL resolution, date and time
// pattern scanning) and the best-effort repairs for known upstream text
// corruption.
package event
