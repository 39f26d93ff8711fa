// Package cli implements the command-line interface for eventengine.
//
// The cli package provides the Cobra-based CLI: extracting events from one
// page or a batch of pages, checking robots.txt, serving extraction over
// HTTP, publishing saved results to the events backend, and managing saved
// URLs and result files. Extract output can be filtered and sorted, and is
// written as text, JSON, or iCalendar.
package cli
