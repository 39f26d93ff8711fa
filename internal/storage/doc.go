// Package storage provides JSON-based persistence for extraction results.
//
// Each extraction is saved as <source>_<timestamp>.json in the data
// directory, optionally with the page HTML beside it. The directory also
// holds saved_urls.json, the list of pages an operator extracts regularly.
// The default storage location is ~/.local/share/eventengine/.
package storage
