// Package publish delivers extracted events downstream.
//
// The Backend publisher posts each event to the ingestion API of the events
// database through a fixed worker pool and registers the venues it sees.
// DryRun prints the payloads that would be sent. Records are loosely typed so
// result files written by older tools can be published as well as canonical
// events.
package publish
