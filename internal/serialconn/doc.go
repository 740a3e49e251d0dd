// Package serialconn owns the bridge's single data source: either one open
// serial device or the simulated sensor.
//
// Manager.Connect tears down whatever is currently connected before opening
// the new source, so at most one handle exists at any time. Each live source
// is drained by one goroutine that splits the byte stream into lines, makes
// a best-effort JSON parse of each line and hands the resulting message to the
// Broadcaster. State transitions are reported as status messages through the
// same Broadcaster.
//
// Every goroutine carries the generation number of the connection it was
// started for; once the manager moves to a newer generation the goroutine's
// output is discarded and it exits on its own.
package serialconn
