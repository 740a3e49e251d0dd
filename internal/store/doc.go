// Package store keeps the most recent data message per source so a freshly
// opened dashboard can show the current value before the next line arrives.
// Only one message per source is retained; entries older than the TTL are
// hidden from List and evicted by Run.
package store
