// Package types defines the JSON messages pushed to browser clients over the
// WebSocket channel and the port descriptors returned by the REST API.
//
// Two push message kinds exist, distinguished by the "type" field:
//
//	{"type":"status","connected":true,"message":"Connected to /dev/ttyUSB0 at 9600 baud"}
//	{"type":"data","raw":"{\"t\":23.1}","timestamp":"2024-05-01T12:00:00.000Z","parsed":{"t":23.1}}
package types
