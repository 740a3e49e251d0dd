// Package api implements the HTTP control surface of the bridge.
//
// New(ctrl, store, clients) returns an http.Handler that serves:
//
//	GET  /api/ports      : {ports:[{path, manufacturer}]}, simulated entry included when enabled
//	POST /api/connect    : {path, baudRate} → {connected, port, baudRate}; 400 missing path, 500 open failure
//	POST /api/disconnect : {connected:false}; safe to repeat
//	GET  /api/status     : current connection state and WebSocket client count
//	GET  /api/latest     : last reading per source within the cache TTL
//
// All endpoints respond with Content-Type: application/json, return 405 for
// other methods and report failures as {error:"..."}.
package api
