// Package ws implements the WebSocket hub that pushes telemetry to browsers.
//
// New(join, metrics, logger) creates a Hub.
// Hub.Broadcast(msg) serializes msg once and queues it for every connected
// client; a client whose queue is full is dropped.
// Hub.Run(ctx) blocks until ctx is cancelled, then closes all connections and
// turns away later joiners.
// Hub.ServeHTTP upgrades an HTTP connection, sends the current connection
// status immediately, then streams every broadcast.
//
// Messages sent to clients are the JSON encodings of types.StatusMessage and
// types.DataMessage. The channel is push-only: anything a client sends apart
// from control frames is read and discarded.
//
// The upgrader accepts all origins. The endpoint is mounted at /ws.
package ws
