package api

import "github.com/obsidianstack/serialbridge/pkg/types"

// PortsResponse is the payload for GET /api/ports.
type PortsResponse struct {
	Ports []types.PortInfo `json:"ports"`
}

// ConnectRequest is the body of POST /api/connect. BaudRate may be omitted to
// use the configured default.
type ConnectRequest struct {
	Path     string `json:"path"`
	BaudRate int    `json:"baudRate"`
}

// ConnectResponse is the payload for a successful POST /api/connect.
type ConnectResponse struct {
	Connected bool   `json:"connected"`
	Port      string `json:"port"`
	BaudRate  int    `json:"baudRate"`
}

// DisconnectResponse is the payload for POST /api/disconnect.
type DisconnectResponse struct {
	Connected bool `json:"connected"`
}

// StatusResponse is the payload for GET /api/status.
type StatusResponse struct {
	Connected bool   `json:"connected"`
	Mode      string `json:"mode"`
	Port      string `json:"port,omitempty"`
	BaudRate  int    `json:"baudRate,omitempty"`
	Since     string `json:"since,omitempty"` // RFC3339
	Clients   int    `json:"clients"`
}

// LatestReading is one entry of GET /api/latest.
type LatestReading struct {
	Source    string            `json:"source"`
	UpdatedAt string            `json:"updated_at"` // RFC3339
	Count     uint64            `json:"count"`
	Message   types.DataMessage `json:"message"`
}

// LatestResponse is the payload for GET /api/latest.
type LatestResponse struct {
	Readings []LatestReading `json:"readings"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
