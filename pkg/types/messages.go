package types

import (
	"encoding/json"
	"time"
)

// Message type discriminators.
const (
	TypeStatus = "status"
	TypeData   = "data"
)

// TimestampFormat is the layout used for DataMessage.Timestamp.
const TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

// StatusMessage reports the connection state. It is broadcast on every state
// transition and sent once to every newly joined client.
type StatusMessage struct {
	Type      string `json:"type"`
	Connected bool   `json:"connected"`
	Message   string `json:"message,omitempty"`
}

// NewStatus builds a StatusMessage.
func NewStatus(connected bool, message string) StatusMessage {
	return StatusMessage{Type: TypeStatus, Connected: connected, Message: message}
}

// DataMessage carries one line of telemetry. Parsed is set only when the raw
// line was valid JSON.
type DataMessage struct {
	Type string `json:"type"`

	// Raw is the cleaned line, not the bytes as received: the line ending,
	// ANSI escapes and non-printable runes are removed, tabs become spaces
	// and surrounding whitespace is trimmed.
	Raw string `json:"raw"`

	// Timestamp is when the line was read, in TimestampFormat (UTC).
	Timestamp string          `json:"timestamp"`
	Parsed    json.RawMessage `json:"parsed,omitempty"`
}

// NewData builds a DataMessage stamped with at (converted to UTC).
func NewData(raw string, parsed json.RawMessage, at time.Time) DataMessage {
	return DataMessage{
		Type:      TypeData,
		Raw:       raw,
		Timestamp: at.UTC().Format(TimestampFormat),
		Parsed:    parsed,
	}
}

// PortInfo describes one connectable source.
type PortInfo struct {
	Path         string `json:"path"`
	Manufacturer string `json:"manufacturer"`
}
