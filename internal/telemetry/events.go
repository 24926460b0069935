// Package telemetry defines the event types that flow over the
// WebSocket connection between panoramad and its clients. Producers
// broadcast events as map[string]any keyed by these type constants;
// the structs document the full payload schema per type.
package telemetry

import "time"

// EventType identifies the kind of WebSocket event.
type EventType string

const (
	EventHeartbeat     EventType = "heartbeat"
	EventSessionState  EventType = "session_state"
	EventFrameCaptured EventType = "frame_captured"
	EventFrameMiss     EventType = "frame_miss"
	EventArtifact      EventType = "artifact_stored"
	EventLog           EventType = "log"
)

// Event is the base envelope shared by every event type.
type Event struct {
	Type EventType `json:"type"`
	TS   string    `json:"ts"`
}

// NowTS returns the current UTC time as an RFC 3339 nano string,
// matching the timestamp format used across all events.
func NowTS() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// Heartbeat is sent periodically so clients can detect connectivity
// and monitor daemon uptime.
type Heartbeat struct {
	Event
	Sessions      int   `json:"sessions"`
	UptimeSeconds int64 `json:"uptime_seconds"`
}

// SessionState is emitted whenever a session changes lifecycle state
// (e.g. ARMED -> SAMPLING).
type SessionState struct {
	Event
	Session  string `json:"session"`
	State    string `json:"state"`
	Mode     string `json:"mode"`
	Captured int    `json:"captured"`
	Total    int    `json:"total"`
	Reason   string `json:"reason,omitempty"`
}

// FrameCaptured reports one frame landing in its slot.
type FrameCaptured struct {
	Event
	Session  string  `json:"session"`
	Ordinal  int     `json:"ordinal"`
	Heading  float64 `json:"heading"`
	Captured int     `json:"captured"`
	Total    int     `json:"total"`
}

// ArtifactStored announces a persisted panorama.
type ArtifactStored struct {
	Event
	Session  string `json:"session"`
	Artifact string `json:"artifact"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// LogLine carries a human-readable log message at a severity level.
type LogLine struct {
	Event
	Level   string `json:"level"`
	Message string `json:"message"`
}
