// Package events fans session events out to realtime transports.
//
// Session hooks publish into a single Broker, which forwards every event
// to its subscribers (WebSocket, SSE). Subscribers deliver an event only
// to clients watching the event's session.
package events

import "time"

// EventType represents the type of session event.
type EventType string

// Event types.
const (
	// Lifecycle events.
	StateChanged   EventType = "session.state"
	SessionExpired EventType = "session.expired"

	// Field events.
	FieldSaved  EventType = "field.saved"
	FieldFailed EventType = "field.failed"

	// Workflow events.
	WorkflowTriggered EventType = "workflow.triggered"

	// Client events (from transport layers).
	ClientConnected EventType = "client.connected"
)

// Event is one session event.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}
