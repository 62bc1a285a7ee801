package core

import (
	"time"

	"github.com/google/uuid"
)

// EventKind classifies an Event.
type EventKind string

const (
	// EventPlan announces routing decisions or an agent's plan.
	EventPlan EventKind = "plan"
	// EventCallIssued marks the start of an external call (search, retrieval).
	EventCallIssued EventKind = "call-issued"
	// EventCallCompleted marks the end of an external call.
	EventCallCompleted EventKind = "call-completed"
	// EventResult carries an agent's final contribution.
	EventResult EventKind = "result"
	// EventError reports an isolated failure.
	EventError EventKind = "error"
)

// Status is the presentation state a client can render next to an event
// (e.g. an avatar animation).
type Status string

const (
	StatusIdle         Status = "idle"
	StatusThinking     Status = "thinking"
	StatusSearching    Status = "searching"
	StatusAnalyzing    Status = "analyzing"
	StatusAlert        Status = "alert"
	StatusRecommending Status = "recommending"
)

// Event is an immutable progress record emitted by an agent or by the engine.
// Events are buffered inside the emitting agent and forwarded by the engine in
// a normalized order; they never reach the sink directly from an agent.
type Event struct {
	ID        string         `json:"id"`
	RequestID string         `json:"request_id,omitempty"`
	Kind      EventKind      `json:"kind"`
	Agent     string         `json:"agent"`
	Status    Status         `json:"status"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewEvent creates an event stamped with a fresh ID and the current UTC time.
func NewEvent(kind EventKind, agent string, status Status, payload map[string]any) Event {
	return Event{
		ID:        NewID(),
		Kind:      kind,
		Agent:     agent,
		Status:    status,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// NewErrorEvent reports err on behalf of agent.
func NewErrorEvent(agent string, err error) Event {
	return NewEvent(EventError, agent, StatusAlert, map[string]any{"message": err.Error()})
}

// NewID generates a new unique identifier for events and requests.
func NewID() string { return uuid.NewString() }

// Message returns the "message" payload entry, if present.
func (e Event) Message() string {
	if s, ok := e.Payload["message"].(string); ok {
		return s
	}
	return ""
}
