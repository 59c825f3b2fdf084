// Package audit records who changed which assignment, and when. Events are
// written off the request path through a serial queue so they land in
// arrival order without adding latency to mutations.
package audit

import (
	"context"
	"time"
)

// EventType categorizes an audit event
type EventType string

const (
	// Assignment events
	EventTypeAssign   EventType = "assignment.assign"
	EventTypeUnassign EventType = "assignment.unassign"
	EventTypeDenied   EventType = "assignment.denied"

	// Section data events
	EventTypeSectionUpdate EventType = "section.update"

	// Authentication events
	EventTypeTokenRejected EventType = "auth.token_rejected"
)

// Event status values
const (
	StatusSuccess = "success"
	StatusDenied  = "denied"
	StatusFailure = "failure"
)

// Event is a single audit record
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"event_type"`
	Status    string    `json:"status"`

	// Actor is the authenticated caller's email
	Actor string `json:"actor,omitempty"`
	// Target is the email being assigned or cleared
	Target string `json:"target,omitempty"`

	Comune  string `json:"comune,omitempty"`
	Sezione string `json:"sezione,omitempty"`

	RequestID string `json:"request_id,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Logger writes audit events to a sink
type Logger interface {
	Log(ctx context.Context, event *Event) error
	Close() error
}
