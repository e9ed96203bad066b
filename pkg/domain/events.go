package domain

import (
	"context"
	"time"
)

// EventType categorizes lifecycle events emitted by the engine.
type EventType string

const (
	EventNodeEnter EventType = "node_enter"
	EventNodeLeave EventType = "node_leave"
	EventHTTPCall  EventType = "http_call"
	EventTerminal  EventType = "terminal"
)

// EventBase carries the fields common to all events.
type EventBase struct {
	Timestamp  time.Time `json:"timestamp"`
	Type       EventType `json:"type"`
	InstanceID string    `json:"instance_id"`
}

// NodeEvent marks entry to or exit from a node.
type NodeEvent struct {
	EventBase
	NodeID   string   `json:"node_id"`
	NodeKind NodeKind `json:"node_kind"`
}

// HTTPCallEvent reports an outbound http_api call.
type HTTPCallEvent struct {
	EventBase
	NodeID   string        `json:"node_id"`
	Method   string        `json:"method"`
	URL      string        `json:"url"`
	Duration time.Duration `json:"duration"`
	IsError  bool          `json:"is_error,omitempty"`
}

// TerminalEvent reports that an instance reached a terminal status.
type TerminalEvent struct {
	EventBase
	Status ExecutionStatus `json:"status"`
	Reason string          `json:"reason,omitempty"`
}

// LifecycleHooks defines observability callbacks. All fields are optional;
// the engine invokes non-nil hooks synchronously, so implementations should
// return quickly. Hooks replace any shared event-bus style signaling: the
// engine owns no global state.
type LifecycleHooks struct {
	OnNodeEnter func(context.Context, *NodeEvent)
	OnNodeLeave func(context.Context, *NodeEvent)
	OnHTTPCall  func(context.Context, *HTTPCallEvent)
	OnTerminal  func(context.Context, *TerminalEvent)
}
