package domain

import "time"

// ExecutionStatus is the lifecycle phase of a conversation instance.
type ExecutionStatus string

const (
	StatusRunning         ExecutionStatus = "running"
	StatusWaitingForInput ExecutionStatus = "waiting_for_input"
	StatusCompleted       ExecutionStatus = "completed"
	StatusFailed          ExecutionStatus = "failed"
	StatusCancelled       ExecutionStatus = "cancelled"
)

// Terminal reports whether the status admits no further processing.
func (s ExecutionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// ExecutionState is the snapshot of one live conversation instance. It is
// created when a trigger matches, mutated only by the execution engine, and
// archived once the status turns terminal. All fields serialize to JSON so
// any StateStore can persist it.
type ExecutionState struct {
	InstanceID    string          `json:"instance_id"`
	FlowID        string          `json:"flow_id"`
	Status        ExecutionStatus `json:"status"`
	CurrentNodeID string          `json:"current_node_id"`

	// Visited records every processed node id in order. Duplicates are
	// allowed; cycles are the author's responsibility up to the engine's
	// step ceiling.
	Visited []string `json:"visited"`

	// Variables holds collected answers and external-call results, keyed
	// by the names flows reference in condition rules.
	Variables map[string]string `json:"variables"`

	// PendingVariable names the variable the next inbound input binds to
	// while the instance is waiting on a question_input node.
	PendingVariable string `json:"pending_variable,omitempty"`

	// SeenEvents tracks consumed inbound event ids so duplicate webhook
	// deliveries resume at most once.
	SeenEvents map[string]bool `json:"seen_events,omitempty"`

	Steps     int       `json:"steps"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewExecutionState creates a running instance positioned at startNodeID.
func NewExecutionState(instanceID, flowID, startNodeID string) *ExecutionState {
	now := time.Now().UTC()
	return &ExecutionState{
		InstanceID:    instanceID,
		FlowID:        flowID,
		Status:        StatusRunning,
		CurrentNodeID: startNodeID,
		Variables:     make(map[string]string),
		SeenEvents:    make(map[string]bool),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// MarkEvent records an inbound event id. It returns false if the id was
// already consumed, in which case the caller must treat the event as a
// duplicate and do nothing.
func (s *ExecutionState) MarkEvent(eventID string) bool {
	if eventID == "" {
		return true // untracked events are always processed
	}
	if s.SeenEvents == nil {
		s.SeenEvents = make(map[string]bool)
	}
	if s.SeenEvents[eventID] {
		return false
	}
	s.SeenEvents[eventID] = true
	return true
}

// Reset returns every state field to its initial value. The flow itself is
// untouched.
func (s *ExecutionState) Reset() {
	s.Status = StatusRunning
	s.CurrentNodeID = ""
	s.Visited = nil
	s.Variables = make(map[string]string)
	s.PendingVariable = ""
	s.SeenEvents = make(map[string]bool)
	s.Steps = 0
	s.UpdatedAt = time.Now().UTC()
}
