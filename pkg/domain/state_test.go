package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkEvent(t *testing.T) {
	s := NewExecutionState("inst-1", "flow-1", "start")

	assert.True(t, s.MarkEvent("evt-1"))
	assert.False(t, s.MarkEvent("evt-1"))
	assert.True(t, s.MarkEvent("evt-2"))

	// Untagged deliveries are never deduped.
	assert.True(t, s.MarkEvent(""))
	assert.True(t, s.MarkEvent(""))
}

func TestReset(t *testing.T) {
	s := NewExecutionState("inst-1", "flow-1", "start")
	s.Status = StatusWaitingForInput
	s.CurrentNodeID = "ask"
	s.Visited = []string{"start", "ask"}
	s.Variables["name"] = "Ada"
	s.PendingVariable = "name"
	s.MarkEvent("evt-1")
	s.Steps = 2

	s.Reset()

	assert.Equal(t, StatusRunning, s.Status)
	assert.Empty(t, s.CurrentNodeID)
	assert.Empty(t, s.Visited)
	assert.Empty(t, s.Variables)
	assert.Empty(t, s.PendingVariable)
	assert.Zero(t, s.Steps)
	assert.True(t, s.MarkEvent("evt-1"), "reset forgets consumed events")

	// Identity survives a reset.
	assert.Equal(t, "inst-1", s.InstanceID)
	assert.Equal(t, "flow-1", s.FlowID)
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusRunning.Terminal())
	assert.False(t, StatusWaitingForInput.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.True(t, StatusCancelled.Terminal())
}
