package domain

// OutboundMessage is the engine's request to the messaging collaborator.
// Exactly one content shape is populated: plain Text, Media, an interactive
// Options set, or a CTA Button. System marks engine notices ("no trigger
// matched", "flow ends here") that a host may log instead of delivering.
type OutboundMessage struct {
	InstanceID string `json:"instance_id"`
	NodeID     string `json:"node_id,omitempty"`

	Text    string            `json:"text,omitempty"`
	Media   *MediaPayload     `json:"media,omitempty"`
	Options []Option          `json:"options,omitempty"`
	Button  *CTAButtonPayload `json:"button,omitempty"`

	HeaderText string `json:"header_text,omitempty"`
	Footer     string `json:"footer,omitempty"`

	System bool `json:"system,omitempty"`
}

// SystemNotice builds a system-level OutboundMessage.
func SystemNotice(instanceID, nodeID, text string) OutboundMessage {
	return OutboundMessage{
		InstanceID: instanceID,
		NodeID:     nodeID,
		Text:       text,
		System:     true,
	}
}

// ScheduledStep is the payload handed to the scheduler collaborator for one
// sequence step. DedupeKey is stable per (instance, step) so at-least-once
// delivery stays idempotent on the sending side.
type ScheduledStep struct {
	InstanceID  string              `json:"instance_id"`
	NodeID      string              `json:"node_id"`
	StepID      string              `json:"step_id"`
	MessageKind SequenceMessageKind `json:"message_kind"`
	Content     string              `json:"content"`
}

// DedupeKey returns the idempotent-send key for the step.
func (s ScheduledStep) DedupeKey() string {
	return s.InstanceID + ":" + s.StepID
}
