package memory

import (
	"context"
	"sync"

	"github.com/botwalk/botwalk/pkg/domain"
)

// Recorder is a Messenger that captures every outbound message. Tests and
// the CLI chat loop read the capture instead of talking to a provider.
type Recorder struct {
	mu       sync.Mutex
	messages []domain.OutboundMessage
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Send records the message.
func (r *Recorder) Send(ctx context.Context, msg domain.OutboundMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return nil
}

// Messages returns a copy of everything sent so far.
func (r *Recorder) Messages() []domain.OutboundMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.OutboundMessage, len(r.messages))
	copy(out, r.messages)
	return out
}

// Texts returns the Text field of every non-system message, in order.
func (r *Recorder) Texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var texts []string
	for _, m := range r.messages {
		if m.System {
			continue
		}
		texts = append(texts, m.Text)
	}
	return texts
}

// Drain returns all recorded messages and clears the capture.
func (r *Recorder) Drain() []domain.OutboundMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.messages
	r.messages = nil
	return out
}
