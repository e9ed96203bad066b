package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/botwalk/botwalk/pkg/domain"
)

// SendStepFunc delivers one scheduled step when its timer fires.
type SendStepFunc func(ctx context.Context, step domain.ScheduledStep) error

// Scheduler is a timer-based, in-process Scheduler. Steps are deduped by
// their (instance, step) key so re-scheduling the same step is a no-op.
// Pending steps do not survive a process restart; hosts that need durable
// delivery use an external scheduler behind the same port.
type Scheduler struct {
	send SendStepFunc

	mu     sync.Mutex
	timers map[string]*time.Timer
	fired  map[string]bool
}

// NewScheduler creates a scheduler that delivers steps through send.
func NewScheduler(send SendStepFunc) *Scheduler {
	return &Scheduler{
		send:   send,
		timers: make(map[string]*time.Timer),
		fired:  make(map[string]bool),
	}
}

// Schedule arms a timer for the step. Duplicate keys are ignored, which
// keeps at-least-once callers idempotent on the sending side.
func (s *Scheduler) Schedule(ctx context.Context, fireAt time.Time, step domain.ScheduledStep) error {
	key := step.DedupeKey()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fired[key] {
		return nil
	}
	if _, pending := s.timers[key]; pending {
		return nil
	}

	delay := time.Until(fireAt)
	if delay < 0 {
		delay = 0
	}
	s.timers[key] = time.AfterFunc(delay, func() {
		s.fire(key, step)
	})
	return nil
}

func (s *Scheduler) fire(key string, step domain.ScheduledStep) {
	s.mu.Lock()
	delete(s.timers, key)
	if s.fired[key] {
		s.mu.Unlock()
		return
	}
	s.fired[key] = true
	s.mu.Unlock()

	// Timer callbacks have no caller context; delivery gets its own.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = s.send(ctx, step)
}

// Cancel drops every pending step for an instance.
func (s *Scheduler) Cancel(ctx context.Context, instanceID string) error {
	prefix := instanceID + ":"

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, timer := range s.timers {
		if strings.HasPrefix(key, prefix) {
			timer.Stop()
			delete(s.timers, key)
		}
	}
	return nil
}

// Pending returns the number of armed timers, for tests and introspection.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}
