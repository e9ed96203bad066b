package ports

import (
	"context"
	"time"

	"github.com/botwalk/botwalk/pkg/domain"
)

// Messenger delivers engine output to the conversation. Retries and
// provider-specific formatting are the implementation's responsibility; the
// engine only needs an accepted/rejected result.
type Messenger interface {
	Send(ctx context.Context, msg domain.OutboundMessage) error
}

// CallRequest describes one outbound http_api request.
type CallRequest struct {
	Method   string
	URL      string
	Headers  map[string]string
	Body     string
	BodyKind domain.BodyKind
	Auth     *domain.AuthSpec
	Timeout  time.Duration
}

// CallResult is the collaborator's answer to a CallRequest.
type CallResult struct {
	StatusCode int
	Body       string
}

// Caller performs outbound HTTP requests on behalf of http_api nodes. A
// failed or timed-out call is reported through the error return; the engine
// converts it into the node's error branch, never a crash.
type Caller interface {
	Do(ctx context.Context, req CallRequest) (CallResult, error)
}

// Scheduler accepts "run this step at T" requests from sequence nodes.
// Scheduled steps must outlive the execution pass that created them and
// deliver at-least-once; implementations dedupe sends by the step's
// DedupeKey. Cancel drops any pending steps for an instance.
type Scheduler interface {
	Schedule(ctx context.Context, fireAt time.Time, step domain.ScheduledStep) error
	Cancel(ctx context.Context, instanceID string) error
}

// WebhookSink receives the accumulated answers of a user_input_flow once
// that sub-flow completes.
type WebhookSink interface {
	Deliver(ctx context.Context, cfg domain.WebhookConfig, answers map[string]string, metadata map[string]string) error
}

// AssistantHandoff is invoked when an action node with kind fallback_ai
// fires. The instance terminates regardless of the handoff outcome.
type AssistantHandoff interface {
	Handoff(ctx context.Context, instanceID, assistantID string) error
}

// EventDeduper tracks consumed inbound event ids outside the state store.
// The state's own seen-event map only covers events that reached it; a
// shared deduper rejects duplicates across replicas before any state is
// loaded. MarkEvent returns false when the pair was already consumed.
// Empty event ids are never deduped.
type EventDeduper interface {
	MarkEvent(ctx context.Context, instanceID, eventID string) (bool, error)
}
