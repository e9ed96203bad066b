// Package runtime implements the execution engine: a resumable state
// machine that walks a flow node by node, branches on conditions, suspends
// on input-needing nodes, calls external collaborators and schedules
// delayed steps.
//
// The engine is stateless over *domain.ExecutionState: callers own the
// state and must serialize event delivery per instance (see pkg/session).
// Within one instance exactly one node is current at a time and processing
// runs to completion or suspension before the next event is accepted.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/botwalk/botwalk/internal/logging"
	"github.com/botwalk/botwalk/pkg/domain"
	"github.com/botwalk/botwalk/pkg/ports"
)

// DefaultMaxSteps bounds a single instance's node visits. Cycles are not
// structurally forbidden, so a runaway loop ends the instance with a
// "flow loop detected" failure instead of spinning forever.
const DefaultMaxSteps = 100

// Engine executes one flow. It is safe for concurrent use across distinct
// instances; per-instance serialization is the caller's responsibility.
type Engine struct {
	flow      *domain.Flow
	messenger ports.Messenger
	caller    ports.Caller
	scheduler ports.Scheduler
	webhooks  ports.WebhookSink
	assistant ports.AssistantHandoff
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	maxSteps  int
	sleep     func(context.Context, time.Duration) error
	now       func() time.Time
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithHooks registers lifecycle observability callbacks.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) { e.hooks = hooks }
}

// WithMaxSteps overrides the loop-guard ceiling. Zero disables the guard.
func WithMaxSteps(n int) Option {
	return func(e *Engine) { e.maxSteps = n }
}

// WithCaller wires the HTTP collaborator used by http_api nodes.
func WithCaller(c ports.Caller) Option {
	return func(e *Engine) { e.caller = c }
}

// WithScheduler wires the scheduler used by sequence nodes.
func WithScheduler(s ports.Scheduler) Option {
	return func(e *Engine) { e.scheduler = s }
}

// WithWebhookSink wires the webhook collaborator for user_input_flow nodes.
func WithWebhookSink(w ports.WebhookSink) Option {
	return func(e *Engine) { e.webhooks = w }
}

// WithAssistantHandoff wires the fallback_ai collaborator.
func WithAssistantHandoff(a ports.AssistantHandoff) Option {
	return func(e *Engine) { e.assistant = a }
}

// WithSleep replaces the delay implementation used by text-node delays.
// Hosts and tests use this to make delays instantaneous.
func WithSleep(fn func(context.Context, time.Duration) error) Option {
	return func(e *Engine) { e.sleep = fn }
}

// NewEngine creates an engine for one flow. The messenger is the only
// mandatory collaborator; nodes whose collaborator is absent degrade to
// their error path instead of panicking.
func NewEngine(flow *domain.Flow, messenger ports.Messenger, opts ...Option) *Engine {
	e := &Engine{
		flow:      flow,
		messenger: messenger,
		logger:    logging.NewNop(),
		maxSteps:  DefaultMaxSteps,
		now:       time.Now,
		sleep: func(ctx context.Context, d time.Duration) error {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-timer.C:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Flow returns the flow this engine executes.
func (e *Engine) Flow() *domain.Flow { return e.flow }

// TriggerOptions carries the optional parts of a first-contact message.
type TriggerOptions struct {
	// EventID identifies the inbound delivery. It is recorded in the new
	// state's seen events, so a redelivery of the same event routed to
	// Resume is a no-op instead of an answer binding.
	EventID string
}

// Trigger matches an inbound message against the flow's start nodes and,
// on a match, creates a fresh instance and runs it until it suspends or
// terminates. No match emits a system notice and returns
// domain.ErrNoTriggerMatch without creating state.
func (e *Engine) Trigger(ctx context.Context, instanceID, message string, opts TriggerOptions) (*domain.ExecutionState, error) {
	start := e.matchTrigger(message)
	if start == nil {
		e.logger.Debug("no trigger matched", "message", message)
		e.notify(ctx, domain.SystemNotice(instanceID, "", "no trigger matched this message"))
		return nil, domain.ErrNoTriggerMatch
	}

	if instanceID == "" {
		instanceID = uuid.NewString()
	}
	state := domain.NewExecutionState(instanceID, e.flow.ID, start.ID)
	state.MarkEvent(opts.EventID)
	if start.Start != nil && start.Start.TagOnMatch != "" {
		state.Variables["tag"] = start.Start.TagOnMatch
	}

	e.logger.Debug("trigger matched", "instance", instanceID, "start_node", start.ID)
	if err := e.run(ctx, state, start.ID); err != nil {
		return state, err
	}
	return state, nil
}

// ResumeOptions carries the optional parts of an inbound reply.
type ResumeOptions struct {
	// OptionID selects a question option; the handle resolves to
	// "option-<id>". Empty falls back to the node's default handle.
	OptionID string

	// EventID identifies the inbound delivery for idempotency. A duplicate
	// resume with an already-consumed event id is a no-op.
	EventID string
}

// Resume feeds user input into a waiting instance. Calling Resume on an
// instance that is not waiting is a caller bug and returns ErrNotWaiting.
func (e *Engine) Resume(ctx context.Context, state *domain.ExecutionState, input string, opts ResumeOptions) error {
	if state.Status != domain.StatusWaitingForInput {
		return fmt.Errorf("%w: instance %s is %s", domain.ErrNotWaiting, state.InstanceID, state.Status)
	}
	if !state.MarkEvent(opts.EventID) {
		e.logger.Debug("duplicate event ignored", "instance", state.InstanceID, "event", opts.EventID)
		return nil
	}

	node := e.flow.Node(state.CurrentNodeID)
	if node == nil {
		return fmt.Errorf("%w: %s", domain.ErrUnknownNode, state.CurrentNodeID)
	}

	if state.PendingVariable != "" {
		return e.resumePendingInput(ctx, state, node, input)
	}
	return e.resumeQuestion(ctx, state, node, input, opts.OptionID)
}

func (e *Engine) resumePendingInput(ctx context.Context, state *domain.ExecutionState, node *domain.Node, input string) error {
	if node.Kind == domain.KindQuestionInput && node.QuestionInput.Required && strings.TrimSpace(input) == "" {
		// Stay waiting: a required answer was not given.
		e.notify(ctx, domain.SystemNotice(state.InstanceID, node.ID, "an answer is required to continue"))
		return nil
	}

	state.Variables[state.PendingVariable] = input
	state.PendingVariable = ""
	state.Status = domain.StatusRunning

	edge, ok := e.flow.EdgeFrom(node.ID, domain.HandleNext)
	if !ok || e.flow.Node(edge.Target) == nil {
		e.terminate(ctx, state, domain.StatusCompleted, "flow ends here")
		return nil
	}
	return e.run(ctx, state, edge.Target)
}

func (e *Engine) resumeQuestion(ctx context.Context, state *domain.ExecutionState, node *domain.Node, input, optionID string) error {
	handle := domain.HandleDefault
	if optionID != "" {
		handle = domain.OptionHandle(optionID)
	}

	edge, ok := e.flow.EdgeFrom(node.ID, handle)
	if !ok || e.flow.Node(edge.Target) == nil {
		// The resolved option is not connected. Keep waiting instead of
		// silently dropping the input.
		e.logger.Debug("option not connected", "instance", state.InstanceID, "node", node.ID, "handle", handle)
		e.notify(ctx, domain.SystemNotice(state.InstanceID, node.ID, "this option is not connected to a next step"))
		return nil
	}

	state.Status = domain.StatusRunning
	return e.run(ctx, state, edge.Target)
}

// matchTrigger scans start nodes in authoring order; the first match wins.
func (e *Engine) matchTrigger(message string) *domain.Node {
	for _, n := range e.flow.StartNodes() {
		cfg := n.Start
		if cfg == nil {
			continue
		}
		if cfg.TriggerType == domain.TriggerFirstMessage {
			return n
		}
		for _, kw := range cfg.Keywords {
			if cfg.CaseSensitive {
				if message == kw {
					return n
				}
				continue
			}
			if strings.Contains(strings.ToLower(message), strings.ToLower(kw)) {
				return n
			}
		}
	}
	return nil
}

// run drives the step loop from nodeID until the instance suspends or
// terminates. External failures become branch or terminal outcomes; only a
// reference to a nonexistent node surfaces as an error.
func (e *Engine) run(ctx context.Context, state *domain.ExecutionState, nodeID string) error {
	for nodeID != "" {
		node := e.flow.Node(nodeID)
		if node == nil {
			return fmt.Errorf("%w: %s", domain.ErrUnknownNode, nodeID)
		}

		state.Steps++
		if e.maxSteps > 0 && state.Steps > e.maxSteps {
			e.notify(ctx, domain.SystemNotice(state.InstanceID, nodeID, "flow loop detected"))
			e.terminate(ctx, state, domain.StatusFailed, "flow loop detected")
			return nil
		}

		state.CurrentNodeID = nodeID
		state.Visited = append(state.Visited, nodeID)
		state.UpdatedAt = e.now().UTC()
		e.emitNodeEnter(ctx, state, node)

		res, err := e.step(ctx, state, node)
		e.emitNodeLeave(ctx, state, node)
		if err != nil {
			return err
		}

		switch {
		case res.wait:
			state.Status = domain.StatusWaitingForInput
			state.UpdatedAt = e.now().UTC()
			return nil
		case res.terminal != "":
			e.terminate(ctx, state, res.terminal, res.reason)
			return nil
		}
		nodeID = res.next
	}
	return nil
}

// stepResult tells the run loop what to do after a node handler returns.
// Exactly one of next/wait/terminal is meaningful.
type stepResult struct {
	next     string
	wait     bool
	terminal domain.ExecutionStatus
	reason   string
}

func continueTo(nodeID string) stepResult { return stepResult{next: nodeID} }

func waitForInput() stepResult { return stepResult{wait: true} }

func endWith(status domain.ExecutionStatus, reason string) stepResult {
	return stepResult{terminal: status, reason: reason}
}

// followDefault resolves a node's default edge, ending the instance with a
// "flow ends here" notice when the node is a dead end.
func (e *Engine) followDefault(ctx context.Context, state *domain.ExecutionState, node *domain.Node) stepResult {
	return e.follow(ctx, state, node, domain.HandleDefault)
}

func (e *Engine) follow(ctx context.Context, state *domain.ExecutionState, node *domain.Node, handle string) stepResult {
	edge, ok := e.flow.EdgeFrom(node.ID, handle)
	if !ok || e.flow.Node(edge.Target) == nil {
		e.notify(ctx, domain.SystemNotice(state.InstanceID, node.ID, "flow ends here"))
		return endWith(domain.StatusCompleted, "no outgoing path")
	}
	return continueTo(edge.Target)
}

func (e *Engine) terminate(ctx context.Context, state *domain.ExecutionState, status domain.ExecutionStatus, reason string) {
	state.Status = status
	state.PendingVariable = ""
	state.UpdatedAt = e.now().UTC()
	e.logger.Debug("instance terminated", "instance", state.InstanceID, "status", status, "reason", reason)

	e.deliverWebhooks(ctx, state)
	e.emitTerminal(ctx, state, reason)
}

// deliverWebhooks fires the webhook of every visited user_input_flow node
// once the instance reaches a terminal status.
func (e *Engine) deliverWebhooks(ctx context.Context, state *domain.ExecutionState) {
	if e.webhooks == nil {
		return
	}
	delivered := make(map[string]bool)
	for _, id := range state.Visited {
		if delivered[id] {
			continue
		}
		node := e.flow.Node(id)
		if node == nil || node.Kind != domain.KindUserInputFlow {
			continue
		}
		cfg := node.UserInputFlow.Webhook
		if cfg == nil || !cfg.Enabled || cfg.URL == "" {
			continue
		}
		delivered[id] = true

		var metadata map[string]string
		if cfg.IncludeMetadata {
			metadata = map[string]string{
				"instance_id": state.InstanceID,
				"flow_id":     state.FlowID,
				"status":      string(state.Status),
			}
		}
		if err := e.webhooks.Deliver(ctx, *cfg, state.Variables, metadata); err != nil {
			e.logger.Warn("webhook delivery failed", "instance", state.InstanceID, "node", id, "err", err)
		}
	}
}

// notify sends a system-level message, logging delivery failures instead of
// propagating them: notices never alter the flow outcome.
func (e *Engine) notify(ctx context.Context, msg domain.OutboundMessage) {
	if err := e.messenger.Send(ctx, msg); err != nil {
		e.logger.Warn("system notice delivery failed", "instance", msg.InstanceID, "err", err)
	}
}

func (e *Engine) emitNodeEnter(ctx context.Context, state *domain.ExecutionState, node *domain.Node) {
	if e.hooks.OnNodeEnter == nil {
		return
	}
	e.hooks.OnNodeEnter(ctx, &domain.NodeEvent{
		EventBase: domain.EventBase{Timestamp: e.now().UTC(), Type: domain.EventNodeEnter, InstanceID: state.InstanceID},
		NodeID:    node.ID,
		NodeKind:  node.Kind,
	})
}

func (e *Engine) emitNodeLeave(ctx context.Context, state *domain.ExecutionState, node *domain.Node) {
	if e.hooks.OnNodeLeave == nil {
		return
	}
	e.hooks.OnNodeLeave(ctx, &domain.NodeEvent{
		EventBase: domain.EventBase{Timestamp: e.now().UTC(), Type: domain.EventNodeLeave, InstanceID: state.InstanceID},
		NodeID:    node.ID,
		NodeKind:  node.Kind,
	})
}

func (e *Engine) emitHTTPCall(ctx context.Context, state *domain.ExecutionState, node *domain.Node, duration time.Duration, isErr bool) {
	if e.hooks.OnHTTPCall == nil {
		return
	}
	e.hooks.OnHTTPCall(ctx, &domain.HTTPCallEvent{
		EventBase: domain.EventBase{Timestamp: e.now().UTC(), Type: domain.EventHTTPCall, InstanceID: state.InstanceID},
		NodeID:    node.ID,
		Method:    node.HTTP.Method,
		URL:       node.HTTP.URL,
		Duration:  duration,
		IsError:   isErr,
	})
}

func (e *Engine) emitTerminal(ctx context.Context, state *domain.ExecutionState, reason string) {
	if e.hooks.OnTerminal == nil {
		return
	}
	e.hooks.OnTerminal(ctx, &domain.TerminalEvent{
		EventBase: domain.EventBase{Timestamp: e.now().UTC(), Type: domain.EventTerminal, InstanceID: state.InstanceID},
		Status:    state.Status,
		Reason:    reason,
	})
}
