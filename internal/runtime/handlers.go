package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/botwalk/botwalk/pkg/domain"
	"github.com/botwalk/botwalk/pkg/ports"
)

// step dispatches on the node kind. The switch is exhaustive over the
// closed NodeKind set; unknown kinds indicate a flow that bypassed load-time
// checks and end the instance as failed.
func (e *Engine) step(ctx context.Context, state *domain.ExecutionState, node *domain.Node) (stepResult, error) {
	switch node.Kind {
	case domain.KindStart:
		return e.followDefault(ctx, state, node), nil
	case domain.KindQuestion:
		return e.stepQuestion(ctx, state, node)
	case domain.KindText:
		return e.stepText(ctx, state, node)
	case domain.KindMedia:
		return e.stepMedia(ctx, state, node)
	case domain.KindCondition:
		return e.stepCondition(ctx, state, node), nil
	case domain.KindAction:
		return e.stepAction(ctx, state, node), nil
	case domain.KindQuestionInput:
		return e.stepQuestionInput(ctx, state, node)
	case domain.KindUserInputFlow:
		return e.stepUserInputFlow(ctx, state, node), nil
	case domain.KindSequence:
		return e.stepSequence(ctx, state, node), nil
	case domain.KindHTTP:
		return e.stepHTTP(ctx, state, node), nil
	case domain.KindCTAButton:
		return e.stepCTAButton(ctx, state, node)
	default:
		e.notify(ctx, domain.SystemNotice(state.InstanceID, node.ID, fmt.Sprintf("unsupported step kind %q", node.Kind)))
		return endWith(domain.StatusFailed, "unsupported node kind"), nil
	}
}

func (e *Engine) stepQuestion(ctx context.Context, state *domain.ExecutionState, node *domain.Node) (stepResult, error) {
	q := node.Question
	msg := domain.OutboundMessage{
		InstanceID: state.InstanceID,
		NodeID:     node.ID,
		Text:       q.Body,
		HeaderText: q.HeaderText,
		Footer:     q.Footer,
		Options:    q.Options,
	}
	if err := e.messenger.Send(ctx, msg); err != nil {
		return stepResult{}, fmt.Errorf("send question %s: %w", node.ID, err)
	}

	if len(q.Options) > 0 {
		return waitForInput(), nil
	}
	return e.followDefault(ctx, state, node), nil
}

// stepText delivers a plain message, honoring the configured pre-send
// delay. The delay suspends only this instance; context cancellation
// aborts the wait.
func (e *Engine) stepText(ctx context.Context, state *domain.ExecutionState, node *domain.Node) (stepResult, error) {
	t := node.Text
	if t.DelaySeconds > 0 {
		if err := e.sleep(ctx, time.Duration(t.DelaySeconds)*time.Second); err != nil {
			return stepResult{}, fmt.Errorf("delay on %s interrupted: %w", node.ID, err)
		}
	}
	msg := domain.OutboundMessage{InstanceID: state.InstanceID, NodeID: node.ID, Text: t.Message}
	if err := e.messenger.Send(ctx, msg); err != nil {
		return stepResult{}, fmt.Errorf("send text %s: %w", node.ID, err)
	}
	return e.followDefault(ctx, state, node), nil
}

func (e *Engine) stepMedia(ctx context.Context, state *domain.ExecutionState, node *domain.Node) (stepResult, error) {
	msg := domain.OutboundMessage{
		InstanceID: state.InstanceID,
		NodeID:     node.ID,
		Media:      node.Media,
	}
	if err := e.messenger.Send(ctx, msg); err != nil {
		return stepResult{}, fmt.Errorf("send media %s: %w", node.ID, err)
	}
	return e.followDefault(ctx, state, node), nil
}

func (e *Engine) stepCondition(ctx context.Context, state *domain.ExecutionState, node *domain.Node) stepResult {
	matched := evalCondition(node.Condition, state.Variables)

	handle, branch := domain.HandleFalse, "False"
	if matched {
		handle, branch = domain.HandleTrue, "True"
	}

	edge, ok := e.flow.EdgeFrom(node.ID, handle)
	if !ok || e.flow.Node(edge.Target) == nil {
		e.notify(ctx, domain.SystemNotice(state.InstanceID, node.ID, fmt.Sprintf("no path for %s branch", branch)))
		return endWith(domain.StatusFailed, "no path for "+branch+" branch")
	}
	return continueTo(edge.Target)
}

// stepAction performs the configured side effect and always terminates the
// instance, for every action kind. fallback_ai hands the conversation to
// the assistant collaborator and still ends this instance.
func (e *Engine) stepAction(ctx context.Context, state *domain.ExecutionState, node *domain.Node) stepResult {
	a := node.Action
	switch a.ActionKind {
	case domain.ActionSendMessage:
		msg := domain.OutboundMessage{InstanceID: state.InstanceID, NodeID: node.ID, Text: a.Message}
		if err := e.messenger.Send(ctx, msg); err != nil {
			e.logger.Warn("action message delivery failed", "instance", state.InstanceID, "node", node.ID, "err", err)
		}
	case domain.ActionFallbackAI:
		if e.assistant == nil || a.AssistantID == "" {
			// No assistant bound: the handoff degrades to a no-op.
			e.logger.Debug("fallback_ai with no assistant bound", "instance", state.InstanceID, "node", node.ID)
			break
		}
		if err := e.assistant.Handoff(ctx, state.InstanceID, a.AssistantID); err != nil {
			e.logger.Warn("assistant handoff failed", "instance", state.InstanceID, "node", node.ID, "err", err)
		}
	case domain.ActionEnd:
		// Explicit end: nothing to emit.
	}
	return endWith(domain.StatusCompleted, "action: "+string(a.ActionKind))
}

func (e *Engine) stepQuestionInput(ctx context.Context, state *domain.ExecutionState, node *domain.Node) (stepResult, error) {
	q := node.QuestionInput
	msg := domain.OutboundMessage{
		InstanceID: state.InstanceID,
		NodeID:     node.ID,
		Text:       q.Question,
		Options:    q.Options,
	}
	if err := e.messenger.Send(ctx, msg); err != nil {
		return stepResult{}, fmt.Errorf("send question_input %s: %w", node.ID, err)
	}

	state.PendingVariable = q.Variable
	return waitForInput(), nil
}

func (e *Engine) stepUserInputFlow(ctx context.Context, state *domain.ExecutionState, node *domain.Node) stepResult {
	u := node.UserInputFlow
	e.notify(ctx, domain.SystemNotice(state.InstanceID, node.ID, fmt.Sprintf("flow %q started", u.Name)))
	return e.follow(ctx, state, node, domain.HandleFirstQuestion)
}

// stepSequence hands every step to the scheduler fire-and-forget and
// continues immediately; delivery happens out-of-band. Delays accumulate
// across steps, mirroring how the sequence is authored.
func (e *Engine) stepSequence(ctx context.Context, state *domain.ExecutionState, node *domain.Node) stepResult {
	if e.scheduler != nil {
		var elapsed time.Duration
		for _, step := range node.Sequence.Steps {
			elapsed += step.Delay()
			fireAt := e.now().UTC().Add(elapsed)
			payload := domain.ScheduledStep{
				InstanceID:  state.InstanceID,
				NodeID:      node.ID,
				StepID:      step.ID,
				MessageKind: step.MessageKind,
				Content:     step.Content,
			}
			if err := e.scheduler.Schedule(ctx, fireAt, payload); err != nil {
				e.logger.Warn("sequence step scheduling failed",
					"instance", state.InstanceID, "node", node.ID, "step", step.ID, "err", err)
			}
		}
	} else if len(node.Sequence.Steps) > 0 {
		e.logger.Warn("sequence node with no scheduler wired", "instance", state.InstanceID, "node", node.ID)
	}
	return e.followDefault(ctx, state, node)
}

// stepHTTP performs the outbound call with its bounded timeout. Success
// stores the response body in the configured variable and follows the
// success handle; any failure or timeout follows the error handle. A
// missing branch edge terminates the instance with a notice.
func (e *Engine) stepHTTP(ctx context.Context, state *domain.ExecutionState, node *domain.Node) stepResult {
	p := node.HTTP

	var (
		result ports.CallResult
		err    error
	)
	started := e.now()
	if e.caller == nil {
		err = fmt.Errorf("no http collaborator wired")
	} else {
		result, err = e.caller.Do(ctx, ports.CallRequest{
			Method:   p.Method,
			URL:      p.URL,
			Headers:  p.Headers,
			Body:     p.Body,
			BodyKind: p.BodyKind,
			Auth:     p.Auth,
			Timeout:  p.Timeout(),
		})
	}
	e.emitHTTPCall(ctx, state, node, time.Since(started), err != nil)

	handle, branch := domain.HandleSuccess, "success"
	if err != nil {
		e.logger.Debug("http_api call failed", "instance", state.InstanceID, "node", node.ID, "err", err)
		handle, branch = domain.HandleError, "error"
	} else if p.Variable != "" {
		state.Variables[p.Variable] = result.Body
	}

	edge, ok := e.flow.EdgeFrom(node.ID, handle)
	if !ok || e.flow.Node(edge.Target) == nil {
		e.notify(ctx, domain.SystemNotice(state.InstanceID, node.ID, fmt.Sprintf("no path for %s result", branch)))
		return endWith(domain.StatusFailed, "no path for "+branch+" result")
	}
	return continueTo(edge.Target)
}

// stepCTAButton emits the body and link as a content-only message and
// continues via the default edge.
func (e *Engine) stepCTAButton(ctx context.Context, state *domain.ExecutionState, node *domain.Node) (stepResult, error) {
	msg := domain.OutboundMessage{
		InstanceID: state.InstanceID,
		NodeID:     node.ID,
		Text:       node.CTAButton.Body,
		HeaderText: node.CTAButton.HeaderText,
		Footer:     node.CTAButton.Footer,
		Button:     node.CTAButton,
	}
	if err := e.messenger.Send(ctx, msg); err != nil {
		return stepResult{}, fmt.Errorf("send cta_button %s: %w", node.ID, err)
	}
	return e.followDefault(ctx, state, node), nil
}
