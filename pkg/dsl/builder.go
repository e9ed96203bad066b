// Package dsl provides a fluent builder for composing flows in code.
// Hosts and tests use it instead of hand-writing node/edge literals or
// shipping a flow file.
package dsl

import (
	"fmt"

	"github.com/botwalk/botwalk/pkg/domain"
)

// Builder accumulates nodes and edges for one flow.
type Builder struct {
	flow    domain.Flow
	edgeSeq int
	errs    []error
}

// New creates a builder for a flow with the given id.
func New(id string) *Builder {
	return &Builder{flow: domain.Flow{ID: id}}
}

// Named sets the human-readable flow name.
func (b *Builder) Named(name string) *Builder {
	b.flow.Name = name
	return b
}

func (b *Builder) add(node domain.Node) *Builder {
	if b.flow.Node(node.ID) != nil {
		b.errs = append(b.errs, fmt.Errorf("duplicate node id %q", node.ID))
		return b
	}
	b.flow.Nodes = append(b.flow.Nodes, node)
	return b
}

// Start adds a keyword-triggered entry point.
func (b *Builder) Start(id string, keywords ...string) *Builder {
	return b.add(domain.Node{ID: id, Kind: domain.KindStart, Start: &domain.StartPayload{
		TriggerType: domain.TriggerKeyword,
		Keywords:    keywords,
	}})
}

// StartNode adds an entry point with a full trigger configuration.
func (b *Builder) StartNode(id string, payload domain.StartPayload) *Builder {
	return b.add(domain.Node{ID: id, Kind: domain.KindStart, Start: &payload})
}

// Text adds a plain message step.
func (b *Builder) Text(id, message string) *Builder {
	return b.add(domain.Node{ID: id, Kind: domain.KindText, Text: &domain.TextPayload{Message: message}})
}

// DelayedText adds a message step with a pre-send delay.
func (b *Builder) DelayedText(id, message string, delaySeconds int) *Builder {
	return b.add(domain.Node{ID: id, Kind: domain.KindText, Text: &domain.TextPayload{
		Message:      message,
		DelaySeconds: delaySeconds,
	}})
}

// Media adds a media message step.
func (b *Builder) Media(id string, kind domain.MediaKind, ref, caption string) *Builder {
	return b.add(domain.Node{ID: id, Kind: domain.KindMedia, Media: &domain.MediaPayload{
		MediaKind: kind,
		MediaRef:  ref,
		Caption:   caption,
	}})
}

// Question adds an interactive question with options.
func (b *Builder) Question(id, body string, style domain.MessageStyle, options ...domain.Option) *Builder {
	return b.add(domain.Node{ID: id, Kind: domain.KindQuestion, Question: &domain.QuestionPayload{
		Body:    body,
		Style:   style,
		Options: options,
	}})
}

// Condition adds a branching step.
func (b *Builder) Condition(id string, match domain.MatchMode, rules ...domain.Rule) *Builder {
	return b.add(domain.Node{ID: id, Kind: domain.KindCondition, Condition: &domain.ConditionPayload{
		Match: match,
		Rules: rules,
	}})
}

// Ask adds a free-text question_input storing the answer under variable.
func (b *Builder) Ask(id, question, variable string) *Builder {
	return b.add(domain.Node{ID: id, Kind: domain.KindQuestionInput, QuestionInput: &domain.QuestionInputPayload{
		Question: question,
		Variable: variable,
		Kind:     domain.InputFreeText,
	}})
}

// InputFlow adds a user_input_flow head node.
func (b *Builder) InputFlow(id, name string, webhook *domain.WebhookConfig) *Builder {
	return b.add(domain.Node{ID: id, Kind: domain.KindUserInputFlow, UserInputFlow: &domain.UserInputFlowPayload{
		Name:    name,
		Webhook: webhook,
	}})
}

// Sequence adds a scheduled drip step.
func (b *Builder) Sequence(id string, steps ...domain.SequenceStep) *Builder {
	return b.add(domain.Node{ID: id, Kind: domain.KindSequence, Sequence: &domain.SequencePayload{Steps: steps}})
}

// HTTP adds an external API call step.
func (b *Builder) HTTP(id string, payload domain.HTTPPayload) *Builder {
	return b.add(domain.Node{ID: id, Kind: domain.KindHTTP, HTTP: &payload})
}

// CTAButton adds a link-button message step.
func (b *Builder) CTAButton(id, body, label, url string) *Builder {
	return b.add(domain.Node{ID: id, Kind: domain.KindCTAButton, CTAButton: &domain.CTAButtonPayload{
		Body:        body,
		ButtonLabel: label,
		URL:         url,
	}})
}

// End adds a terminal action node with kind end.
func (b *Builder) End(id string) *Builder {
	return b.add(domain.Node{ID: id, Kind: domain.KindAction, Action: &domain.ActionPayload{ActionKind: domain.ActionEnd}})
}

// Say adds a terminal send_message action node.
func (b *Builder) Say(id, message string) *Builder {
	return b.add(domain.Node{ID: id, Kind: domain.KindAction, Action: &domain.ActionPayload{
		ActionKind: domain.ActionSendMessage,
		Message:    message,
	}})
}

// Handoff adds a terminal fallback_ai action node.
func (b *Builder) Handoff(id, assistantID string) *Builder {
	return b.add(domain.Node{ID: id, Kind: domain.KindAction, Action: &domain.ActionPayload{
		ActionKind:  domain.ActionFallbackAI,
		AssistantID: assistantID,
	}})
}

// Connect adds the natural continuation edge between two nodes. For most
// kinds that is the default handle; question_input continues via "next"
// and user_input_flow via "first-question".
func (b *Builder) Connect(source, target string) *Builder {
	handle := domain.HandleDefault
	if node := b.flow.Node(source); node != nil {
		switch node.Kind {
		case domain.KindQuestionInput:
			handle = domain.HandleNext
		case domain.KindUserInputFlow:
			handle = domain.HandleFirstQuestion
		}
	}
	return b.ConnectHandle(source, handle, target)
}

// ConnectHandle adds an edge leaving source on the given handle.
func (b *Builder) ConnectHandle(source, handle, target string) *Builder {
	b.edgeSeq++
	b.flow.Edges = append(b.flow.Edges, domain.Edge{
		ID:     fmt.Sprintf("e%d", b.edgeSeq),
		Source: source,
		Handle: handle,
		Target: target,
	})
	return b
}

// ConnectOption adds an edge for a question option.
func (b *Builder) ConnectOption(source, optionID, target string) *Builder {
	return b.ConnectHandle(source, domain.OptionHandle(optionID), target)
}

// Build returns the assembled flow. Builder errors (duplicate node ids)
// surface here rather than panicking mid-chain.
func (b *Builder) Build() (*domain.Flow, error) {
	if len(b.errs) > 0 {
		return nil, b.errs[0]
	}
	flow := b.flow
	return &flow, nil
}
