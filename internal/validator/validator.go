// Package validator performs static analysis over a flow graph: structural
// completeness, reachability and per-node-kind field rules. It never mutates
// the graph and is safe to run repeatedly; an unchanged flow always yields
// the same result.
package validator

import (
	"fmt"
	"net/url"
	"time"

	"github.com/botwalk/botwalk/pkg/domain"
)

// templatePolicyDelay is the provider cutoff past which a scheduled step
// must use a template message instead of free text.
const templatePolicyDelay = 24 * time.Hour

// Validate checks a flow for authoring mistakes. Errors block publishing;
// warnings do not.
func Validate(flow *domain.Flow) domain.ValidationResult {
	c := &collector{}

	if flow == nil || len(flow.Nodes) == 0 {
		c.errorf("", "", "", "flow is empty: add a trigger (start) node to begin")
		return c.result()
	}

	starts := flow.StartNodes()
	if len(starts) == 0 {
		c.errorf("", "", "", "flow has no trigger: at least one start node is required")
	}

	for i := range flow.Nodes {
		c.checkNode(flow, &flow.Nodes[i])
	}

	c.checkDuplicateHandles(flow)
	c.checkOrphans(flow, starts)

	return c.result()
}

type collector struct {
	errors   []domain.Issue
	warnings []domain.Issue
}

func (c *collector) errorf(nodeID string, kind domain.NodeKind, field, format string, args ...any) {
	c.errors = append(c.errors, domain.Issue{
		NodeID:   nodeID,
		NodeKind: kind,
		Field:    field,
		Message:  fmt.Sprintf(format, args...),
		Severity: domain.SeverityError,
	})
}

func (c *collector) warnf(nodeID string, kind domain.NodeKind, field, format string, args ...any) {
	c.warnings = append(c.warnings, domain.Issue{
		NodeID:   nodeID,
		NodeKind: kind,
		Field:    field,
		Message:  fmt.Sprintf(format, args...),
		Severity: domain.SeverityWarning,
	})
}

func (c *collector) result() domain.ValidationResult {
	return domain.ValidationResult{
		Valid:    len(c.errors) == 0,
		Errors:   c.errors,
		Warnings: c.warnings,
	}
}

func (c *collector) checkNode(flow *domain.Flow, n *domain.Node) {
	switch n.Kind {
	case domain.KindStart:
		c.checkStart(flow, n)
	case domain.KindQuestion:
		c.checkQuestion(flow, n)
	case domain.KindText:
		if n.Text == nil || n.Text.Message == "" {
			c.errorf(n.ID, n.Kind, "message", "text node has no message")
		}
	case domain.KindMedia:
		c.checkMedia(n)
	case domain.KindCondition:
		c.checkCondition(flow, n)
	case domain.KindAction:
		c.checkAction(n)
	case domain.KindQuestionInput:
		c.checkQuestionInput(n)
	case domain.KindUserInputFlow:
		if n.UserInputFlow == nil || n.UserInputFlow.Name == "" {
			c.errorf(n.ID, n.Kind, "name", "input flow has no name")
		}
	case domain.KindSequence:
		c.checkSequence(n)
	case domain.KindHTTP:
		c.checkHTTP(n)
	case domain.KindCTAButton:
		c.checkCTAButton(n)
	default:
		c.errorf(n.ID, n.Kind, "", "unknown node kind %q", n.Kind)
	}

	// Dangling targets are tolerated by the engine (treated as "no
	// outgoing path") but almost always an authoring mistake.
	for _, e := range flow.EdgesFrom(n.ID) {
		if flow.Node(e.Target) == nil {
			c.warnf(n.ID, n.Kind, "", "edge %s points at nonexistent node %q", e.ID, e.Target)
		}
	}
}

func (c *collector) checkStart(flow *domain.Flow, n *domain.Node) {
	if n.Start == nil {
		c.errorf(n.ID, n.Kind, "", "start node has no trigger configuration")
		return
	}
	keywordTrigger := n.Start.TriggerType == "" || n.Start.TriggerType == domain.TriggerKeyword
	if keywordTrigger && len(n.Start.Keywords) == 0 {
		c.errorf(n.ID, n.Kind, "keywords", "keyword trigger has no keywords")
	}
	if len(flow.EdgesFrom(n.ID)) == 0 {
		c.errorf(n.ID, n.Kind, "", "start node is not connected to any step")
	}
}

func (c *collector) checkQuestion(flow *domain.Flow, n *domain.Node) {
	if n.Question == nil {
		c.errorf(n.ID, n.Kind, "", "question node has no payload")
		return
	}
	q := n.Question
	if q.Body == "" {
		c.errorf(n.ID, n.Kind, "body", "question has no body text")
	}
	if q.Style != domain.StyleText && q.Style != "" && len(q.Options) == 0 {
		c.errorf(n.ID, n.Kind, "options", "%s-style question needs at least one option", q.Style)
	}
	for _, opt := range q.Options {
		if opt.Title == "" {
			c.errorf(n.ID, n.Kind, "options", "option %q has a blank title", opt.ID)
		}
		if _, ok := flow.EdgeFrom(n.ID, domain.OptionHandle(opt.ID)); !ok {
			// Tolerated at runtime: an unconnected option re-prompts.
			c.warnf(n.ID, n.Kind, "options", "option %q is not connected to any step", opt.ID)
		}
	}
}

func (c *collector) checkMedia(n *domain.Node) {
	if n.Media == nil || n.Media.MediaRef == "" {
		c.errorf(n.ID, n.Kind, "media_ref", "media node has no uploaded media reference")
	}
}

func (c *collector) checkCondition(flow *domain.Flow, n *domain.Node) {
	if n.Condition == nil || len(n.Condition.Rules) == 0 {
		c.errorf(n.ID, n.Kind, "rules", "condition has no rules")
		return
	}
	for i, r := range n.Condition.Rules {
		if r.Field == "" {
			c.errorf(n.ID, n.Kind, "rules", "rule %d references no variable", i+1)
		}
		if r.Operator.NeedsValue() && r.Value == "" {
			c.errorf(n.ID, n.Kind, "rules", "rule %d (%s) needs a comparison value", i+1, r.Operator)
		}
	}
	if _, ok := flow.EdgeFrom(n.ID, domain.HandleTrue); !ok {
		c.warnf(n.ID, n.Kind, "", "no edge for the True branch")
	}
	if _, ok := flow.EdgeFrom(n.ID, domain.HandleFalse); !ok {
		c.warnf(n.ID, n.Kind, "", "no edge for the False branch")
	}
}

func (c *collector) checkAction(n *domain.Node) {
	if n.Action == nil {
		c.errorf(n.ID, n.Kind, "", "action node has no payload")
		return
	}
	switch n.Action.ActionKind {
	case domain.ActionSendMessage:
		if n.Action.Message == "" {
			c.errorf(n.ID, n.Kind, "message", "send_message action has no message")
		}
	case domain.ActionFallbackAI:
		if n.Action.AssistantID == "" {
			// Non-fatal: the handoff degrades to a no-op.
			c.warnf(n.ID, n.Kind, "assistant_id", "fallback_ai action has no assistant bound")
		}
	}
}

func (c *collector) checkQuestionInput(n *domain.Node) {
	if n.QuestionInput == nil || n.QuestionInput.Question == "" {
		c.errorf(n.ID, n.Kind, "question", "question_input node has no question text")
		return
	}
	if n.QuestionInput.Variable == "" {
		c.errorf(n.ID, n.Kind, "variable", "question_input has no variable to store the answer")
	}
}

func (c *collector) checkSequence(n *domain.Node) {
	if n.Sequence == nil {
		return
	}
	var elapsed time.Duration
	for _, step := range n.Sequence.Steps {
		elapsed += step.Delay()
		if elapsed >= templatePolicyDelay && step.MessageKind != domain.SequenceTemplate {
			c.errorf(n.ID, n.Kind, "steps",
				"step %q fires after 24h and must use a template message", step.ID)
		}
	}
}

func (c *collector) checkHTTP(n *domain.Node) {
	if n.HTTP == nil {
		c.errorf(n.ID, n.Kind, "", "http_api node has no payload")
		return
	}
	if n.HTTP.URL == "" {
		c.errorf(n.ID, n.Kind, "url", "http_api node has no URL")
	}
	if n.HTTP.Method == "" {
		c.errorf(n.ID, n.Kind, "method", "http_api node has no method")
	}
}

func (c *collector) checkCTAButton(n *domain.Node) {
	if n.CTAButton == nil {
		c.errorf(n.ID, n.Kind, "", "cta_button node has no payload")
		return
	}
	b := n.CTAButton
	if b.Body == "" {
		c.errorf(n.ID, n.Kind, "body", "button message has no body")
	}
	if b.ButtonLabel == "" {
		c.errorf(n.ID, n.Kind, "button_label", "button has no label")
	}
	if !validURL(b.URL) {
		c.errorf(n.ID, n.Kind, "url", "button URL %q is missing or invalid", b.URL)
	}
}

func validURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// checkDuplicateHandles flags ambiguous edges. The engine resolves them
// first-wins, so this stays a warning.
func (c *collector) checkDuplicateHandles(flow *domain.Flow) {
	seen := make(map[string]bool, len(flow.Edges))
	for _, e := range flow.Edges {
		key := e.Source + "\x00" + e.Handle
		if seen[key] {
			node := flow.Node(e.Source)
			kind := domain.NodeKind("")
			if node != nil {
				kind = node.Kind
			}
			handle := e.Handle
			if handle == "" {
				handle = "default"
			}
			c.warnf(e.Source, kind, "", "duplicate edge on handle %q: only the first is followed", handle)
			continue
		}
		seen[key] = true
	}
}

func (c *collector) checkOrphans(flow *domain.Flow, starts []*domain.Node) {
	if len(starts) == 0 {
		return
	}
	entryIDs := make([]string, 0, len(starts))
	for _, s := range starts {
		entryIDs = append(entryIDs, s.ID)
	}
	reached := flow.ReachableSet(entryIDs)

	for i := range flow.Nodes {
		n := &flow.Nodes[i]
		if n.Kind == domain.KindStart || reached[n.ID] {
			continue
		}
		c.warnf(n.ID, n.Kind, "", "unreachable from any trigger: this step will never execute")
	}
}
