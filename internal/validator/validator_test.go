package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botwalk/botwalk/pkg/domain"
)

func validFlow() *domain.Flow {
	return &domain.Flow{
		ID: "valid",
		Nodes: []domain.Node{
			{ID: "start", Kind: domain.KindStart, Start: &domain.StartPayload{Keywords: []string{"hi"}}},
			{ID: "hello", Kind: domain.KindText, Text: &domain.TextPayload{Message: "Hello!"}},
			{ID: "end", Kind: domain.KindAction, Action: &domain.ActionPayload{ActionKind: domain.ActionEnd}},
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "start", Target: "hello"},
			{ID: "e2", Source: "hello", Target: "end"},
		},
	}
}

func errorMessages(result domain.ValidationResult) []string {
	var out []string
	for _, i := range result.Errors {
		out = append(out, i.Message)
	}
	return out
}

func warningMessages(result domain.ValidationResult) []string {
	var out []string
	for _, i := range result.Warnings {
		out = append(out, i.Message)
	}
	return out
}

func TestValidate_ValidFlow(t *testing.T) {
	result := Validate(validFlow())
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)
}

func TestValidate_EmptyFlow(t *testing.T) {
	result := Validate(&domain.Flow{ID: "empty"})

	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1, "an empty flow yields exactly one error")
	assert.Contains(t, result.Errors[0].Message, "trigger")
}

func TestValidate_NoStartNode(t *testing.T) {
	flow := &domain.Flow{
		ID: "no-start",
		Nodes: []domain.Node{
			{ID: "hello", Kind: domain.KindText, Text: &domain.TextPayload{Message: "hi"}},
		},
	}
	result := Validate(flow)

	assert.False(t, result.Valid)
	assert.Contains(t, errorMessages(result), "flow has no trigger: at least one start node is required")
}

func TestValidate_StartNodeRules(t *testing.T) {
	flow := &domain.Flow{
		ID: "bad-start",
		Nodes: []domain.Node{
			{ID: "start", Kind: domain.KindStart, Start: &domain.StartPayload{TriggerType: domain.TriggerKeyword}},
		},
	}
	result := Validate(flow)

	assert.False(t, result.Valid)
	msgs := errorMessages(result)
	assert.Contains(t, msgs, "keyword trigger has no keywords")
	assert.Contains(t, msgs, "start node is not connected to any step")
}

func TestValidate_QuestionRules(t *testing.T) {
	flow := validFlow()
	flow.Nodes = append(flow.Nodes, domain.Node{
		ID:   "ask",
		Kind: domain.KindQuestion,
		Question: &domain.QuestionPayload{
			Style: domain.StyleButtons,
			Options: []domain.Option{
				{ID: "a", Title: ""},
			},
		},
	})
	flow.Edges = append(flow.Edges, domain.Edge{ID: "e3", Source: "hello", Target: "ask"})
	// "end" keeps its place; rewire hello -> ask for reachability.
	flow.Edges[1].Target = "ask"

	result := Validate(flow)
	assert.False(t, result.Valid)

	var blankBody, blankTitle bool
	for _, i := range result.Errors {
		if i.NodeID == "ask" && i.Field == "body" {
			blankBody = true
		}
		if i.NodeID == "ask" && i.Field == "options" {
			blankTitle = true
		}
	}
	assert.True(t, blankBody, "blank body must be an error")
	assert.True(t, blankTitle, "blank option title must be an error")

	// The dangling option is tolerated at runtime, so only a warning.
	var danglingOption bool
	for _, i := range result.Warnings {
		if i.NodeID == "ask" && i.Field == "options" {
			danglingOption = true
		}
	}
	assert.True(t, danglingOption)
}

func TestValidate_ConditionRules(t *testing.T) {
	flow := validFlow()
	flow.Nodes = append(flow.Nodes, domain.Node{
		ID:   "check",
		Kind: domain.KindCondition,
		Condition: &domain.ConditionPayload{
			Match: domain.MatchAll,
			Rules: []domain.Rule{
				{Field: "", Operator: domain.OpEquals, Value: "x"},
				{Field: "plan", Operator: domain.OpEquals},
			},
		},
	})
	flow.Edges[1].Target = "check"

	result := Validate(flow)
	assert.False(t, result.Valid)

	msgs := errorMessages(result)
	assert.Contains(t, msgs, "rule 1 references no variable")
	assert.Contains(t, msgs, "rule 2 (equals) needs a comparison value")

	warns := warningMessages(result)
	assert.Contains(t, warns, "no edge for the True branch")
	assert.Contains(t, warns, "no edge for the False branch")
}

func TestValidate_ConditionWithoutRules(t *testing.T) {
	flow := validFlow()
	flow.Nodes = append(flow.Nodes, domain.Node{
		ID:        "check",
		Kind:      domain.KindCondition,
		Condition: &domain.ConditionPayload{},
	})
	flow.Edges[1].Target = "check"

	result := Validate(flow)
	assert.Contains(t, errorMessages(result), "condition has no rules")
}

func TestValidate_ActionRules(t *testing.T) {
	flow := validFlow()
	flow.Nodes[2].Action = &domain.ActionPayload{ActionKind: domain.ActionSendMessage}

	result := Validate(flow)
	assert.Contains(t, errorMessages(result), "send_message action has no message")

	flow.Nodes[2].Action = &domain.ActionPayload{ActionKind: domain.ActionFallbackAI}
	result = Validate(flow)
	assert.True(t, result.Valid, "missing assistant is non-fatal")
	assert.Contains(t, warningMessages(result), "fallback_ai action has no assistant bound")
}

func TestValidate_CTAButtonRules(t *testing.T) {
	tests := []struct {
		name    string
		payload domain.CTAButtonPayload
		wantErr int
	}{
		{"all blank", domain.CTAButtonPayload{}, 3},
		{"invalid url", domain.CTAButtonPayload{Body: "b", ButtonLabel: "l", URL: "not a url"}, 1},
		{"scheme only", domain.CTAButtonPayload{Body: "b", ButtonLabel: "l", URL: "https://"}, 1},
		{"valid", domain.CTAButtonPayload{Body: "b", ButtonLabel: "l", URL: "https://example.com"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flow := validFlow()
			flow.Nodes = append(flow.Nodes, domain.Node{ID: "cta", Kind: domain.KindCTAButton, CTAButton: &tt.payload})
			flow.Edges[1].Target = "cta"
			flow.Edges = append(flow.Edges, domain.Edge{ID: "e9", Source: "cta", Target: "end"})

			result := Validate(flow)
			var ctaErrs int
			for _, i := range result.Errors {
				if i.NodeID == "cta" {
					ctaErrs++
				}
			}
			assert.Equal(t, tt.wantErr, ctaErrs)
		})
	}
}

func TestValidate_SequenceTemplatePolicy(t *testing.T) {
	flow := validFlow()
	flow.Nodes = append(flow.Nodes, domain.Node{
		ID:   "drip",
		Kind: domain.KindSequence,
		Sequence: &domain.SequencePayload{
			Steps: []domain.SequenceStep{
				{ID: "s1", DelayValue: 30, DelayUnit: domain.DelayMinutes, MessageKind: domain.SequenceText, Content: "soon"},
				{ID: "s2", DelayValue: 1, DelayUnit: domain.DelayDays, MessageKind: domain.SequenceText, Content: "too late for text"},
			},
		},
	})
	flow.Edges[1].Target = "drip"
	flow.Edges = append(flow.Edges, domain.Edge{ID: "e9", Source: "drip", Target: "end"})

	result := Validate(flow)
	assert.False(t, result.Valid)
	assert.Contains(t, errorMessages(result), `step "s2" fires after 24h and must use a template message`)
}

func TestValidate_OrphanDetection(t *testing.T) {
	flow := validFlow()
	flow.Nodes = append(flow.Nodes, domain.Node{
		ID:   "island",
		Kind: domain.KindText,
		Text: &domain.TextPayload{Message: "never seen"},
	})

	result := Validate(flow)
	assert.True(t, result.Valid, "orphans are warnings, not errors")

	var orphaned bool
	for _, i := range result.Warnings {
		if i.NodeID == "island" {
			orphaned = true
			assert.Contains(t, i.Message, "never execute")
		}
	}
	assert.True(t, orphaned)
}

func TestValidate_DuplicateHandleWarning(t *testing.T) {
	flow := validFlow()
	flow.Edges = append(flow.Edges, domain.Edge{ID: "e2b", Source: "hello", Target: "end"})

	result := Validate(flow)
	assert.True(t, result.Valid)

	var dup bool
	for _, i := range result.Warnings {
		if i.NodeID == "hello" {
			dup = true
			assert.Contains(t, i.Message, "only the first is followed")
		}
	}
	assert.True(t, dup)
}

func TestValidate_DanglingEdgeTarget(t *testing.T) {
	flow := validFlow()
	flow.Edges[1].Target = "ghost"

	result := Validate(flow)

	var dangling bool
	for _, i := range result.Warnings {
		if i.NodeID == "hello" {
			dangling = true
		}
	}
	assert.True(t, dangling, "edges into nonexistent nodes must warn")
}

func TestValidate_Idempotent(t *testing.T) {
	flow := validFlow()
	flow.Nodes = append(flow.Nodes, domain.Node{ID: "island", Kind: domain.KindText, Text: &domain.TextPayload{Message: "x"}})

	first := Validate(flow)
	second := Validate(flow)

	assert.Equal(t, first, second)
}
