package runtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botwalk/botwalk/pkg/adapters/memory"
	"github.com/botwalk/botwalk/pkg/domain"
)

func surveyFlow() *domain.Flow {
	return &domain.Flow{
		ID: "survey",
		Nodes: []domain.Node{
			{ID: "start", Kind: domain.KindStart, Start: &domain.StartPayload{Keywords: []string{"survey"}}},
			{ID: "ask-email", Kind: domain.KindQuestionInput, QuestionInput: &domain.QuestionInputPayload{
				Question: "What is your email?",
				Variable: "email",
				Kind:     domain.InputFreeText,
			}},
			{ID: "thanks", Kind: domain.KindText, Text: &domain.TextPayload{Message: "Thanks!"}},
			{ID: "end", Kind: domain.KindAction, Action: &domain.ActionPayload{ActionKind: domain.ActionEnd}},
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "start", Target: "ask-email"},
			{ID: "e2", Source: "ask-email", Handle: domain.HandleNext, Target: "thanks"},
			{ID: "e3", Source: "thanks", Target: "end"},
		},
	}
}

func TestQuestionInput_CollectsAnswer(t *testing.T) {
	recorder := memory.NewRecorder()
	engine := NewEngine(surveyFlow(), recorder)
	ctx := context.Background()

	state, err := engine.Trigger(ctx, "inst-1", "survey", TriggerOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWaitingForInput, state.Status)
	assert.Equal(t, "email", state.PendingVariable)

	err = engine.Resume(ctx, state, "ada@example.com", ResumeOptions{EventID: "evt-1"})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCompleted, state.Status)
	assert.Equal(t, "ada@example.com", state.Variables["email"])
	assert.Empty(t, state.PendingVariable)
	assert.Equal(t, []string{"What is your email?", "Thanks!"}, recorder.Texts())
}

func TestResume_DuplicateEventIsNoOp(t *testing.T) {
	engine := NewEngine(surveyFlow(), memory.NewRecorder())
	ctx := context.Background()

	state, err := engine.Trigger(ctx, "inst-1", "survey", TriggerOptions{})
	require.NoError(t, err)

	require.NoError(t, engine.Resume(ctx, state, "first@example.com", ResumeOptions{EventID: "evt-1"}))
	visitedAfterFirst := len(state.Visited)

	// A redelivered webhook replays the same event id: nothing may change.
	require.NoError(t, engine.Resume(ctx, state, "second@example.com", ResumeOptions{EventID: "evt-1"}))
	assert.Equal(t, "first@example.com", state.Variables["email"])
	assert.Len(t, state.Visited, visitedAfterFirst)
}

func TestTrigger_EventIDConsumedAtCreation(t *testing.T) {
	engine := NewEngine(surveyFlow(), memory.NewRecorder())
	ctx := context.Background()

	state, err := engine.Trigger(ctx, "inst-1", "survey", TriggerOptions{EventID: "evt-1"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWaitingForInput, state.Status)

	// The provider redelivers the opening message. The instance now exists,
	// so the event lands on Resume; the trigger text must not become the
	// pending answer.
	require.NoError(t, engine.Resume(ctx, state, "survey", ResumeOptions{EventID: "evt-1"}))
	assert.Equal(t, domain.StatusWaitingForInput, state.Status)
	assert.Empty(t, state.Variables["email"])

	require.NoError(t, engine.Resume(ctx, state, "ada@example.com", ResumeOptions{EventID: "evt-2"}))
	assert.Equal(t, "ada@example.com", state.Variables["email"])
	assert.Equal(t, domain.StatusCompleted, state.Status)
}

func TestPendingInput_DanglingNextEndsFlow(t *testing.T) {
	flow := surveyFlow()
	flow.Edges[1].Target = "ghost"

	recorder := memory.NewRecorder()
	engine := NewEngine(flow, recorder)
	ctx := context.Background()

	state, err := engine.Trigger(ctx, "inst-1", "survey", TriggerOptions{})
	require.NoError(t, err)

	require.NoError(t, engine.Resume(ctx, state, "ada@example.com", ResumeOptions{}))
	assert.Equal(t, domain.StatusCompleted, state.Status)
	assert.Equal(t, "ada@example.com", state.Variables["email"])
}

func TestResume_NotWaitingIsCallerError(t *testing.T) {
	engine := NewEngine(surveyFlow(), memory.NewRecorder())
	ctx := context.Background()

	state, err := engine.Trigger(ctx, "inst-1", "survey", TriggerOptions{})
	require.NoError(t, err)
	require.NoError(t, engine.Resume(ctx, state, "a@b.c", ResumeOptions{}))
	require.True(t, state.Status.Terminal())

	err = engine.Resume(ctx, state, "again", ResumeOptions{})
	assert.ErrorIs(t, err, domain.ErrNotWaiting)
}

func TestQuestionInput_RequiredRePrompts(t *testing.T) {
	flow := surveyFlow()
	flow.Nodes[1].QuestionInput.Required = true

	recorder := memory.NewRecorder()
	engine := NewEngine(flow, recorder)
	ctx := context.Background()

	state, err := engine.Trigger(ctx, "inst-1", "survey", TriggerOptions{})
	require.NoError(t, err)

	require.NoError(t, engine.Resume(ctx, state, "   ", ResumeOptions{}))
	assert.Equal(t, domain.StatusWaitingForInput, state.Status)
	assert.Equal(t, "email", state.PendingVariable)

	require.NoError(t, engine.Resume(ctx, state, "ada@example.com", ResumeOptions{}))
	assert.Equal(t, domain.StatusCompleted, state.Status)
}

func menuFlow() *domain.Flow {
	return &domain.Flow{
		ID: "menu",
		Nodes: []domain.Node{
			{ID: "start", Kind: domain.KindStart, Start: &domain.StartPayload{Keywords: []string{"menu"}}},
			{ID: "pick", Kind: domain.KindQuestion, Question: &domain.QuestionPayload{
				Body:  "What do you need?",
				Style: domain.StyleButtons,
				Options: []domain.Option{
					{ID: "sales", Title: "Sales"},
					{ID: "support", Title: "Support"},
				},
			}},
			{ID: "sales-msg", Kind: domain.KindText, Text: &domain.TextPayload{Message: "Sales here"}},
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "start", Target: "pick"},
			{ID: "e2", Source: "pick", Handle: domain.OptionHandle("sales"), Target: "sales-msg"},
			// The "support" option is intentionally left unconnected.
		},
	}
}

func TestQuestion_WaitsAndFollowsOption(t *testing.T) {
	recorder := memory.NewRecorder()
	engine := NewEngine(menuFlow(), recorder)
	ctx := context.Background()

	state, err := engine.Trigger(ctx, "inst-1", "menu", TriggerOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWaitingForInput, state.Status)
	assert.Empty(t, state.PendingVariable)

	msgs := recorder.Messages()
	require.NotEmpty(t, msgs)
	assert.Len(t, msgs[len(msgs)-1].Options, 2)

	err = engine.Resume(ctx, state, "Sales", ResumeOptions{OptionID: "sales"})
	require.NoError(t, err)
	assert.Contains(t, state.Visited, "sales-msg")
}

func TestQuestion_UnconnectedOptionKeepsWaiting(t *testing.T) {
	recorder := memory.NewRecorder()
	engine := NewEngine(menuFlow(), recorder)
	ctx := context.Background()

	state, err := engine.Trigger(ctx, "inst-1", "menu", TriggerOptions{})
	require.NoError(t, err)

	err = engine.Resume(ctx, state, "Support", ResumeOptions{OptionID: "support"})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusWaitingForInput, state.Status)
	msgs := recorder.Messages()
	last := msgs[len(msgs)-1]
	assert.True(t, last.System)
	assert.Contains(t, last.Text, "not connected")
}

func TestQuestion_DanglingOptionTargetKeepsWaiting(t *testing.T) {
	flow := menuFlow()
	flow.Edges[1].Target = "ghost"

	engine := NewEngine(flow, memory.NewRecorder())
	ctx := context.Background()

	state, err := engine.Trigger(ctx, "inst-1", "menu", TriggerOptions{})
	require.NoError(t, err)

	// The edge exists but points at a node that does not. The instance must
	// stay answerable instead of wedging in a running status.
	require.NoError(t, engine.Resume(ctx, state, "Sales", ResumeOptions{OptionID: "sales"}))
	assert.Equal(t, domain.StatusWaitingForInput, state.Status)
}
