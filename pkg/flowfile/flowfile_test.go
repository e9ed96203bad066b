package flowfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botwalk/botwalk/pkg/domain"
)

const sampleYAML = `
id: support
name: Support intake
nodes:
  - id: start
    kind: start
    position: {x: 0, y: 0}
    config:
      trigger_type: keyword
      keywords: [help, support]
      tag_on_match: support-lead
  - id: menu
    kind: question
    position: {x: 0, y: 120}
    config:
      body: How can we help?
      style: buttons
      options:
        - {id: billing, title: Billing}
        - {id: tech, title: Technical issue}
  - id: lookup
    kind: http_api
    config:
      method: GET
      url: https://api.example.com/v1/account
      timeout_seconds: 5
      variable: account
      auth:
        type: bearer
        token: secret
  - id: bye
    kind: action
    config:
      action_kind: send_message
      message: Thanks, goodbye!
edges:
  - {id: e1, source: start, target: menu}
  - {id: e2, source: menu, handle: option-billing, target: lookup}
  - {id: e3, source: lookup, handle: success, target: bye}
  - {id: e4, source: lookup, handle: error, target: bye}
`

func TestParse_YAML(t *testing.T) {
	flow, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "support", flow.ID)
	require.Len(t, flow.Nodes, 4)
	require.Len(t, flow.Edges, 4)

	start := flow.Node("start")
	require.NotNil(t, start)
	require.NotNil(t, start.Start)
	assert.Equal(t, domain.TriggerKeyword, start.Start.TriggerType)
	assert.Equal(t, []string{"help", "support"}, start.Start.Keywords)
	assert.Equal(t, "support-lead", start.Start.TagOnMatch)

	menu := flow.Node("menu")
	require.NotNil(t, menu.Question)
	assert.Equal(t, domain.StyleButtons, menu.Question.Style)
	require.Len(t, menu.Question.Options, 2)
	assert.Equal(t, "Billing", menu.Question.Options[0].Title)

	lookup := flow.Node("lookup")
	require.NotNil(t, lookup.HTTP)
	assert.Equal(t, 5, lookup.HTTP.TimeoutSeconds)
	require.NotNil(t, lookup.HTTP.Auth)
	assert.Equal(t, domain.AuthBearer, lookup.HTTP.Auth.Type)

	bye := flow.Node("bye")
	require.NotNil(t, bye.Action)
	assert.Equal(t, domain.ActionSendMessage, bye.Action.ActionKind)
}

func TestParse_JSON(t *testing.T) {
	doc := `{
		"id": "mini",
		"nodes": [
			{"id": "start", "kind": "start", "config": {"keywords": ["hi"]}},
			{"id": "t", "kind": "text", "config": {"message": "Hello!", "delay_seconds": 2}}
		],
		"edges": [{"id": "e1", "source": "start", "target": "t"}]
	}`

	flow, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.Len(t, flow.Nodes, 2)

	text := flow.Node("t")
	require.NotNil(t, text.Text)
	assert.Equal(t, "Hello!", text.Text.Message)
	assert.Equal(t, 2, text.Text.DelaySeconds)
}

func TestParse_UnknownKind(t *testing.T) {
	doc := `
id: bad
nodes:
  - id: x
    kind: teleport
`
	_, err := Parse([]byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown node kind "teleport"`)
}

func TestParse_PositionCarriedThrough(t *testing.T) {
	flow, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	menu := flow.Node("menu")
	assert.Equal(t, 120.0, menu.Position.Y)
}
