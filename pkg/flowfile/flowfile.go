// Package flowfile decodes flows from their serialized authoring form: a
// YAML or JSON document carrying a node/edge list where each node has a
// kind and a kind-specific config map. The config maps are decoded into
// the typed payload variants, so a flow that parses here can be dispatched
// exhaustively by the engine.
package flowfile

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/botwalk/botwalk/pkg/domain"
)

type fileFlow struct {
	ID    string        `yaml:"id" json:"id"`
	Name  string        `yaml:"name" json:"name"`
	Nodes []fileNode    `yaml:"nodes" json:"nodes"`
	Edges []domain.Edge `yaml:"edges" json:"edges"`
}

type fileNode struct {
	ID       string          `yaml:"id" json:"id"`
	Kind     domain.NodeKind `yaml:"kind" json:"kind"`
	Position domain.Position `yaml:"position" json:"position"`
	Config   map[string]any  `yaml:"config" json:"config"`
}

// Load reads and parses a flow file.
func Load(path string) (*domain.Flow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read flow file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a flow document. YAML is a superset of JSON, so both
// encodings go through the same path.
func Parse(data []byte) (*domain.Flow, error) {
	var raw fileFlow
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse flow document: %w", err)
	}

	flow := &domain.Flow{
		ID:    raw.ID,
		Name:  raw.Name,
		Edges: raw.Edges,
		Nodes: make([]domain.Node, 0, len(raw.Nodes)),
	}

	for _, fn := range raw.Nodes {
		node, err := decodeNode(fn)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", fn.ID, err)
		}
		flow.Nodes = append(flow.Nodes, node)
	}
	return flow, nil
}

func decodeNode(fn fileNode) (domain.Node, error) {
	node := domain.Node{
		ID:       fn.ID,
		Kind:     fn.Kind,
		Position: fn.Position,
	}

	var target any
	switch fn.Kind {
	case domain.KindStart:
		node.Start = &domain.StartPayload{}
		target = node.Start
	case domain.KindQuestion:
		node.Question = &domain.QuestionPayload{}
		target = node.Question
	case domain.KindText:
		node.Text = &domain.TextPayload{}
		target = node.Text
	case domain.KindMedia:
		node.Media = &domain.MediaPayload{}
		target = node.Media
	case domain.KindCondition:
		node.Condition = &domain.ConditionPayload{}
		target = node.Condition
	case domain.KindAction:
		node.Action = &domain.ActionPayload{}
		target = node.Action
	case domain.KindQuestionInput:
		node.QuestionInput = &domain.QuestionInputPayload{}
		target = node.QuestionInput
	case domain.KindUserInputFlow:
		node.UserInputFlow = &domain.UserInputFlowPayload{}
		target = node.UserInputFlow
	case domain.KindSequence:
		node.Sequence = &domain.SequencePayload{}
		target = node.Sequence
	case domain.KindHTTP:
		node.HTTP = &domain.HTTPPayload{}
		target = node.HTTP
	case domain.KindCTAButton:
		node.CTAButton = &domain.CTAButtonPayload{}
		target = node.CTAButton
	default:
		return domain.Node{}, fmt.Errorf("unknown node kind %q", fn.Kind)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return domain.Node{}, fmt.Errorf("failed to build decoder: %w", err)
	}
	if err := decoder.Decode(fn.Config); err != nil {
		return domain.Node{}, fmt.Errorf("invalid %s config: %w", fn.Kind, err)
	}
	return node, nil
}
