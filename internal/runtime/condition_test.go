package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/botwalk/botwalk/pkg/domain"
)

func TestEvalRule(t *testing.T) {
	vars := map[string]string{
		"email": "ada@example.com",
		"plan":  "pro",
	}

	tests := []struct {
		name string
		rule domain.Rule
		want bool
	}{
		{"equals match", domain.Rule{Field: "plan", Operator: domain.OpEquals, Value: "pro"}, true},
		{"equals mismatch", domain.Rule{Field: "plan", Operator: domain.OpEquals, Value: "free"}, false},
		{"not_equals", domain.Rule{Field: "plan", Operator: domain.OpNotEquals, Value: "free"}, true},
		{"contains", domain.Rule{Field: "email", Operator: domain.OpContains, Value: "@example"}, true},
		{"not_contains", domain.Rule{Field: "email", Operator: domain.OpNotContains, Value: "@corp"}, true},
		{"exists set", domain.Rule{Field: "email", Operator: domain.OpExists}, true},
		{"exists unset is always false", domain.Rule{Field: "phone", Operator: domain.OpExists}, false},
		{"not_exists unset is always true", domain.Rule{Field: "phone", Operator: domain.OpNotExists}, true},
		{"equals against unset compares empty", domain.Rule{Field: "phone", Operator: domain.OpEquals, Value: ""}, true},
		{"unknown operator is false", domain.Rule{Field: "plan", Operator: "regex"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, evalRule(tt.rule, vars))
		})
	}
}

func TestEvalCondition_MatchModes(t *testing.T) {
	vars := map[string]string{"a": "1"}

	r1True := domain.Rule{Field: "a", Operator: domain.OpExists}
	r2False := domain.Rule{Field: "b", Operator: domain.OpExists}

	tests := []struct {
		name string
		p    domain.ConditionPayload
		want bool
	}{
		{"all: T and T", domain.ConditionPayload{Match: domain.MatchAll, Rules: []domain.Rule{r1True, r1True}}, true},
		{"all: T and F", domain.ConditionPayload{Match: domain.MatchAll, Rules: []domain.Rule{r1True, r2False}}, false},
		{"any: T or F", domain.ConditionPayload{Match: domain.MatchAny, Rules: []domain.Rule{r1True, r2False}}, true},
		{"any: F or F", domain.ConditionPayload{Match: domain.MatchAny, Rules: []domain.Rule{r2False, r2False}}, false},
		{"default mode is all", domain.ConditionPayload{Rules: []domain.Rule{r1True, r2False}}, false},
		{"no rules never match", domain.ConditionPayload{Match: domain.MatchAll}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, evalCondition(&tt.p, vars))
		})
	}
}
