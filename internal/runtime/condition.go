package runtime

import (
	"strings"

	"github.com/botwalk/botwalk/pkg/domain"
)

// evalCondition evaluates every rule against the variable store and
// combines the results with the payload's match mode. Unset variables
// evaluate as the empty string, so exists is false and not_exists is true
// for a variable that was never written.
func evalCondition(p *domain.ConditionPayload, vars map[string]string) bool {
	if p == nil || len(p.Rules) == 0 {
		return false
	}

	if p.Match == domain.MatchAny {
		for _, r := range p.Rules {
			if evalRule(r, vars) {
				return true
			}
		}
		return false
	}

	// MatchAll is the default when the mode is unset.
	for _, r := range p.Rules {
		if !evalRule(r, vars) {
			return false
		}
	}
	return true
}

func evalRule(r domain.Rule, vars map[string]string) bool {
	value := vars[r.Field]

	switch r.Operator {
	case domain.OpEquals:
		return value == r.Value
	case domain.OpNotEquals:
		return value != r.Value
	case domain.OpContains:
		return strings.Contains(value, r.Value)
	case domain.OpNotContains:
		return !strings.Contains(value, r.Value)
	case domain.OpExists:
		return value != ""
	case domain.OpNotExists:
		return value == ""
	default:
		return false
	}
}
