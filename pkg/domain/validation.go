package domain

import "fmt"

// Severity distinguishes blocking validation errors from advisories.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one validator finding, tagged with enough position information
// for an authoring tool to highlight the exact node and field. NodeID is
// empty for flow-level findings.
type Issue struct {
	NodeID   string   `json:"node_id,omitempty"`
	NodeKind NodeKind `json:"node_kind,omitempty"`
	Field    string   `json:"field,omitempty"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

func (i Issue) String() string {
	loc := "flow"
	if i.NodeID != "" {
		loc = fmt.Sprintf("node %s (%s)", i.NodeID, i.NodeKind)
	}
	if i.Field != "" {
		loc += "." + i.Field
	}
	return fmt.Sprintf("[%s] %s: %s", i.Severity, loc, i.Message)
}

// ValidationResult is the outcome of static analysis over a flow. Valid is
// true when no error-severity issues exist; warnings never block publishing.
type ValidationResult struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}
