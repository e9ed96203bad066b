package domain

// Handle names for the logical output slots of multi-output nodes. The
// empty string is the default (single-output) handle.
const (
	HandleDefault       = ""
	HandleTrue          = "true"
	HandleFalse         = "false"
	HandleSuccess       = "success"
	HandleError         = "error"
	HandleNext          = "next"
	HandleFirstQuestion = "first-question"
)

// OptionHandle returns the handle an edge attaches to for a question option.
func OptionHandle(optionID string) string {
	return "option-" + optionID
}

// Edge connects the output handle of one node to another node. At runtime
// the first edge found for a (source, handle) pair wins; duplicates are a
// validator warning, not an engine error.
type Edge struct {
	ID     string `json:"id" yaml:"id"`
	Source string `json:"source" yaml:"source"`
	Handle string `json:"handle,omitempty" yaml:"handle,omitempty"`
	Target string `json:"target" yaml:"target"`
	Label  string `json:"label,omitempty" yaml:"label,omitempty"`
}
