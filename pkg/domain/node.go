package domain

import "time"

// NodeKind is the closed set of step types a flow can contain.
type NodeKind string

const (
	KindStart         NodeKind = "start"
	KindQuestion      NodeKind = "question"
	KindText          NodeKind = "text"
	KindMedia         NodeKind = "media"
	KindCondition     NodeKind = "condition"
	KindAction        NodeKind = "action"
	KindQuestionInput NodeKind = "question_input"
	KindUserInputFlow NodeKind = "user_input_flow"
	KindSequence      NodeKind = "sequence"
	KindHTTP          NodeKind = "http_api"
	KindCTAButton     NodeKind = "cta_button"
)

// Position is authoring-tool metadata. It is carried through serialization
// unchanged and never read by the engine.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Node is one step in a flow. Kind selects which of the payload pointers is
// populated; exactly one should be non-nil for a well-formed node. The
// engine dispatches on Kind exhaustively, so an unknown kind is rejected at
// load time rather than at run time.
type Node struct {
	ID       string   `json:"id" yaml:"id"`
	Kind     NodeKind `json:"kind" yaml:"kind"`
	Position Position `json:"position" yaml:"position"`

	Start         *StartPayload         `json:"start,omitempty" yaml:"start,omitempty"`
	Question      *QuestionPayload      `json:"question,omitempty" yaml:"question,omitempty"`
	Text          *TextPayload          `json:"text,omitempty" yaml:"text,omitempty"`
	Media         *MediaPayload         `json:"media,omitempty" yaml:"media,omitempty"`
	Condition     *ConditionPayload     `json:"condition,omitempty" yaml:"condition,omitempty"`
	Action        *ActionPayload        `json:"action,omitempty" yaml:"action,omitempty"`
	QuestionInput *QuestionInputPayload `json:"question_input,omitempty" yaml:"question_input,omitempty"`
	UserInputFlow *UserInputFlowPayload `json:"user_input_flow,omitempty" yaml:"user_input_flow,omitempty"`
	Sequence      *SequencePayload      `json:"sequence,omitempty" yaml:"sequence,omitempty"`
	HTTP          *HTTPPayload          `json:"http_api,omitempty" yaml:"http_api,omitempty"`
	CTAButton     *CTAButtonPayload     `json:"cta_button,omitempty" yaml:"cta_button,omitempty"`
}

// TriggerType selects how a start node admits an inbound message.
type TriggerType string

const (
	TriggerKeyword      TriggerType = "keyword"
	TriggerFirstMessage TriggerType = "first_message"
	TriggerButtonClick  TriggerType = "button_click"
)

// StartPayload configures a flow entry point.
type StartPayload struct {
	TriggerType   TriggerType `json:"trigger_type" yaml:"trigger_type" mapstructure:"trigger_type"`
	Keywords      []string    `json:"keywords" yaml:"keywords" mapstructure:"keywords"`
	CaseSensitive bool        `json:"case_sensitive,omitempty" yaml:"case_sensitive,omitempty" mapstructure:"case_sensitive"`
	TagOnMatch    string      `json:"tag_on_match,omitempty" yaml:"tag_on_match,omitempty" mapstructure:"tag_on_match"`
}

// MessageStyle selects the presentation of a question.
type MessageStyle string

const (
	StyleText    MessageStyle = "text"
	StyleButtons MessageStyle = "buttons"
	StyleList    MessageStyle = "list"
)

// Option is one selectable choice on a question or question_input node.
type Option struct {
	ID          string `json:"id" yaml:"id" mapstructure:"id"`
	Title       string `json:"title" yaml:"title" mapstructure:"title"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
}

// QuestionPayload configures an interactive question with optional choices.
// Each option maps to its own output handle (see OptionHandle).
type QuestionPayload struct {
	Body        string       `json:"body" yaml:"body" mapstructure:"body"`
	HeaderText  string       `json:"header_text,omitempty" yaml:"header_text,omitempty" mapstructure:"header_text"`
	HeaderMedia string       `json:"header_media,omitempty" yaml:"header_media,omitempty" mapstructure:"header_media"`
	Footer      string       `json:"footer,omitempty" yaml:"footer,omitempty" mapstructure:"footer"`
	Style       MessageStyle `json:"style" yaml:"style" mapstructure:"style"`
	Options     []Option     `json:"options,omitempty" yaml:"options,omitempty" mapstructure:"options"`
}

// TextPayload is a plain outbound message with an optional pre-send delay.
type TextPayload struct {
	Message      string `json:"message" yaml:"message" mapstructure:"message"`
	DelaySeconds int    `json:"delay_seconds,omitempty" yaml:"delay_seconds,omitempty" mapstructure:"delay_seconds"`
}

// MediaKind is the provider media category.
type MediaKind string

const (
	MediaImage    MediaKind = "image"
	MediaVideo    MediaKind = "video"
	MediaDocument MediaKind = "document"
	MediaAudio    MediaKind = "audio"
)

// MediaPayload references pre-uploaded media to send with a caption.
type MediaPayload struct {
	MediaKind MediaKind `json:"media_kind" yaml:"media_kind" mapstructure:"media_kind"`
	MediaRef  string    `json:"media_ref" yaml:"media_ref" mapstructure:"media_ref"`
	Caption   string    `json:"caption,omitempty" yaml:"caption,omitempty" mapstructure:"caption"`
}

// MatchMode combines condition rules with AND (all) or OR (any).
type MatchMode string

const (
	MatchAll MatchMode = "all"
	MatchAny MatchMode = "any"
)

// RuleOperator compares a stored variable against a rule value.
type RuleOperator string

const (
	OpEquals      RuleOperator = "equals"
	OpNotEquals   RuleOperator = "not_equals"
	OpContains    RuleOperator = "contains"
	OpNotContains RuleOperator = "not_contains"
	OpExists      RuleOperator = "exists"
	OpNotExists   RuleOperator = "not_exists"
)

// NeedsValue reports whether the operator requires a comparison value.
func (op RuleOperator) NeedsValue() bool {
	switch op {
	case OpExists, OpNotExists:
		return false
	default:
		return true
	}
}

// Rule is a single comparison inside a condition node. Field names a
// variable in the instance's variable store.
type Rule struct {
	Field    string       `json:"field" yaml:"field" mapstructure:"field"`
	Operator RuleOperator `json:"operator" yaml:"operator" mapstructure:"operator"`
	Value    string       `json:"value,omitempty" yaml:"value,omitempty" mapstructure:"value"`
}

// ConditionPayload branches the flow on variable-store contents.
type ConditionPayload struct {
	Match MatchMode `json:"match" yaml:"match" mapstructure:"match"`
	Rules []Rule    `json:"rules" yaml:"rules" mapstructure:"rules"`
}

// ActionKind selects the terminal side effect of an action node.
type ActionKind string

const (
	ActionSendMessage ActionKind = "send_message"
	ActionFallbackAI  ActionKind = "fallback_ai"
	ActionEnd         ActionKind = "end"
)

// ActionPayload configures a terminal step. Every action kind ends the
// instance after its side effect, including fallback_ai.
type ActionPayload struct {
	ActionKind  ActionKind `json:"action_kind" yaml:"action_kind" mapstructure:"action_kind"`
	Message     string     `json:"message,omitempty" yaml:"message,omitempty" mapstructure:"message"`
	AssistantID string     `json:"assistant_id,omitempty" yaml:"assistant_id,omitempty" mapstructure:"assistant_id"`
}

// InputKind selects how a question_input node collects its answer.
type InputKind string

const (
	InputFreeText       InputKind = "free_text"
	InputMultipleChoice InputKind = "multiple_choice"
)

// QuestionInputPayload asks for an answer and stores it under Variable.
type QuestionInputPayload struct {
	Question string    `json:"question" yaml:"question" mapstructure:"question"`
	Variable string    `json:"variable" yaml:"variable" mapstructure:"variable"`
	Kind     InputKind `json:"input_kind" yaml:"input_kind" mapstructure:"input_kind"`
	Options  []Option  `json:"options,omitempty" yaml:"options,omitempty" mapstructure:"options"`
	Required bool      `json:"required,omitempty" yaml:"required,omitempty" mapstructure:"required"`
}

// WebhookConfig delivers accumulated answers after a sub-flow completes.
type WebhookConfig struct {
	Enabled         bool              `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	URL             string            `json:"url" yaml:"url" mapstructure:"url"`
	Method          string            `json:"method" yaml:"method" mapstructure:"method"`
	Headers         map[string]string `json:"headers,omitempty" yaml:"headers,omitempty" mapstructure:"headers"`
	IncludeMetadata bool              `json:"include_metadata,omitempty" yaml:"include_metadata,omitempty" mapstructure:"include_metadata"`
}

// UserInputFlowPayload marks the head of a data-collection sub-flow.
type UserInputFlowPayload struct {
	Name        string         `json:"name" yaml:"name" mapstructure:"name"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
	Webhook     *WebhookConfig `json:"webhook,omitempty" yaml:"webhook,omitempty" mapstructure:"webhook"`
}

// DelayUnit scales a sequence step delay.
type DelayUnit string

const (
	DelayMinutes DelayUnit = "minutes"
	DelayHours   DelayUnit = "hours"
	DelayDays    DelayUnit = "days"
)

// SequenceMessageKind distinguishes free text from provider templates.
// Steps delayed 24h or more must use a template (provider policy).
type SequenceMessageKind string

const (
	SequenceText     SequenceMessageKind = "text"
	SequenceTemplate SequenceMessageKind = "template"
)

// SequenceStep is one delayed message inside a sequence node.
type SequenceStep struct {
	ID          string              `json:"id" yaml:"id" mapstructure:"id"`
	DelayValue  int                 `json:"delay_value" yaml:"delay_value" mapstructure:"delay_value"`
	DelayUnit   DelayUnit           `json:"delay_unit" yaml:"delay_unit" mapstructure:"delay_unit"`
	MessageKind SequenceMessageKind `json:"message_kind" yaml:"message_kind" mapstructure:"message_kind"`
	Content     string              `json:"content" yaml:"content" mapstructure:"content"`
}

// Delay converts the step's delay value and unit into a duration.
func (s SequenceStep) Delay() time.Duration {
	switch s.DelayUnit {
	case DelayHours:
		return time.Duration(s.DelayValue) * time.Hour
	case DelayDays:
		return time.Duration(s.DelayValue) * 24 * time.Hour
	default:
		return time.Duration(s.DelayValue) * time.Minute
	}
}

// SequencePayload schedules follow-up messages out-of-band. The flow
// continues immediately; delivery is the scheduler's concern.
type SequencePayload struct {
	Steps []SequenceStep `json:"steps" yaml:"steps" mapstructure:"steps"`
}

// BodyKind describes how an http_api request body is encoded.
type BodyKind string

const (
	BodyJSON BodyKind = "json"
	BodyForm BodyKind = "form"
	BodyRaw  BodyKind = "raw"
)

// AuthType selects the authentication scheme for an http_api call.
type AuthType string

const (
	AuthNone   AuthType = "none"
	AuthBasic  AuthType = "basic"
	AuthBearer AuthType = "bearer"
	AuthAPIKey AuthType = "api_key"
)

// AuthSpec carries the credentials for an outbound call.
type AuthSpec struct {
	Type     AuthType `json:"type" yaml:"type" mapstructure:"type"`
	Username string   `json:"username,omitempty" yaml:"username,omitempty" mapstructure:"username"`
	Password string   `json:"password,omitempty" yaml:"password,omitempty" mapstructure:"password"`
	Token    string   `json:"token,omitempty" yaml:"token,omitempty" mapstructure:"token"`
	Header   string   `json:"header,omitempty" yaml:"header,omitempty" mapstructure:"header"`
}

// HTTPPayload configures an outbound API call. The response body is stored
// under Variable; the flow branches on the success/error handles.
type HTTPPayload struct {
	Method         string            `json:"method" yaml:"method" mapstructure:"method"`
	URL            string            `json:"url" yaml:"url" mapstructure:"url"`
	Headers        map[string]string `json:"headers,omitempty" yaml:"headers,omitempty" mapstructure:"headers"`
	Body           string            `json:"body,omitempty" yaml:"body,omitempty" mapstructure:"body"`
	BodyKind       BodyKind          `json:"body_kind,omitempty" yaml:"body_kind,omitempty" mapstructure:"body_kind"`
	Auth           *AuthSpec         `json:"auth,omitempty" yaml:"auth,omitempty" mapstructure:"auth"`
	TimeoutSeconds int               `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty" mapstructure:"timeout_seconds"`
	Variable       string            `json:"variable" yaml:"variable" mapstructure:"variable"`
}

// Timeout returns the configured per-call timeout, defaulting to 10s.
func (p *HTTPPayload) Timeout() time.Duration {
	if p.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// CTAButtonPayload is a content-only message with a single link button.
type CTAButtonPayload struct {
	Body        string `json:"body" yaml:"body" mapstructure:"body"`
	ButtonLabel string `json:"button_label" yaml:"button_label" mapstructure:"button_label"`
	URL         string `json:"url" yaml:"url" mapstructure:"url"`
	HeaderText  string `json:"header_text,omitempty" yaml:"header_text,omitempty" mapstructure:"header_text"`
	Footer      string `json:"footer,omitempty" yaml:"footer,omitempty" mapstructure:"footer"`
}
