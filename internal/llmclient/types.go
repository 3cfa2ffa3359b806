// Package llmclient wraps an OpenAI-compatible chat completions endpoint,
// classifying each response into a plain message, one or more tool calls,
// or a structured JSON object, and retrying transient failures with
// exponential backoff.
package llmclient

import "encoding/json"

// Role identifies the speaker of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one portable chat turn. ToolCalls is set on assistant
// messages that invoked tools; ToolCallID is set on tool-result messages
// replying to one of those calls.
type Message struct {
	Role       Role
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
}

// ToolCall is one function invocation the model requested.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// ToolSchema describes one tool the model may call.
type ToolSchema struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToolChoice constrains which (if any) tool the model must call.
type ToolChoice struct {
	// Mode is "auto", "none", "required", or "function".
	Mode Mode

	// FunctionName names the single tool to force when Mode is
	// ToolChoiceFunction.
	FunctionName string
}

// Mode enumerates ToolChoice's forcing behavior.
type Mode string

const (
	ToolChoiceAuto     Mode = "auto"
	ToolChoiceNone     Mode = "none"
	ToolChoiceRequired Mode = "required"
	ToolChoiceFunction Mode = "function"
)

// ResponseFormat requests a constrained output shape from the model.
type ResponseFormat struct {
	// JSONSchemaName and JSONSchema, when JSONSchema is non-nil, request
	// response_format: json_schema with the given schema.
	JSONSchemaName string
	JSONSchema     map[string]any
}

// Request is one call to Complete.
type Request struct {
	Messages       []Message
	Tools          []ToolSchema
	Model          string
	ToolChoice     *ToolChoice
	Temperature    *float64
	MaxTokens      *int
	ResponseFormat *ResponseFormat
}

// Kind classifies a Response.
type Kind string

const (
	KindMessage    Kind = "message"
	KindTool       Kind = "tool"
	KindStructured Kind = "structured"
)

// Response is the classified result of a Complete call.
type Response struct {
	Kind Kind

	// Content carries the message text for KindMessage, and the raw JSON
	// text for KindStructured.
	Content string

	// Structured is the parsed object for KindStructured.
	Structured map[string]any

	ToolCalls []ToolCall

	// CostUSD is populated when the endpoint reports usage-based cost.
	CostUSD float64
}
