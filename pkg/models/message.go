// Package models defines the canonical data model shared by the agent loop,
// the provider adapters, and the CLI driver.
//
// Providers translate these types to and from their wire formats; nothing in
// this package knows about any particular backend.
package models

import "encoding/json"

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a model-emitted request to invoke a named function.
//
// Arguments is kept as an opaque string because providers stream it as a
// concatenated JSON fragment; only the tool executor parses it, so malformed
// JSON from the model becomes a tool error rather than a transport error.
type ToolCall struct {
	// ID is the provider-assigned identifier used to match tool results.
	ID string `json:"id"`

	// Name is the function name the model wants to invoke.
	Name string `json:"name"`

	// Arguments carries a JSON object encoded as a string.
	Arguments string `json:"arguments"`
}

// Message is a single entry in a conversation.
type Message struct {
	// Role is one of system, user, assistant, or tool.
	Role Role `json:"role"`

	// Content is the text content (may be empty for tool-call-only messages).
	Content string `json:"content"`

	// ToolCallID links a tool message to the assistant tool call it answers.
	// Set iff Role is RoleTool.
	ToolCallID string `json:"tool_call_id,omitempty"`

	// ToolCalls holds the ordered tool calls of an assistant message.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// ToolDefinition describes a callable tool advertised to the model.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Schema      json.RawMessage `json:"schema"`
}

// Usage reports token accounting for a completed turn, when the provider
// supplies it.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ModelInfo describes a model a provider can serve.
type ModelInfo struct {
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`
}
