package models

// ToolCallDelta is a partial tool call carried by a stream chunk.
//
// Adapters normalize their wire-level keying (sequential index, content-block
// index, or item id) to Index, assigned in order of first appearance, so the
// consumer's reassembly code is identical across providers.
type ToolCallDelta struct {
	// Index keys fragments that belong to the same tool call.
	Index int `json:"index"`

	// ID is set on the first fragment that carries one; later values for the
	// same index are ignored by the assembler.
	ID string `json:"id,omitempty"`

	// Name is appended to the accumulated function name.
	Name string `json:"name,omitempty"`

	// Arguments is appended to the accumulated arguments JSON fragment.
	Arguments string `json:"arguments,omitempty"`
}

// StreamDelta is the incremental payload of one stream chunk.
type StreamDelta struct {
	Role      string          `json:"role,omitempty"`
	Content   string          `json:"content,omitempty"`
	ToolCalls []ToolCallDelta `json:"tool_calls,omitempty"`
}

// StreamChunk is one element of a streaming chat completion.
//
// The sequence is lazy, finite, and non-restartable: consumers must drain the
// channel to completion. A non-nil Err terminates the stream.
type StreamChunk struct {
	Delta        StreamDelta `json:"delta"`
	FinishReason string      `json:"finish_reason,omitempty"`
	Usage        *Usage      `json:"usage,omitempty"`
	Err          error       `json:"-"`
}
