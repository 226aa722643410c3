package agent

import "github.com/caretforge/caretforge/pkg/models"

// toolCallAssembler reassembles full tool calls from streamed fragments.
//
// Fragments are keyed by the index their adapter assigned; the assembler
// tracks indexes in order of first appearance so the final list preserves the
// model's emission order. Name and arguments fragments are concatenated; the
// first fragment carrying a non-empty id fixes the id for that index.
type toolCallAssembler struct {
	order []int
	calls map[int]*models.ToolCall
}

func newToolCallAssembler() *toolCallAssembler {
	return &toolCallAssembler{calls: make(map[int]*models.ToolCall)}
}

// Add merges one fragment into the accumulated state.
func (a *toolCallAssembler) Add(delta models.ToolCallDelta) {
	tc, ok := a.calls[delta.Index]
	if !ok {
		tc = &models.ToolCall{}
		a.calls[delta.Index] = tc
		a.order = append(a.order, delta.Index)
	}
	if delta.ID != "" && tc.ID == "" {
		tc.ID = delta.ID
	}
	tc.Name += delta.Name
	tc.Arguments += delta.Arguments
}

// Assembled returns the fully reassembled tool calls in first-seen order.
// Fragments that never produced a name are dropped; reassembly is only
// complete once the stream has ended.
func (a *toolCallAssembler) Assembled() []models.ToolCall {
	out := make([]models.ToolCall, 0, len(a.order))
	for _, idx := range a.order {
		tc := a.calls[idx]
		if tc.Name == "" {
			continue
		}
		out = append(out, *tc)
	}
	return out
}
