package agent

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/caretforge/caretforge/pkg/models"
)

// Tool is an executable capability the model can request.
type Tool interface {
	// Name returns the tool name advertised to the model.
	Name() string

	// Description returns the human description advertised to the model.
	Description() string

	// Schema returns the JSON schema of the arguments object.
	Schema() json.RawMessage

	// Execute runs the tool with the given JSON arguments. Failures the model
	// should see are returned as a ToolResult with IsError set; a non-nil
	// error is still converted to a tool result by the loop, never propagated.
	Execute(ctx context.Context, params json.RawMessage) (*ToolResult, error)
}

// ToolResult is the outcome of one tool execution.
type ToolResult struct {
	Content string `json:"content"`
	IsError bool   `json:"is_error,omitempty"`
}

// ToolRegistry holds the fixed tool set advertised to the model.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewToolRegistry creates an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]Tool)}
}

// Register adds a tool, replacing any previous tool with the same name.
func (r *ToolRegistry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Get returns the named tool, or nil.
func (r *ToolRegistry) Get(name string) Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Definitions returns the tool-definition set in name order.
func (r *ToolRegistry) Definitions() []models.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]models.ToolDefinition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, models.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Schema:      t.Schema(),
		})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}
