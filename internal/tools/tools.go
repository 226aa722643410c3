// Package tools implements the filesystem, shell, and search executors the
// agent loop can dispatch.
//
// Executors are stateless; each call resolves its own paths against the
// working directory it was constructed with. Failures the model should see
// are returned as error-flagged tool results so the loop can feed them back
// as normal tool messages.
package tools

import (
	"encoding/json"

	"github.com/caretforge/caretforge/internal/agent"
)

// Config controls tool defaults.
type Config struct {
	// WorkDir is the directory relative paths resolve against.
	WorkDir string
}

// NewRegistry builds the fixed tool set advertised to the model.
func NewRegistry(cfg Config) *agent.ToolRegistry {
	registry := agent.NewToolRegistry()
	registry.Register(NewReadTool(cfg))
	registry.Register(NewWriteTool(cfg))
	registry.Register(NewEditTool(cfg))
	registry.Register(NewShellTool(cfg))
	registry.Register(NewGrepTool(cfg))
	registry.Register(NewGlobTool(cfg))
	return registry
}

// toolError wraps a message in an error-flagged result.
func toolError(message string) *agent.ToolResult {
	return &agent.ToolResult{Content: message, IsError: true}
}

// mustSchema marshals a schema map, falling back to a bare object schema.
func mustSchema(schema map[string]any) json.RawMessage {
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}
