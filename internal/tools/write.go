package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caretforge/caretforge/internal/agent"
)

// WriteTool creates or overwrites a file, creating parent directories as
// needed.
type WriteTool struct {
	workDir string
}

// NewWriteTool creates a write tool rooted at the working directory.
func NewWriteTool(cfg Config) *WriteTool {
	return &WriteTool{workDir: cfg.WorkDir}
}

func (t *WriteTool) Name() string {
	return "write_file"
}

func (t *WriteTool) Description() string {
	return "Write content to a file, creating it (and parent directories) or overwriting it."
}

func (t *WriteTool) Schema() json.RawMessage {
	return mustSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Path of the file to write.",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "Full file contents to write.",
			},
		},
		"required": []string{"path", "content"},
	})
}

func (t *WriteTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	_ = ctx
	var input struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}
	if strings.TrimSpace(input.Path) == "" {
		return toolError("path is required"), nil
	}

	resolved := resolvePath(t.workDir, input.Path)
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return toolError(fmt.Sprintf("create directory: %v", err)), nil
	}
	if err := os.WriteFile(resolved, []byte(input.Content), 0o644); err != nil {
		return toolError(fmt.Sprintf("write %s: %v", input.Path, err)), nil
	}

	abs, err := filepath.Abs(resolved)
	if err != nil {
		abs = resolved
	}
	return &agent.ToolResult{
		Content: fmt.Sprintf("Wrote %d lines to %s", countLines(input.Content), abs),
	}, nil
}

// countLines counts newline-terminated lines, with a trailing partial line
// counting as one.
func countLines(content string) int {
	if content == "" {
		return 0
	}
	n := strings.Count(content, "\n")
	if !strings.HasSuffix(content, "\n") {
		n++
	}
	return n
}
