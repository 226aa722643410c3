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

// ReadTool reads a whole file as UTF-8 text. Always allowed.
type ReadTool struct {
	workDir string
}

// NewReadTool creates a read tool rooted at the working directory.
func NewReadTool(cfg Config) *ReadTool {
	return &ReadTool{workDir: cfg.WorkDir}
}

func (t *ReadTool) Name() string {
	return "read_file"
}

func (t *ReadTool) Description() string {
	return "Read the entire contents of a file as UTF-8 text."
}

func (t *ReadTool) Schema() json.RawMessage {
	return mustSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Path to the file to read.",
			},
		},
		"required": []string{"path"},
	})
}

func (t *ReadTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	_ = ctx
	var input struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}
	if strings.TrimSpace(input.Path) == "" {
		return toolError("path is required"), nil
	}

	resolved := resolvePath(t.workDir, input.Path)
	data, err := os.ReadFile(resolved)
	if err != nil {
		return toolError(fmt.Sprintf("read %s: %v", input.Path, err)), nil
	}
	return &agent.ToolResult{Content: string(data)}, nil
}

// resolvePath resolves a possibly-relative path against the working directory.
func resolvePath(workDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~/"))
		}
	}
	return filepath.Join(workDir, path)
}
