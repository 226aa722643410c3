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

// EditTool performs an exact-string replacement in a file. The target string
// must match exactly once unless replace_all is set.
type EditTool struct {
	workDir string
}

// NewEditTool creates an edit tool rooted at the working directory.
func NewEditTool(cfg Config) *EditTool {
	return &EditTool{workDir: cfg.WorkDir}
}

func (t *EditTool) Name() string {
	return "edit_file"
}

func (t *EditTool) Description() string {
	return "Replace an exact string in a file. The string must occur exactly once unless replace_all is true."
}

func (t *EditTool) Schema() json.RawMessage {
	return mustSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Path of the file to edit.",
			},
			"old_string": map[string]any{
				"type":        "string",
				"description": "Exact text to replace.",
			},
			"new_string": map[string]any{
				"type":        "string",
				"description": "Replacement text.",
			},
			"replace_all": map[string]any{
				"type":        "boolean",
				"description": "Replace every occurrence (default: false).",
			},
		},
		"required": []string{"path", "old_string", "new_string"},
	})
}

func (t *EditTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	_ = ctx
	var input struct {
		Path       string `json:"path"`
		OldString  string `json:"old_string"`
		NewString  string `json:"new_string"`
		ReplaceAll bool   `json:"replace_all"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}
	if strings.TrimSpace(input.Path) == "" {
		return toolError("path is required"), nil
	}
	if input.OldString == "" {
		return toolError("old_string is required"), nil
	}

	resolved := resolvePath(t.workDir, input.Path)
	data, err := os.ReadFile(resolved)
	if err != nil {
		return toolError(fmt.Sprintf("read %s: %v", input.Path, err)), nil
	}
	content := string(data)

	count := strings.Count(content, input.OldString)
	if count == 0 {
		return toolError(fmt.Sprintf("old_string not found in %s", input.Path)), nil
	}
	if count > 1 && !input.ReplaceAll {
		return toolError(fmt.Sprintf("old_string matches %d locations in %s; pass replace_all to replace every occurrence", count, input.Path)), nil
	}

	replaced := count
	var updated string
	if input.ReplaceAll {
		updated = strings.ReplaceAll(content, input.OldString, input.NewString)
	} else {
		updated = strings.Replace(content, input.OldString, input.NewString, 1)
		replaced = 1
	}

	if err := os.WriteFile(resolved, []byte(updated), 0o644); err != nil {
		return toolError(fmt.Sprintf("write %s: %v", input.Path, err)), nil
	}

	abs, err := filepath.Abs(resolved)
	if err != nil {
		abs = resolved
	}
	lineDelta := countLines(updated) - countLines(content)

	var b strings.Builder
	fmt.Fprintf(&b, "Edited %s: replaced %d occurrence%s (%+d lines)\n", abs, replaced, plural(replaced), lineDelta)
	b.WriteString(contextDiff(content, updated, input.OldString))
	return &agent.ToolResult{Content: b.String()}, nil
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// contextDiff renders old and new lines around the first replacement site
// with three lines of surrounding context.
func contextDiff(oldContent, newContent, oldString string) string {
	offset := strings.Index(oldContent, oldString)
	if offset < 0 {
		return ""
	}
	line := strings.Count(oldContent[:offset], "\n")

	oldLines := strings.Split(oldContent, "\n")
	newLines := strings.Split(newContent, "\n")

	var b strings.Builder
	b.WriteString("---\n")
	writeRegion(&b, oldLines, line, "- ")
	b.WriteString("+++\n")
	writeRegion(&b, newLines, line, "+ ")
	return b.String()
}

func writeRegion(b *strings.Builder, lines []string, center int, prefix string) {
	start := center - 3
	if start < 0 {
		start = 0
	}
	end := center + 4
	if end > len(lines) {
		end = len(lines)
	}
	for i := start; i < end; i++ {
		marker := "  "
		if i == center {
			marker = prefix
		}
		fmt.Fprintf(b, "%s%d\t%s\n", marker, i+1, lines[i])
	}
}
