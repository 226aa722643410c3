package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/caretforge/caretforge/internal/agent"
)

const grepMaxLines = 200

// GrepTool searches file contents with ripgrep, falling back to system grep
// when ripgrep cannot be launched.
type GrepTool struct {
	workDir string
}

// NewGrepTool creates a grep tool rooted at the working directory.
func NewGrepTool(cfg Config) *GrepTool {
	return &GrepTool{workDir: cfg.WorkDir}
}

func (t *GrepTool) Name() string {
	return "grep_search"
}

func (t *GrepTool) Description() string {
	return "Search file contents for a pattern using ripgrep (or grep)."
}

func (t *GrepTool) Schema() json.RawMessage {
	return mustSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"pattern": map[string]any{
				"type":        "string",
				"description": "Regular expression to search for.",
			},
			"path": map[string]any{
				"type":        "string",
				"description": "Directory or file to search (default: working directory).",
			},
			"include": map[string]any{
				"type":        "string",
				"description": "Glob restricting the files searched, e.g. *.go.",
			},
		},
		"required": []string{"pattern"},
	})
}

func (t *GrepTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		Pattern string `json:"pattern"`
		Path    string `json:"path"`
		Include string `json:"include"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}
	if input.Pattern == "" {
		return toolError("pattern is required"), nil
	}

	searchPath := t.workDir
	if input.Path != "" {
		searchPath = resolvePath(t.workDir, input.Path)
	}

	output, err := t.runRipgrep(ctx, input.Pattern, searchPath, input.Include)
	if err != nil {
		output, err = t.runGrep(ctx, input.Pattern, searchPath, input.Include)
		if err != nil {
			return toolError(fmt.Sprintf("search failed: %v", err)), nil
		}
	}

	if strings.TrimSpace(output) == "" {
		return &agent.ToolResult{Content: "No matches found."}, nil
	}
	return &agent.ToolResult{Content: capLines(output, grepMaxLines)}, nil
}

func (t *GrepTool) runRipgrep(ctx context.Context, pattern, path, include string) (string, error) {
	args := []string{"--line-number", "--max-count", "500"}
	if include != "" {
		args = append(args, "--glob", include)
	}
	args = append(args, pattern, path)
	return runSearch(ctx, "rg", args)
}

func (t *GrepTool) runGrep(ctx context.Context, pattern, path, include string) (string, error) {
	args := []string{"-rn"}
	if include != "" {
		args = append(args, "--include", include)
	}
	args = append(args, pattern, path)
	return runSearch(ctx, "grep", args)
}

// runSearch runs a search binary, treating exit code 1 (no matches) as an
// empty result rather than a failure.
func runSearch(ctx context.Context, bin string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return "", nil
		}
		return "", err
	}
	return stdout.String(), nil
}

// capLines truncates output to max lines with a truncation header.
func capLines(output string, max int) string {
	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	if len(lines) <= max {
		return strings.Join(lines, "\n")
	}
	header := fmt.Sprintf("[showing first %d of %d matching lines]\n", max, len(lines))
	return header + strings.Join(lines[:max], "\n")
}
