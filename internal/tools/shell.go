package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/caretforge/caretforge/internal/agent"
)

// DefaultShellTimeout bounds shell executions that do not override it.
// Design constant, not user-tunable.
const DefaultShellTimeout = 30 * time.Second

// ShellTool spawns a shell command with captured output and a timeout.
type ShellTool struct {
	workDir string
}

// NewShellTool creates a shell tool rooted at the working directory.
func NewShellTool(cfg Config) *ShellTool {
	return &ShellTool{workDir: cfg.WorkDir}
}

func (t *ShellTool) Name() string {
	return "exec_shell"
}

func (t *ShellTool) Description() string {
	return "Run a shell command and return its stdout, stderr, and exit code as JSON."
}

func (t *ShellTool) Schema() json.RawMessage {
	return mustSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command": map[string]any{
				"type":        "string",
				"description": "Shell command to execute.",
			},
			"cwd": map[string]any{
				"type":        "string",
				"description": "Working directory for the command.",
			},
			"timeout": map[string]any{
				"type":        "integer",
				"description": "Timeout in seconds (default: 30).",
				"minimum":     1,
			},
		},
		"required": []string{"command"},
	})
}

// shellResult is the JSON payload returned to the model.
type shellResult struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exitCode"`
}

func (t *ShellTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		Command string `json:"command"`
		Cwd     string `json:"cwd"`
		Timeout int    `json:"timeout"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}
	if strings.TrimSpace(input.Command) == "" {
		return toolError("command is required"), nil
	}

	timeout := DefaultShellTimeout
	if input.Timeout > 0 {
		timeout = time.Duration(input.Timeout) * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "sh", "-c", input.Command)
	cmd.Dir = t.workDir
	if input.Cwd != "" {
		cmd.Dir = resolvePath(t.workDir, input.Cwd)
	}
	// No interactive input: commands that read stdin see EOF immediately.
	cmd.Stdin = nil

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	exitCode := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.Is(runCtx.Err(), context.DeadlineExceeded):
			return toolError(fmt.Sprintf("command timed out after %s", timeout)), nil
		case errors.As(runErr, &exitErr):
			exitCode = exitErr.ExitCode()
		default:
			return toolError(fmt.Sprintf("spawn shell: %v", runErr)), nil
		}
	}

	payload, err := json.Marshal(shellResult{
		Stdout:   strings.TrimSpace(stdout.String()),
		Stderr:   strings.TrimSpace(stderr.String()),
		ExitCode: exitCode,
	})
	if err != nil {
		return toolError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return &agent.ToolResult{Content: string(payload)}, nil
}
