package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/caretforge/caretforge/internal/agent"
)

const globMaxEntries = 200

// GlobTool enumerates files matching a glob pattern, newest first.
type GlobTool struct {
	workDir string
}

// NewGlobTool creates a glob tool rooted at the working directory.
func NewGlobTool(cfg Config) *GlobTool {
	return &GlobTool{workDir: cfg.WorkDir}
}

func (t *GlobTool) Name() string {
	return "glob_find"
}

func (t *GlobTool) Description() string {
	return "Find files matching a glob pattern (supports **, *, ?), sorted by modification time."
}

func (t *GlobTool) Schema() json.RawMessage {
	return mustSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"pattern": map[string]any{
				"type":        "string",
				"description": "Glob pattern, e.g. **/*.go or src/*.ts.",
			},
			"path": map[string]any{
				"type":        "string",
				"description": "Root directory to search (default: working directory).",
			},
		},
		"required": []string{"pattern"},
	})
}

func (t *GlobTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		Pattern string `json:"pattern"`
		Path    string `json:"path"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}
	if strings.TrimSpace(input.Pattern) == "" {
		return toolError("pattern is required"), nil
	}

	root := t.workDir
	if input.Path != "" {
		root = resolvePath(t.workDir, input.Path)
	}

	re, err := globToRegexp(input.Pattern)
	if err != nil {
		return toolError(fmt.Sprintf("invalid pattern: %v", err)), nil
	}

	type entry struct {
		path  string
		mtime time.Time
	}
	var matches []entry

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if !re.MatchString(rel) {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.Mode().IsRegular() {
			return nil
		}
		matches = append(matches, entry{path: rel, mtime: info.ModTime()})
		return nil
	})
	if walkErr != nil && ctx.Err() != nil {
		return toolError("search cancelled"), nil
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].mtime.After(matches[j].mtime) })
	if len(matches) > globMaxEntries {
		matches = matches[:globMaxEntries]
	}
	if len(matches) == 0 {
		return &agent.ToolResult{Content: "No files matched."}, nil
	}

	paths := make([]string, len(matches))
	for i, m := range matches {
		paths[i] = m.path
	}
	return &agent.ToolResult{Content: strings.Join(paths, "\n")}, nil
}

// globToRegexp compiles a glob with **, *, and ? into an anchored regexp
// over slash-separated relative paths.
func globToRegexp(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch c {
		case '*':
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				// ** spans path separators; swallow a following slash so
				// "**/x" also matches a top-level "x".
				if i+2 < len(pattern) && pattern[i+2] == '/' {
					b.WriteString(`(?:.*/)?`)
					i += 2
				} else {
					b.WriteString(`.*`)
					i++
				}
			} else {
				b.WriteString(`[^/]*`)
			}
		case '?':
			b.WriteString(`[^/]`)
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}
