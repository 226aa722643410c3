package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func mustParams(t *testing.T, v any) json.RawMessage {
	t.Helper()
	payload, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}
	return payload
}

func TestReadToolRoundTrip(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello\nworld\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tool := NewReadTool(Config{WorkDir: dir})
	res, err := tool.Execute(context.Background(), mustParams(t, map[string]any{"path": "a.txt"}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError || res.Content != "hello\nworld\n" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestReadToolMissingFile(t *testing.T) {
	tool := NewReadTool(Config{WorkDir: t.TempDir()})
	res, err := tool.Execute(context.Background(), mustParams(t, map[string]any{"path": "missing.txt"}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError || !strings.Contains(res.Content, "missing.txt") {
		t.Fatalf("expected error naming the path, got %+v", res)
	}
}

func TestWriteToolCreatesParentsAndReportsLines(t *testing.T) {
	dir := t.TempDir()
	tool := NewWriteTool(Config{WorkDir: dir})

	res, err := tool.Execute(context.Background(), mustParams(t, map[string]any{
		"path":    "nested/dir/out.txt",
		"content": "one\ntwo\nthree",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", res.Content)
	}
	if !strings.HasPrefix(res.Content, "Wrote 3 lines to ") {
		t.Fatalf("unexpected result text: %q", res.Content)
	}
	data, err := os.ReadFile(filepath.Join(dir, "nested", "dir", "out.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "one\ntwo\nthree" {
		t.Fatalf("unexpected file contents: %q", data)
	}
}

func TestEditToolAmbiguousMatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(path, []byte("aaa\nbbb\naaa"), 0o644); err != nil {
		t.Fatal(err)
	}

	tool := NewEditTool(Config{WorkDir: dir})
	res, err := tool.Execute(context.Background(), mustParams(t, map[string]any{
		"path": "f.txt", "old_string": "aaa", "new_string": "z",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError || !strings.Contains(res.Content, "matches 2 locations") {
		t.Fatalf("expected ambiguity error, got %+v", res)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "aaa\nbbb\naaa" {
		t.Fatalf("file must be unchanged, got %q", data)
	}

	res, err = tool.Execute(context.Background(), mustParams(t, map[string]any{
		"path": "f.txt", "old_string": "aaa", "new_string": "z", "replace_all": true,
	}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", res.Content)
	}
	if !strings.Contains(res.Content, "replaced 2 occurrences") {
		t.Fatalf("expected occurrence count in result, got %q", res.Content)
	}
	data, _ = os.ReadFile(path)
	if string(data) != "z\nbbb\nz" {
		t.Fatalf("unexpected file contents after replace_all: %q", data)
	}
}

func TestEditToolNotFound(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "f.txt"), []byte("abc"), 0o644); err != nil {
		t.Fatal(err)
	}
	tool := NewEditTool(Config{WorkDir: dir})
	res, err := tool.Execute(context.Background(), mustParams(t, map[string]any{
		"path": "f.txt", "old_string": "zzz", "new_string": "x",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError || !strings.Contains(res.Content, "not found") {
		t.Fatalf("expected not-found error, got %+v", res)
	}
}

func TestEditToolSingleMatchDiff(t *testing.T) {
	dir := t.TempDir()
	content := "l1\nl2\nl3\nTARGET\nl5\nl6\nl7\n"
	if err := os.WriteFile(filepath.Join(dir, "f.txt"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	tool := NewEditTool(Config{WorkDir: dir})
	res, err := tool.Execute(context.Background(), mustParams(t, map[string]any{
		"path": "f.txt", "old_string": "TARGET", "new_string": "done",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", res.Content)
	}
	for _, want := range []string{"replaced 1 occurrence", "TARGET", "done", "l1", "l7"} {
		if !strings.Contains(res.Content, want) {
			t.Errorf("result missing %q:\n%s", want, res.Content)
		}
	}
}

func TestShellToolCapturesStreamsAndExitCode(t *testing.T) {
	tool := NewShellTool(Config{WorkDir: t.TempDir()})
	res, err := tool.Execute(context.Background(), mustParams(t, map[string]any{
		"command": "echo out; echo err 1>&2; exit 3",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", res.Content)
	}
	var parsed shellResult
	if err := json.Unmarshal([]byte(res.Content), &parsed); err != nil {
		t.Fatalf("result is not JSON: %v\n%s", err, res.Content)
	}
	if parsed.Stdout != "out" || parsed.Stderr != "err" || parsed.ExitCode != 3 {
		t.Fatalf("unexpected shell result: %+v", parsed)
	}
}

func TestShellToolTimeout(t *testing.T) {
	tool := NewShellTool(Config{WorkDir: t.TempDir()})
	res, err := tool.Execute(context.Background(), mustParams(t, map[string]any{
		"command": "sleep 5", "timeout": 1,
	}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError || !strings.Contains(res.Content, "timed out") {
		t.Fatalf("expected timeout error, got %+v", res)
	}
}

func TestGrepToolEmptyPattern(t *testing.T) {
	tool := NewGrepTool(Config{WorkDir: t.TempDir()})
	res, err := tool.Execute(context.Background(), mustParams(t, map[string]any{"pattern": ""}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Fatal("empty pattern must be a tool error")
	}
}

func TestGlobToolMatchesAndSorts(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.go", "b.go", "c.txt", "sub/d.go"} {
		full := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	tool := NewGlobTool(Config{WorkDir: dir})
	res, err := tool.Execute(context.Background(), mustParams(t, map[string]any{"pattern": "**/*.go"}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", res.Content)
	}
	got := strings.Split(res.Content, "\n")
	if len(got) != 3 {
		t.Fatalf("expected 3 matches, got %v", got)
	}
	for _, p := range got {
		if !strings.HasSuffix(p, ".go") {
			t.Errorf("non-.go match %q", p)
		}
	}
}

func TestGlobToRegexp(t *testing.T) {
	cases := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"*.go", "main.go", true},
		{"*.go", "sub/main.go", false},
		{"**/*.go", "sub/main.go", true},
		{"**/*.go", "main.go", true},
		{"src/**", "src/a/b/c.txt", true},
		{"a?c.txt", "abc.txt", true},
		{"a?c.txt", "ab/c.txt", false},
	}
	for _, tc := range cases {
		re, err := globToRegexp(tc.pattern)
		if err != nil {
			t.Fatalf("compile %q: %v", tc.pattern, err)
		}
		if got := re.MatchString(tc.path); got != tc.want {
			t.Errorf("glob %q vs %q = %v, want %v", tc.pattern, tc.path, got, tc.want)
		}
	}
}

func TestRegistryDefinitionsComplete(t *testing.T) {
	registry := NewRegistry(Config{WorkDir: t.TempDir()})
	defs := registry.Definitions()
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	want := []string{"edit_file", "exec_shell", "glob_find", "grep_search", "read_file", "write_file"}
	if fmt.Sprint(names) != fmt.Sprint(want) {
		t.Fatalf("definitions = %v, want %v", names, want)
	}
}
