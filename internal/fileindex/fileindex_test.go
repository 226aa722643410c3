package fileindex

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		full := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestBuildWalkFiltersBinaryAndLarge(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"main.go":                 "package main\n",
		"README.md":               "# readme\n",
		"Makefile":                "all:\n",
		"image.png":               "\x89PNG",
		"sub/thing.ts":            "export {}\n",
		".hidden/a.go":            "package a\n",
		"node_modules/x/index.js": "module.exports = 1\n",
	})
	if err := os.WriteFile(filepath.Join(root, "big.txt"), make([]byte, MaxFileSize+1), 0o644); err != nil {
		t.Fatal(err)
	}

	idx, err := New(root).Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"Makefile", "README.md", "main.go", "sub/thing.ts"}
	if strings.Join(idx.Paths, ",") != strings.Join(want, ",") {
		// git discovery may see the same tree; accept either method but the
		// same path set.
		t.Fatalf("paths = %v, want %v (method=%s)", idx.Paths, want, idx.Stats.Method)
	}
	if idx.Stats.SkippedBinary == 0 {
		t.Error("expected png counted as skippedBinary")
	}
	if idx.Stats.SkippedLarge == 0 {
		t.Error("expected oversized file counted as skippedLarge")
	}
	if idx.Stats.Indexed != len(idx.Paths) {
		t.Errorf("Indexed = %d, want %d", idx.Stats.Indexed, len(idx.Paths))
	}
}

func TestBuildHonorsCaretforgeignore(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		".caretforgeignore": "secrets.txt\ngenerated/\n*.min.js\n",
		"keep.go":           "package keep\n",
		"secrets.txt":       "hunter2\n",
		"generated/a.go":    "package a\n",
		"app.min.js":        "x\n",
	})

	idx, err := New(root).Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range idx.Paths {
		switch {
		case p == "secrets.txt", strings.HasPrefix(p, "generated/"), strings.HasSuffix(p, ".min.js"):
			t.Errorf("ignored path %q leaked into index", p)
		}
	}
	if !idx.Contains("keep.go") {
		t.Errorf("keep.go missing from index: %v", idx.Paths)
	}
	if idx.Stats.SkippedIgnored == 0 {
		t.Error("expected skippedIgnored > 0")
	}
}

func TestWalkDepthLimit(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a/b/c/d/deep.go":  "package deep\n",
		"a/b/c/d/e/far.go": "package far\n",
		"shallow.go":       "package shallow\n",
	})

	idx := &Index{Root: root}
	idx.Stats.Method = "walk"
	ix := New(root)
	ix.walkInto(idx, loadIgnoreFile(filepath.Join(root, ".caretforgeignore")), time.Now().Add(time.Hour))

	joined := strings.Join(idx.Paths, ",")
	if !strings.Contains(joined, "shallow.go") || !strings.Contains(joined, "a/b/c/d/deep.go") {
		t.Fatalf("expected files within depth 4, got %v", idx.Paths)
	}
	if strings.Contains(joined, "far.go") {
		t.Fatalf("depth-5 file should be excluded, got %v", idx.Paths)
	}
}

func TestWalkChecksSymlinkTargetSize(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"keep.go":        "package keep\n",
		".data/small.md": "# small\n",
	})
	if err := os.WriteFile(filepath.Join(root, ".data", "big.txt"), make([]byte, MaxFileSize+1), 0o644); err != nil {
		t.Fatal(err)
	}
	// Targets live in a hidden dir so only the links are walked.
	if err := os.Symlink(filepath.Join(root, ".data", "big.txt"), filepath.Join(root, "link.txt")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if err := os.Symlink(filepath.Join(root, ".data", "small.md"), filepath.Join(root, "link.md")); err != nil {
		t.Fatal(err)
	}

	idx := &Index{Root: root}
	idx.Stats.Method = "walk"
	New(root).walkInto(idx, loadIgnoreFile(filepath.Join(root, ".caretforgeignore")), time.Now().Add(time.Hour))

	if idx.Contains("link.txt") {
		t.Fatalf("symlink to oversized target leaked into index: %v", idx.Paths)
	}
	if idx.Stats.SkippedLarge == 0 {
		t.Error("oversized symlink target not counted as skippedLarge")
	}
	if !idx.Contains("link.md") {
		t.Errorf("symlink to small text file missing: %v", idx.Paths)
	}
}

func TestExpandRefs(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"notes.md": "first\nsecond\n",
	})
	idx, err := New(root).Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	refs, enriched := idx.ExpandRefs("summarize @notes.md please")
	if len(refs) != 1 {
		t.Fatalf("expected one ref, got %v", refs)
	}
	if refs[0].Path != "notes.md" || refs[0].Truncated {
		t.Fatalf("unexpected ref: %+v", refs[0])
	}
	if !strings.HasPrefix(enriched, "[File: notes.md]\nfirst\nsecond\n") {
		t.Fatalf("enriched prompt missing file block:\n%s", enriched)
	}
	if !strings.HasSuffix(enriched, "summarize notes.md please") {
		t.Fatalf("@ref not rewritten to bare path:\n%s", enriched)
	}
}

func TestExpandRefsTruncatesLongLines(t *testing.T) {
	root := t.TempDir()
	long := strings.Repeat("x", maxLineChars+10)
	writeTree(t, root, map[string]string{"long.txt": long + "\n"})
	idx, err := New(root).Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	refs, _ := idx.ExpandRefs("@long.txt")
	if len(refs) != 1 || !refs[0].Truncated {
		t.Fatalf("expected truncated ref, got %+v", refs)
	}
	firstLine := strings.SplitN(refs[0].Content, "\n", 2)[0]
	if !strings.HasSuffix(firstLine, "…") {
		t.Error("truncated line missing ellipsis")
	}
	if len(firstLine) > maxLineChars+len("…") {
		t.Errorf("line not capped: %d chars", len(firstLine))
	}
}

func TestExpandRefsUnknownPathUntouched(t *testing.T) {
	idx := &Index{Root: t.TempDir()}
	refs, enriched := idx.ExpandRefs("look at @does/not/exist.go")
	if len(refs) != 0 || enriched != "look at @does/not/exist.go" {
		t.Fatalf("unresolvable ref must be left alone, got refs=%v prompt=%q", refs, enriched)
	}
}

func TestCompleteRef(t *testing.T) {
	idx := &Index{Paths: []string{"cmd/main.go", "internal/agent/loop.go", "internal/tools/read.go"}}

	got := idx.CompleteRef("read @internal/")
	if len(got) != 2 {
		t.Fatalf("expected two completions, got %v", got)
	}
	for _, c := range got {
		if !strings.HasPrefix(c, "@internal/") {
			t.Errorf("completion %q missing @ prefix", c)
		}
	}

	if got := idx.CompleteRef("no token here"); got != nil {
		t.Errorf("expected no completions, got %v", got)
	}
	if got := idx.CompleteRef("after @cmd stop "); got != nil {
		t.Errorf("whitespace after token must disable completion, got %v", got)
	}
}
