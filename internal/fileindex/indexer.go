// Package fileindex discovers text files in a working directory and expands
// @path references in prompts against that index.
package fileindex

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	// MaxIndexedFiles caps how many entries the index holds.
	MaxIndexedFiles = 5000
	// MaxFileSize is the per-file size cutoff for indexing.
	MaxFileSize = 1 << 20 // 1 MiB
	// IndexDeadline bounds a full discovery pass.
	IndexDeadline = 10 * time.Second
	// maxWalkDepth bounds directory recursion when git is unavailable.
	maxWalkDepth = 4
)

// skipDirs are build and dependency directories never descended into during
// a filesystem walk. git discovery honors .gitignore instead.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"dist":         true,
	"build":        true,
	"target":       true,
	"out":          true,
	"vendor":       true,
	"venv":         true,
	".venv":        true,
	"__pycache__":  true,
	".idea":        true,
	".vscode":      true,
}

// Stats reports what a discovery pass saw and skipped.
type Stats struct {
	Indexed        int    `json:"indexed"`
	SkippedBinary  int    `json:"skippedBinary"`
	SkippedLarge   int    `json:"skippedLarge"`
	SkippedIgnored int    `json:"skippedIgnored"`
	Method         string `json:"method"` // "git" or "walk"
	TimedOut       bool   `json:"timedOut"`
}

// Index holds the discovered file paths, relative to the root.
type Index struct {
	Root  string
	Paths []string
	Stats Stats
}

// Indexer discovers indexable files under a root directory.
type Indexer struct {
	root   string
	logger *slog.Logger
}

// New creates an indexer rooted at dir.
func New(dir string) *Indexer {
	return &Indexer{
		root:   dir,
		logger: slog.Default().With("component", "fileindex"),
	}
}

// Build runs a discovery pass. git ls-files is preferred because it honors
// .gitignore transitively; a bounded walk is the fallback for non-git roots.
func (ix *Indexer) Build(ctx context.Context) (*Index, error) {
	deadline := time.Now().Add(IndexDeadline)
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	ignore := loadIgnoreFile(filepath.Join(ix.root, ".caretforgeignore"))

	idx := &Index{Root: ix.root}
	if paths, err := ix.gitListFiles(ctx); err == nil {
		idx.Stats.Method = "git"
		ix.filterInto(idx, paths, ignore, deadline)
	} else {
		ix.logger.Debug("git discovery unavailable, walking", "error", err)
		idx.Stats.Method = "walk"
		ix.walkInto(idx, ignore, deadline)
	}

	sort.Strings(idx.Paths)
	idx.Stats.Indexed = len(idx.Paths)
	ix.logger.Debug("index built",
		"method", idx.Stats.Method,
		"indexed", idx.Stats.Indexed,
		"skipped_binary", idx.Stats.SkippedBinary,
		"skipped_large", idx.Stats.SkippedLarge,
		"skipped_ignored", idx.Stats.SkippedIgnored,
		"timed_out", idx.Stats.TimedOut)
	return idx, nil
}

func (ix *Indexer) gitListFiles(ctx context.Context) ([]string, error) {
	cmd := exec.CommandContext(ctx, "git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = ix.root
	output, err := cmd.Output()
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, line := range strings.Split(string(output), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			paths = append(paths, line)
		}
	}
	return paths, nil
}

// filterInto applies the size, text-likeness, and custom-ignore filters to a
// git-produced path list.
func (ix *Indexer) filterInto(idx *Index, paths []string, ignore *ignoreRules, deadline time.Time) {
	for _, rel := range paths {
		if len(idx.Paths) >= MaxIndexedFiles {
			return
		}
		if time.Now().After(deadline) {
			idx.Stats.TimedOut = true
			return
		}
		if ignore.Match(rel) {
			idx.Stats.SkippedIgnored++
			continue
		}
		if !isTextPath(rel) {
			idx.Stats.SkippedBinary++
			continue
		}
		info, err := os.Stat(filepath.Join(ix.root, rel))
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if info.Size() > MaxFileSize {
			idx.Stats.SkippedLarge++
			continue
		}
		idx.Paths = append(idx.Paths, filepath.ToSlash(rel))
	}
}

// walkInto discovers files by bounded depth-first traversal, skipping hidden
// and build directories and breaking symlink cycles via resolved real paths.
func (ix *Indexer) walkInto(idx *Index, ignore *ignoreRules, deadline time.Time) {
	visited := map[string]bool{}
	if real, err := filepath.EvalSymlinks(ix.root); err == nil {
		visited[real] = true
	}
	ix.walkDir(idx, ix.root, 0, ignore, visited, deadline)
}

func (ix *Indexer) walkDir(idx *Index, dir string, depth int, ignore *ignoreRules, visited map[string]bool, deadline time.Time) {
	if depth > maxWalkDepth || idx.Stats.TimedOut || len(idx.Paths) >= MaxIndexedFiles {
		return
	}
	if time.Now().After(deadline) {
		idx.Stats.TimedOut = true
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if idx.Stats.TimedOut || len(idx.Paths) >= MaxIndexedFiles {
			return
		}
		name := entry.Name()
		full := filepath.Join(dir, name)
		rel, err := filepath.Rel(ix.root, full)
		if err != nil {
			continue
		}
		rel = filepath.ToSlash(rel)

		if entry.IsDir() {
			if skipDirs[name] || strings.HasPrefix(name, ".") {
				continue
			}
			if ignore.Match(rel) {
				idx.Stats.SkippedIgnored++
				continue
			}
			ix.walkDir(idx, full, depth+1, ignore, visited, deadline)
			continue
		}

		mode := entry.Type()
		// For symlinks the size check below must see the target, not the
		// few-byte link itself.
		var targetInfo fs.FileInfo
		if mode&os.ModeSymlink != 0 {
			real, err := filepath.EvalSymlinks(full)
			if err != nil || visited[real] {
				continue
			}
			info, err := os.Stat(real)
			if err != nil {
				continue
			}
			if info.IsDir() {
				visited[real] = true
				if !skipDirs[name] && !strings.HasPrefix(name, ".") {
					ix.walkDir(idx, full, depth+1, ignore, visited, deadline)
				}
				continue
			}
			if !info.Mode().IsRegular() {
				continue
			}
			targetInfo = info
			mode = info.Mode().Type()
		}
		if mode&(fs.ModeNamedPipe|fs.ModeSocket|fs.ModeDevice|fs.ModeCharDevice) != 0 {
			continue
		}

		if ignore.Match(rel) {
			idx.Stats.SkippedIgnored++
			continue
		}
		if !isTextPath(rel) {
			idx.Stats.SkippedBinary++
			continue
		}
		info := targetInfo
		if info == nil {
			var err error
			if info, err = entry.Info(); err != nil {
				if info, err = os.Stat(full); err != nil {
					continue
				}
			}
		}
		if info.Size() > MaxFileSize {
			idx.Stats.SkippedLarge++
			continue
		}
		idx.Paths = append(idx.Paths, rel)
	}
}

// Contains reports whether rel is in the index.
func (idx *Index) Contains(rel string) bool {
	rel = filepath.ToSlash(rel)
	i := sort.SearchStrings(idx.Paths, rel)
	return i < len(idx.Paths) && idx.Paths[i] == rel
}
