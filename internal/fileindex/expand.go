package fileindex

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	// MaxExpandBytes caps the content included for a single @path reference.
	MaxExpandBytes = 256 << 10 // 256 KiB
	// maxExpandLines caps how many lines of a referenced file are included.
	maxExpandLines = 2000
	// maxLineChars truncates individual lines in expanded content.
	maxLineChars = 2000
)

// FileRef is one resolved @path reference.
type FileRef struct {
	Path      string `json:"path"`
	Content   string `json:"-"`
	Size      int64  `json:"size"`
	Truncated bool   `json:"truncated"`
}

// atRefPattern matches @path tokens: @ followed by a run of non-whitespace
// path characters.
var atRefPattern = regexp.MustCompile(`@([^\s@]+)`)

// ExpandRefs resolves every @path token in prompt against the index (or a
// direct stat for paths outside it) and returns the resolved references plus
// an enriched prompt with file contents prepended. Tokens that do not resolve
// to a readable text file are left untouched.
func (idx *Index) ExpandRefs(prompt string) ([]FileRef, string) {
	var refs []FileRef
	expanded := map[string]bool{}

	for _, match := range atRefPattern.FindAllStringSubmatch(prompt, -1) {
		rel := strings.TrimRight(match[1], ".,;:!?)")
		if rel == "" || expanded[rel] {
			continue
		}
		ref, ok := idx.readRef(rel)
		if !ok {
			continue
		}
		refs = append(refs, ref)
		expanded[rel] = true
	}
	if len(refs) == 0 {
		return nil, prompt
	}

	stripped := prompt
	var blocks []string
	for _, ref := range refs {
		blocks = append(blocks, fmt.Sprintf("[File: %s]\n%s", ref.Path, ref.Content))
		stripped = strings.ReplaceAll(stripped, "@"+ref.Path, ref.Path)
	}
	return refs, strings.Join(blocks, "\n\n") + "\n\n" + stripped
}

// readRef loads one referenced file under the expansion caps.
func (idx *Index) readRef(rel string) (FileRef, bool) {
	if !isTextPath(rel) {
		return FileRef{}, false
	}
	full := filepath.Join(idx.Root, rel)
	info, err := os.Stat(full)
	if err != nil || !info.Mode().IsRegular() {
		return FileRef{}, false
	}
	if !idx.Contains(rel) && info.Size() > MaxFileSize {
		return FileRef{}, false
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return FileRef{}, false
	}

	truncated := false
	if len(data) > MaxExpandBytes {
		data = data[:MaxExpandBytes]
		truncated = true
	}

	lines := strings.Split(string(data), "\n")
	if len(lines) > maxExpandLines {
		lines = lines[:maxExpandLines]
		truncated = true
	}
	for i, line := range lines {
		if len(line) > maxLineChars {
			lines[i] = line[:maxLineChars] + "…"
			truncated = true
		}
	}

	return FileRef{
		Path:      filepath.ToSlash(rel),
		Content:   strings.Join(lines, "\n"),
		Size:      info.Size(),
		Truncated: truncated,
	}, true
}
