package fileindex

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// ignoreRules holds the gitignore-style rules from a .caretforgeignore file.
// Supported forms: exact relative path, "dir/" directory prefix, "*.ext"
// suffix, and bare basename.
type ignoreRules struct {
	exact    map[string]bool
	dirs     []string
	suffixes []string
	names    map[string]bool
}

// loadIgnoreFile parses the ignore file at path. A missing or unreadable
// file yields an empty rule set.
func loadIgnoreFile(path string) *ignoreRules {
	rules := &ignoreRules{
		exact: map[string]bool{},
		names: map[string]bool{},
	}
	f, err := os.Open(path)
	if err != nil {
		return rules
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		switch {
		case strings.HasSuffix(line, "/"):
			rules.dirs = append(rules.dirs, strings.TrimSuffix(line, "/"))
		case strings.HasPrefix(line, "*."):
			rules.suffixes = append(rules.suffixes, line[1:])
		case strings.Contains(line, "/"):
			rules.exact[filepath.ToSlash(line)] = true
		default:
			rules.names[line] = true
			rules.exact[line] = true
		}
	}
	return rules
}

// Match reports whether the relative path is excluded by the rules.
func (r *ignoreRules) Match(rel string) bool {
	rel = filepath.ToSlash(rel)
	if r.exact[rel] {
		return true
	}
	if r.names[filepath.Base(rel)] {
		return true
	}
	for _, dir := range r.dirs {
		if rel == dir || strings.HasPrefix(rel, dir+"/") {
			return true
		}
	}
	for _, suffix := range r.suffixes {
		if strings.HasSuffix(rel, suffix) {
			return true
		}
	}
	return false
}
