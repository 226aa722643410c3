package fileindex

import (
	"path/filepath"
	"strings"
)

// textExtensions is the extension whitelist for text-likeness. Anything not
// listed here (and not a known text filename) is treated as binary.
var textExtensions = map[string]bool{
	// general
	".txt": true, ".md": true, ".markdown": true, ".rst": true, ".adoc": true,
	".log": true, ".csv": true, ".tsv": true, ".diff": true, ".patch": true,
	// config and data
	".json": true, ".json5": true, ".jsonc": true, ".yaml": true, ".yml": true,
	".toml": true, ".ini": true, ".cfg": true, ".conf": true, ".env": true,
	".xml": true, ".plist": true, ".properties": true, ".editorconfig": true,
	".gitignore": true, ".gitattributes": true, ".dockerignore": true,
	".npmrc": true, ".nvmrc": true, ".babelrc": true, ".eslintrc": true,
	".prettierrc": true, ".lock": true,
	// web
	".html": true, ".htm": true, ".css": true, ".scss": true, ".sass": true,
	".less": true, ".svg": true, ".vue": true, ".svelte": true, ".astro": true,
	// javascript / typescript
	".js": true, ".jsx": true, ".ts": true, ".tsx": true, ".mjs": true,
	".cjs": true, ".mts": true, ".cts": true,
	// compiled languages
	".go": true, ".rs": true, ".c": true, ".h": true, ".cpp": true,
	".cc": true, ".cxx": true, ".hpp": true, ".hh": true, ".cs": true,
	".java": true, ".kt": true, ".kts": true, ".scala": true, ".swift": true,
	".m": true, ".mm": true, ".zig": true, ".d": true, ".nim": true,
	".hs": true, ".ml": true, ".mli": true, ".fs": true, ".fsx": true,
	// scripting
	".py": true, ".pyi": true, ".rb": true, ".php": true, ".pl": true,
	".pm": true, ".lua": true, ".tcl": true, ".r": true, ".jl": true,
	".ex": true, ".exs": true, ".erl": true, ".hrl": true, ".clj": true,
	".cljs": true, ".edn": true, ".groovy": true, ".dart": true,
	// shell
	".sh": true, ".bash": true, ".zsh": true, ".fish": true, ".ps1": true,
	".psm1": true, ".bat": true, ".cmd": true,
	// database / query
	".sql": true, ".graphql": true, ".gql": true, ".prisma": true,
	// infra
	".tf": true, ".tfvars": true, ".hcl": true, ".nix": true,
	".proto": true, ".thrift": true, ".avsc": true, ".cue": true,
	".cmake": true, ".mk": true, ".gradle": true, ".sbt": true,
	".bazel": true, ".bzl": true,
	// docs / templating
	".tex": true, ".bib": true, ".org": true, ".tmpl": true, ".gotmpl": true,
	".hbs": true, ".mustache": true, ".ejs": true, ".jinja": true,
	".jinja2": true, ".j2": true, ".erb": true, ".haml": true, ".pug": true,
	// misc languages
	".asm": true, ".s": true, ".v": true, ".sv": true, ".vhd": true,
	".f90": true, ".f95": true, ".cob": true, ".pas": true, ".vb": true,
	".sol": true, ".wat": true,
}

// textFilenames are extensionless basenames known to be text.
var textFilenames = map[string]bool{
	"Makefile":         true,
	"makefile":         true,
	"GNUmakefile":      true,
	"Dockerfile":       true,
	"Containerfile":    true,
	"Vagrantfile":      true,
	"Jenkinsfile":      true,
	"Rakefile":         true,
	"Gemfile":          true,
	"Procfile":         true,
	"Brewfile":         true,
	"Justfile":         true,
	"justfile":         true,
	"BUILD":            true,
	"WORKSPACE":        true,
	"LICENSE":          true,
	"LICENCE":          true,
	"COPYING":          true,
	"NOTICE":           true,
	"README":           true,
	"CHANGELOG":        true,
	"AUTHORS":          true,
	"CONTRIBUTING":     true,
	"CODEOWNERS":       true,
	"TODO":             true,
	"VERSION":          true,
	"go.mod":           true,
	"go.sum":           true,
	"package.json":     true,
	"tsconfig.json":    true,
	"Cargo.toml":       true,
	"pyproject.toml":   true,
	"requirements.txt": true,
	".gitignore":       true,
	".gitattributes":   true,
	".editorconfig":    true,
	".env":             true,
}

// isTextPath reports whether a path looks like a text file by extension or
// known basename. Content is never sniffed.
func isTextPath(path string) bool {
	base := filepath.Base(path)
	if textFilenames[base] {
		return true
	}
	ext := strings.ToLower(filepath.Ext(base))
	if ext == "" {
		return false
	}
	return textExtensions[ext]
}
