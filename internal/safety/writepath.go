package safety

import (
	"os"
	"path/filepath"
	"strings"
)

// blockedPathPrefixes are write targets that are never allowed, matched
// against both the raw path and its home-expanded form.
var blockedPathPrefixes = []string{
	"/etc", "/usr", "/bin", "/sbin", "/boot", "/dev", "/proc", "/sys",
	"~/.ssh", "~/.gnupg", "~/.aws/credentials", "~/.azure", "~/.kube/config",
}

// blockedPathNames are exact basenames that are never allowed as write
// targets wherever they live.
var blockedPathNames = []string{
	".env", ".env.local",
}

// destructivePaths are shell/user configuration files whose overwrite is
// allowed only with explicit approval.
var destructivePaths = []string{
	"~/.bashrc", "~/.zshrc", "~/.profile", "~/.bash_profile",
	"~/.gitconfig", "~/.npmrc",
}

// AnalyseWritePath classifies a filesystem write target into a risk tier.
// Both the literal path and a home-expanded form are checked.
func AnalyseWritePath(path string) Verdict {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return Verdict{Tier: TierMutating, Reason: "empty path"}
	}

	for _, candidate := range pathForms(trimmed) {
		for _, prefix := range blockedPathPrefixes {
			for _, expanded := range pathForms(prefix) {
				if candidate == expanded || strings.HasPrefix(candidate, expanded+"/") {
					return Verdict{Tier: TierBlocked, Reason: "write to protected path " + prefix}
				}
			}
		}
		for _, name := range blockedPathNames {
			if filepath.Base(candidate) == name {
				return Verdict{Tier: TierBlocked, Reason: "write to protected file " + name}
			}
		}
		for _, dest := range destructivePaths {
			for _, expanded := range pathForms(dest) {
				if candidate == expanded {
					return Verdict{Tier: TierDestructive, Reason: "overwrite of " + dest}
				}
			}
		}
	}

	return Verdict{Tier: TierMutating, Reason: "ordinary file write"}
}

// pathForms returns the raw path plus its home-expanded variant when the
// path is home-relative.
func pathForms(path string) []string {
	forms := []string{path}
	if strings.HasPrefix(path, "~/") || path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			forms = append(forms, filepath.Join(home, strings.TrimPrefix(path, "~")))
		}
	}
	return forms
}
