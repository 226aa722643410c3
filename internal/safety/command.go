// Package safety provides static risk classification for shell commands and
// filesystem write targets.
//
// Both classifiers are pure functions over literal strings; neither touches
// the filesystem. The permission layer composes these verdicts with its
// session state to decide whether a tool call may run.
package safety

import (
	"regexp"
	"strings"
)

// Tier is the risk classification assigned to a command or write target.
type Tier string

const (
	TierSafe        Tier = "safe"
	TierMutating    Tier = "mutating"
	TierDestructive Tier = "destructive"
	TierBlocked     Tier = "blocked"
)

// Verdict is a tier plus a human-readable reason.
type Verdict struct {
	Tier   Tier
	Reason string
}

// classRule pairs a pattern with the reason reported on match.
type classRule struct {
	re     *regexp.Regexp
	reason string
}

// blockedCommandRules match commands that are never allowed to run,
// regardless of session approval state.
var blockedCommandRules = []classRule{
	{regexp.MustCompile(`\brm\s+(-[a-zA-Z]*r[a-zA-Z]*f|-[a-zA-Z]*f[a-zA-Z]*r)[a-zA-Z]*\s+/(\s|$)`), "recursive delete of filesystem root"},
	{regexp.MustCompile(`\brm\s+-[a-zA-Z]*r[a-zA-Z]*\s+(/|~/?)(\s|$)`), "recursive delete of root or home directory"},
	{regexp.MustCompile(`\brm\s+-[a-zA-Z]*r[a-zA-Z]*\s+\.(\s|$)`), "recursive delete of current directory"},
	{regexp.MustCompile(`:\(\)\s*\{\s*:\|:&\s*\}\s*;?\s*:`), "fork bomb"},
	{regexp.MustCompile(`>\s*/dev/(sd[a-z]|nvme\d+n\d+|hd[a-z]|disk\d+)`), "redirect to block device"},
	{regexp.MustCompile(`\bmkfs(\.\w+)?\b`), "filesystem format"},
	{regexp.MustCompile(`\bdd\s+[^|;&]*\bof=/dev/`), "raw write to device"},
	{regexp.MustCompile(`>\s*/etc/`), "truncate of system configuration"},
	{regexp.MustCompile(`\b(curl|wget)\b[^|]*\|\s*(sh|bash|zsh)\b`), "piping downloaded content into a shell"},
}

// destructiveCommandRules match commands that mutate system state in ways
// that are hard to reverse. They may run, but only with explicit approval.
var destructiveCommandRules = []classRule{
	{regexp.MustCompile(`(^|\s)rm\s`), "file deletion"},
	{regexp.MustCompile(`(^|\s)dd\s`), "raw data copy"},
	{regexp.MustCompile(`\bchmod\s+-[a-zA-Z]*R`), "recursive permission change"},
	{regexp.MustCompile(`\bchown\s+-[a-zA-Z]*R`), "recursive ownership change"},
	{regexp.MustCompile(`\bkill\s+-9\b`), "forced process kill"},
	{regexp.MustCompile(`\b(killall|pkill)\b`), "mass process kill"},
	{regexp.MustCompile(`(^|\s)(sudo|su)\b`), "privilege escalation"},
	{regexp.MustCompile(`\b(shutdown|reboot)\b`), "system power control"},
	{regexp.MustCompile(`\bsystemctl\s+(stop|restart|disable)\b`), "service state change"},
	{regexp.MustCompile(`\biptables\b`), "firewall change"},
	{regexp.MustCompile(`>\s*/[^ \t]`), "redirect to absolute path"},
}

// safeCommands whitelists read-only first words. Multi-word entries match the
// leading words of the segment.
var safeCommands = []string{
	"ls", "cat", "head", "tail", "less", "more", "wc", "file", "stat", "du", "df",
	"grep", "egrep", "fgrep", "rg", "find", "which", "whereis", "type",
	"pwd", "whoami", "id", "hostname", "uname", "date", "uptime", "env", "printenv",
	"echo", "printf", "true", "false",
	"ps", "top", "free",
	"git status", "git log", "git diff", "git show", "git branch", "git remote",
	"git ls-files", "git blame", "git describe", "git rev-parse", "git config --get",
	"node -v", "node --version", "npm -v", "npm --version", "npm ls", "npm list",
	"go version", "go env", "go list",
	"python --version", "python3 --version", "pip list", "pip show",
	"cargo --version", "rustc --version",
	"docker ps", "docker images", "kubectl get", "kubectl describe",
	"md5sum", "sha256sum", "basename", "dirname", "readlink", "realpath",
	"sort", "uniq", "cut", "tr", "diff", "comm", "column", "jq", "yq",
}

// chainSplit splits a command line on pipes and chains, keeping segments in
// order. Quoting is deliberately not honored: a destructive pattern inside
// quotes still poisons the line, which errs on the safe side.
var chainSplit = regexp.MustCompile(`\|\||&&|;|\|`)

// AnalyseCommand classifies a shell command string into a risk tier.
//
// Classification order: blocked patterns, destructive patterns, chained
// segments (worst tier wins), safe whitelist, default mutating.
func AnalyseCommand(cmd string) Verdict {
	trimmed := strings.TrimSpace(cmd)
	if trimmed == "" {
		return Verdict{Tier: TierSafe, Reason: "empty command"}
	}

	for _, rule := range blockedCommandRules {
		if rule.re.MatchString(trimmed) {
			return Verdict{Tier: TierBlocked, Reason: rule.reason}
		}
	}

	for _, rule := range destructiveCommandRules {
		if rule.re.MatchString(trimmed) {
			return Verdict{Tier: TierDestructive, Reason: rule.reason}
		}
	}

	// A destructive or blocked segment anywhere poisons the whole line.
	if chainSplit.MatchString(trimmed) {
		worst := Verdict{Tier: TierSafe, Reason: "all segments read-only"}
		for _, segment := range chainSplit.Split(trimmed, -1) {
			segment = strings.TrimSpace(segment)
			if segment == "" {
				continue
			}
			v := AnalyseCommand(segment)
			if tierRank(v.Tier) > tierRank(worst.Tier) {
				worst = v
			}
			if worst.Tier == TierBlocked {
				return worst
			}
		}
		return worst
	}

	for _, safe := range safeCommands {
		if trimmed == safe || strings.HasPrefix(trimmed, safe+" ") {
			return Verdict{Tier: TierSafe, Reason: "read-only command"}
		}
	}

	return Verdict{Tier: TierMutating, Reason: "command may modify state"}
}

func tierRank(t Tier) int {
	switch t {
	case TierSafe:
		return 0
	case TierMutating:
		return 1
	case TierDestructive:
		return 2
	case TierBlocked:
		return 3
	}
	return 1
}
