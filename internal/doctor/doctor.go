// Package doctor runs environment diagnostics for the CLI's doctor command.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/caretforge/caretforge/internal/config"
	"github.com/caretforge/caretforge/internal/fileindex"
	"github.com/caretforge/caretforge/internal/providers"
)

// Check is one diagnostic result.
type Check struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail"`
}

// Run executes every diagnostic and returns the results plus an overall
// verdict. Failures do not abort later checks.
func Run(ctx context.Context, workDir string) ([]Check, bool) {
	var checks []Check
	ok := true

	add := func(c Check) {
		checks = append(checks, c)
		if !c.OK {
			ok = false
		}
	}

	cfg, err := config.Load()
	if err != nil {
		add(Check{Name: "config", OK: false, Detail: err.Error()})
	} else {
		path, _ := config.Path()
		add(Check{Name: "config", OK: true, Detail: fmt.Sprintf("loaded %s (%d providers)", path, len(cfg.Providers))})

		name, pc, err := cfg.ResolveProvider("")
		if err != nil {
			add(Check{Name: "provider", OK: false, Detail: err.Error()})
		} else if _, err := providers.FromConfig(name, pc); err != nil {
			add(Check{Name: "provider", OK: false, Detail: err.Error()})
		} else {
			add(Check{Name: "provider", OK: true, Detail: fmt.Sprintf("default provider %q (%s)", name, pc.Type)})
		}
	}

	add(binaryCheck("git", "git", "--version"))
	add(binaryCheck("ripgrep", "rg", "--version"))

	indexCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	idx, err := fileindex.New(workDir).Build(indexCtx)
	switch {
	case err != nil:
		add(Check{Name: "workspace index", OK: false, Detail: err.Error()})
	case idx.Stats.TimedOut:
		add(Check{Name: "workspace index", OK: true, Detail: fmt.Sprintf("%d files via %s (timed out, partial)", idx.Stats.Indexed, idx.Stats.Method)})
	default:
		add(Check{Name: "workspace index", OK: true, Detail: fmt.Sprintf("%d files via %s", idx.Stats.Indexed, idx.Stats.Method)})
	}

	return checks, ok
}

// binaryCheck probes an external binary; a missing binary is reported but
// only ripgrep has a fallback, so callers decide severity by name.
func binaryCheck(name, bin string, arg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: name, OK: false, Detail: fmt.Sprintf("%s not found on PATH", bin)}
	}
	cmd := exec.Command(bin, arg)
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Run(); err != nil {
		return Check{Name: name, OK: false, Detail: fmt.Sprintf("%s failed: %v", bin, err)}
	}
	return Check{Name: name, OK: true, Detail: path}
}

// WorkDir resolves the directory diagnostics run against.
func WorkDir() string {
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	return dir
}
