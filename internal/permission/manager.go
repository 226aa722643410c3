// Package permission gates dangerous tool calls behind a session-scoped
// approval state machine.
//
// The decision combines the static safety tier of the call's arguments with
// two monotonic session flags (alwaysWrite, alwaysShell) and, when a terminal
// is attached, an interactive y/n/always prompt. The "always" answer is never
// offered for destructive calls and never persists to disk.
package permission

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/caretforge/caretforge/internal/safety"
)

// Options initialize a Manager from CLI flags.
type Options struct {
	// AllowWrite pre-approves mutating write_file/edit_file calls.
	AllowWrite bool

	// AllowShell pre-approves safe and mutating exec_shell calls.
	AllowShell bool

	// Interactive reports whether a terminal is attached for prompting.
	Interactive bool
}

// Manager holds the per-session approval state. The flags are set to true by
// user approval and never cleared within a session.
type Manager struct {
	alwaysWrite bool
	alwaysShell bool
	interactive bool

	in     *bufio.Reader
	out    io.Writer
	logger *slog.Logger
}

// NewManager creates a manager reading prompt answers from in and writing
// prompts to out.
func NewManager(opts Options, in io.Reader, out io.Writer) *Manager {
	return &Manager{
		alwaysWrite: opts.AllowWrite,
		alwaysShell: opts.AllowShell,
		interactive: opts.Interactive,
		in:          bufio.NewReader(in),
		out:         out,
		logger:      slog.Default().With("component", "permission"),
	}
}

// Check decides whether the named tool may run with the given arguments.
func (m *Manager) Check(toolName string, args map[string]any) bool {
	switch toolName {
	case "read_file":
		return true
	case "exec_shell":
		return m.checkShell(args)
	case "write_file", "edit_file":
		return m.checkWrite(toolName, args)
	default:
		return false
	}
}

func (m *Manager) checkShell(args map[string]any) bool {
	command, _ := args["command"].(string)
	verdict := safety.AnalyseCommand(command)
	return m.decide("exec_shell", command, verdict, &m.alwaysShell)
}

func (m *Manager) checkWrite(toolName string, args map[string]any) bool {
	path, _ := args["path"].(string)
	verdict := safety.AnalyseWritePath(path)
	return m.decide(toolName, path, verdict, &m.alwaysWrite)
}

// decide applies the decision table for one gated call. always points at the
// session flag covering this tool class.
func (m *Manager) decide(toolName, subject string, verdict safety.Verdict, always *bool) bool {
	switch verdict.Tier {
	case safety.TierBlocked:
		fmt.Fprintf(m.out, "Blocked: %s (%s)\n", subject, verdict.Reason)
		m.logger.Warn("blocked tool call", "tool", toolName, "reason", verdict.Reason)
		return false

	case safety.TierDestructive:
		if !m.interactive {
			return false
		}
		// Destructive calls always re-prompt; "always" is suppressed.
		return m.prompt(toolName, subject, verdict, false)

	default:
		if *always {
			return true
		}
		if !m.interactive {
			return false
		}
		allowed, forever := m.promptWithAlways(toolName, subject, verdict)
		if forever {
			*always = true
		}
		return allowed
	}
}

func (m *Manager) prompt(toolName, subject string, verdict safety.Verdict, offerAlways bool) bool {
	allowed, _ := m.ask(toolName, subject, verdict, offerAlways)
	return allowed
}

func (m *Manager) promptWithAlways(toolName, subject string, verdict safety.Verdict) (allowed, forever bool) {
	return m.ask(toolName, subject, verdict, true)
}

// ask prints the prompt and interprets the answer. Empty or y/yes allows
// once; a/always allows once and flips the session flag (when offered);
// anything else denies.
func (m *Manager) ask(toolName, subject string, verdict safety.Verdict, offerAlways bool) (allowed, forever bool) {
	choices := "[Y/n]"
	if offerAlways {
		choices = "[Y/n/a(lways)]"
	}
	fmt.Fprintf(m.out, "%s wants to run (%s: %s):\n  %s\nAllow? %s ", toolName, verdict.Tier, verdict.Reason, subject, choices)

	line, err := m.in.ReadString('\n')
	if err != nil && line == "" {
		return false, false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	switch answer {
	case "", "y", "yes":
		return true, false
	case "a", "always":
		if offerAlways {
			return true, true
		}
		return false, false
	default:
		return false, false
	}
}
