package permission

import (
	"bytes"
	"strings"
	"testing"
)

func newTestManager(opts Options, answers string) (*Manager, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return NewManager(opts, strings.NewReader(answers), out), out
}

func TestReadAlwaysAllowed(t *testing.T) {
	m, _ := newTestManager(Options{}, "")
	if !m.Check("read_file", map[string]any{"path": "/etc/passwd"}) {
		t.Fatal("read_file must always be allowed")
	}
}

func TestUnknownToolDenied(t *testing.T) {
	m, _ := newTestManager(Options{Interactive: true}, "y\n")
	if m.Check("launch_missiles", nil) {
		t.Fatal("unknown tools must be denied")
	}
}

func TestBlockedCommandDeniedEvenWithAlways(t *testing.T) {
	m, out := newTestManager(Options{AllowShell: true, Interactive: true}, "y\n")
	if m.Check("exec_shell", map[string]any{"command": "rm -rf /"}) {
		t.Fatal("blocked command must be denied")
	}
	if !strings.Contains(out.String(), "Blocked") {
		t.Errorf("expected blocked reason printed, got %q", out.String())
	}
}

func TestBlockedWritePathDeniedEvenWithAllowWrite(t *testing.T) {
	m, _ := newTestManager(Options{AllowWrite: true, Interactive: true}, "y\n")
	if m.Check("write_file", map[string]any{"path": "/etc/passwd"}) {
		t.Fatal("blocked write path must be denied")
	}
}

func TestSessionAlwaysSkipsPrompt(t *testing.T) {
	// No answers available: any prompt would deny.
	m, out := newTestManager(Options{AllowShell: true}, "")
	if !m.Check("exec_shell", map[string]any{"command": "ls"}) {
		t.Fatal("alwaysShell must allow safe command without prompting")
	}
	if out.Len() != 0 {
		t.Errorf("expected no prompt output, got %q", out.String())
	}
}

func TestNonInteractiveDeniesWithoutAlways(t *testing.T) {
	m, _ := newTestManager(Options{}, "")
	if m.Check("exec_shell", map[string]any{"command": "ls"}) {
		t.Fatal("non-interactive session without always flag must deny")
	}
}

func TestPromptYesAllowsOnce(t *testing.T) {
	m, _ := newTestManager(Options{Interactive: true}, "y\nn\n")
	if !m.Check("exec_shell", map[string]any{"command": "npm install"}) {
		t.Fatal("answer y must allow")
	}
	if m.Check("exec_shell", map[string]any{"command": "npm install"}) {
		t.Fatal("answer n must deny; y must not persist")
	}
}

func TestPromptEmptyAllowsOnce(t *testing.T) {
	m, _ := newTestManager(Options{Interactive: true}, "\n")
	if !m.Check("exec_shell", map[string]any{"command": "ls"}) {
		t.Fatal("empty answer must allow once")
	}
}

func TestPromptAlwaysSetsSessionFlag(t *testing.T) {
	m, out := newTestManager(Options{Interactive: true}, "a\n")
	if !m.Check("write_file", map[string]any{"path": "src/x.go"}) {
		t.Fatal("answer always must allow")
	}
	out.Reset()
	if !m.Check("write_file", map[string]any{"path": "src/y.go"}) {
		t.Fatal("session always flag must allow later calls")
	}
	if out.Len() != 0 {
		t.Errorf("expected no second prompt, got %q", out.String())
	}
}

func TestDestructivePromptSuppressesAlways(t *testing.T) {
	m, out := newTestManager(Options{Interactive: true}, "a\ny\n")
	// "always" is not offered for destructive calls, so "a" denies.
	if m.Check("exec_shell", map[string]any{"command": "rm build/"}) {
		t.Fatal("answer a on destructive prompt must deny")
	}
	if strings.Contains(out.String(), "always") {
		t.Errorf("destructive prompt must not offer always, got %q", out.String())
	}
	// The session flag must not have been set.
	if !m.Check("exec_shell", map[string]any{"command": "rm build/"}) {
		t.Fatal("answer y must allow destructive call once")
	}
}

func TestDestructiveDeniedWhenNonInteractive(t *testing.T) {
	m, _ := newTestManager(Options{AllowShell: true}, "")
	if m.Check("exec_shell", map[string]any{"command": "rm -r build"}) {
		t.Fatal("destructive command must be denied without a terminal")
	}
}
