package main

import "testing"

func TestBuildRootCmdWiring(t *testing.T) {
	cmd := buildRootCmd()

	for _, name := range []string{"chat", "run", "model", "config", "doctor"} {
		sub, _, err := cmd.Find([]string{name})
		if err != nil || sub.Name() != name {
			t.Fatalf("subcommand %q not wired: %v", name, err)
		}
	}

	for _, flag := range []string{"provider", "model", "stream", "no-stream", "json", "trace", "allow-shell", "allow-write", "verbose"} {
		if cmd.PersistentFlags().Lookup(flag) == nil {
			t.Fatalf("persistent flag --%s missing", flag)
		}
	}
}

func TestStreamingFlagResolution(t *testing.T) {
	cases := []struct {
		stream, noStream, want bool
	}{
		{true, false, true},
		{true, true, false},
		{false, false, false},
	}
	for _, tc := range cases {
		f := globalFlags{stream: tc.stream, noStream: tc.noStream}
		if got := f.streaming(); got != tc.want {
			t.Errorf("stream=%v no-stream=%v: streaming() = %v", tc.stream, tc.noStream, got)
		}
	}
}

func TestCutProviderPrefix(t *testing.T) {
	provider, model, found := cutProviderPrefix("anthropic/claude-sonnet-4-20250514")
	if !found || provider != "anthropic" || model != "claude-sonnet-4-20250514" {
		t.Fatalf("got (%q, %q, %v)", provider, model, found)
	}
	if _, _, found := cutProviderPrefix("gpt-4o"); found {
		t.Fatal("bare model id should not split")
	}
}

func TestCompleteAtRef(t *testing.T) {
	complete := func(line string) []string {
		return []string{"@internal/agent/loop.go", "@internal/agent/loop_test.go"}
	}

	line, pos, ok := completeAtRef(complete, "explain @internal/ag", 20)
	if !ok {
		t.Fatal("expected a completion")
	}
	want := "explain @internal/agent/loop"
	if line != want || pos != len(want) {
		t.Fatalf("got (%q, %d)", line, pos)
	}

	// No @ token before the cursor means no completion.
	if _, _, ok := completeAtRef(complete, "plain text", 10); ok {
		t.Fatal("completed without an @ token")
	}

	// A prefix already equal to the common prefix is left alone.
	none := func(string) []string { return []string{"@a.go"} }
	if _, _, ok := completeAtRef(none, "see @a.go", 9); ok {
		t.Fatal("no-op completion should report false")
	}
}

func TestFirstLine(t *testing.T) {
	if got := firstLine("top\nrest"); got != "top" {
		t.Fatalf("got %q", got)
	}
	if got := firstLine("single"); got != "single" {
		t.Fatalf("got %q", got)
	}
}
