package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/caretforge/caretforge/internal/agent"
	"github.com/caretforge/caretforge/internal/config"
	"github.com/caretforge/caretforge/internal/fileindex"
	"github.com/caretforge/caretforge/internal/permission"
	"github.com/caretforge/caretforge/internal/providers"
	"github.com/caretforge/caretforge/internal/tools"
	"github.com/caretforge/caretforge/pkg/models"
)

const systemPrompt = `You are CaretForge, a coding agent operating in the user's working
directory. Use the available tools to read, search, and modify files and to
run shell commands. Prefer small, verifiable steps: inspect before you edit,
and report what you changed. When a task is complete, summarize the result
briefly instead of repeating file contents.`

// session wires one provider, tool set, and permission state together.
type session struct {
	cfg          *config.Config
	providerName string
	provider     agent.Provider
	loop         *agent.Loop
	perms        *permission.Manager
	index        *fileindex.Index
	model        string
	workDir      string
	trace        *agent.TraceWriter
}

// newSession resolves config and flags into a ready-to-run session.
// CLI flags win over environment and file values.
func newSession(ctx context.Context) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	name, pc, err := cfg.ResolveProvider(flags.provider)
	if err != nil {
		return nil, err
	}
	provider, err := providers.FromConfig(name, pc)
	if err != nil {
		return nil, err
	}

	model := flags.model
	if model == "" {
		model = pc.Model
	}

	workDir, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	perms := permission.NewManager(permission.Options{
		AllowWrite:  flags.allowWrite,
		AllowShell:  flags.allowShell,
		Interactive: interactive,
	}, os.Stdin, os.Stderr)

	registry := tools.NewRegistry(tools.Config{WorkDir: workDir})
	loop := agent.NewLoop(provider, registry, systemPrompt)

	s := &session{
		cfg:          cfg,
		providerName: name,
		provider:     provider,
		loop:         loop,
		perms:        perms,
		model:        model,
		workDir:      workDir,
	}

	if flags.tracePath != "" {
		tw, err := agent.NewTraceWriter(flags.tracePath)
		if err != nil {
			return nil, err
		}
		s.trace = tw
		loop.SetTrace(tw)
	}

	// The index is best-effort: a failed build leaves @refs unresolved but
	// does not block the session.
	if idx, err := fileindex.New(workDir).Build(ctx); err == nil {
		s.index = idx
	}
	return s, nil
}

func (s *session) Close() {
	if s.trace != nil {
		s.trace.Close()
	}
}

// expand resolves @path references when an index is available.
func (s *session) expand(prompt string) string {
	if s.index == nil {
		return prompt
	}
	_, enriched := s.index.ExpandRefs(prompt)
	return enriched
}

// switchModel handles the /model <id> form, accepting provider/model to
// switch provider as well.
func (s *session) switchModel(spec string) error {
	providerName := s.providerName
	model := spec
	if before, after, found := cutProviderPrefix(spec); found {
		providerName, model = before, after
	}

	if providerName != s.providerName {
		_, pc, err := s.cfg.ResolveProvider(providerName)
		if err != nil {
			return err
		}
		provider, err := providers.FromConfig(providerName, pc)
		if err != nil {
			return err
		}
		s.providerName = providerName
		s.provider = provider
		registry := tools.NewRegistry(tools.Config{WorkDir: s.workDir})
		s.loop = agent.NewLoop(provider, registry, systemPrompt)
		if s.trace != nil {
			s.loop.SetTrace(s.trace)
		}
	}
	s.model = model
	return nil
}

// cutProviderPrefix splits "provider/model"; model ids never contain a slash
// in any of the supported backends.
func cutProviderPrefix(spec string) (provider, model string, found bool) {
	for i := 0; i < len(spec); i++ {
		if spec[i] == '/' {
			return spec[:i], spec[i+1:], true
		}
	}
	return "", spec, false
}

// callbacks builds the loop callbacks for terminal output. Tokens go to
// stdout; tool-call lines and permission prompts go to stderr so the token
// stream is never corrupted.
func (s *session) callbacks(streaming bool) agent.Callbacks {
	return agent.Callbacks{
		OnToken: func(token string) {
			if streaming {
				fmt.Print(token)
			}
		},
		OnToolCall: func(call models.ToolCall) {
			fmt.Fprintf(os.Stderr, "→ %s %s\n", call.Name, call.Arguments)
		},
		OnToolResult: func(call models.ToolCall, result string, isError bool) {
			if isError {
				fmt.Fprintf(os.Stderr, "✗ %s: %s\n", call.Name, firstLine(result))
				return
			}
			fmt.Fprintf(os.Stderr, "✓ %s\n", call.Name)
		},
		OnPermissionRequest: s.perms.Check,
	}
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}

// jsonTurn is the --json output object for a one-shot run.
type jsonTurn struct {
	Task          string           `json:"task"`
	Model         string           `json:"model"`
	Provider      string           `json:"provider"`
	FinalContent  string           `json:"finalContent"`
	ToolCallCount int              `json:"toolCallCount"`
	DurationMs    int64            `json:"durationMs"`
	Messages      []models.Message `json:"messages"`
}

// runTask executes a single task and exits.
func runTask(ctx context.Context, task string) error {
	s, err := newSession(ctx)
	if err != nil {
		return emitError(err)
	}
	defer s.Close()

	prompt := s.expand(task)
	streaming := flags.streaming() && !flags.jsonOut

	opts := agent.RunOptions{
		Model:  s.model,
		Stream: flags.streaming(),
	}
	if !flags.jsonOut {
		opts.Callbacks = s.callbacks(streaming)
	} else {
		opts.Callbacks = agent.Callbacks{OnPermissionRequest: s.perms.Check}
	}

	result, err := s.loop.Run(ctx, []models.Message{{Role: models.RoleUser, Content: prompt}}, opts)
	if err != nil {
		return emitError(err)
	}

	if flags.jsonOut {
		return json.NewEncoder(os.Stdout).Encode(jsonTurn{
			Task:          task,
			Model:         s.model,
			Provider:      s.providerName,
			FinalContent:  result.FinalContent,
			ToolCallCount: result.ToolCallCount,
			DurationMs:    result.DurationMs,
			Messages:      result.Messages,
		})
	}

	if streaming {
		fmt.Println()
	} else {
		fmt.Println(result.FinalContent)
	}
	return nil
}

// emitError reports a fatal error on the active output contract.
func emitError(err error) error {
	if flags.jsonOut {
		_ = json.NewEncoder(os.Stdout).Encode(map[string]string{"error": err.Error()})
		os.Exit(1)
	}
	return err
}

func runModelList(ctx context.Context) error {
	s, err := newSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	infos, err := s.provider.ListModels(ctx)
	if err != nil {
		return err
	}
	for _, info := range infos {
		if info.Description != "" {
			fmt.Printf("%-32s %s\n", info.ID, info.Description)
			continue
		}
		fmt.Println(info.ID)
	}
	return nil
}
