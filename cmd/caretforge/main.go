// Package main provides the CaretForge CLI entry point.
//
// CaretForge is an interactive coding agent: it connects a terminal session
// to an LLM provider, lets the model call filesystem, shell, and search
// tools inside the working directory, and gates dangerous calls behind user
// permission.
//
// # Basic Usage
//
// Start an interactive session:
//
//	caretforge
//
// Run a one-shot task:
//
//	caretforge "rename the Config struct to Settings"
//
// # Environment Variables
//
//   - CARETFORGE_PROVIDER: default provider name
//   - CARETFORGE_MODEL: default model for the default provider
//   - AZURE_OPENAI_API_KEY / AZURE_OPENAI_ENDPOINT: Azure OpenAI credentials
//   - ANTHROPIC_API_KEY: Anthropic API key
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// Build information - populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// globalFlags holds the persistent flag values shared by every command.
type globalFlags struct {
	provider   string
	model      string
	stream     bool
	noStream   bool
	jsonOut    bool
	tracePath  string
	allowShell bool
	allowWrite bool
	verbose    bool
}

// streaming resolves the --stream/--no-stream pair; streaming defaults on.
func (f *globalFlags) streaming() bool {
	return f.stream && !f.noStream
}

var flags globalFlags

func main() {
	level := slog.LevelWarn
	for _, arg := range os.Args[1:] {
		if arg == "--verbose" {
			level = slog.LevelDebug
		}
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
// Zero positional args start the REPL; positional args that are not a
// subcommand run as a one-shot task.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "caretforge [task...]",
		Short: "CaretForge - terminal coding agent",
		Long: `CaretForge connects your terminal to an LLM provider and lets the model
work on the current directory through read, write, edit, shell, and search
tools. Dangerous tool calls are gated behind interactive permission.

With no arguments an interactive session starts; any other arguments are
treated as a one-shot task.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runChat(cmd.Context())
			}
			return runTask(cmd.Context(), strings.Join(args, " "))
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.provider, "provider", "", "Provider name from the config file")
	pf.StringVar(&flags.model, "model", "", "Model or deployment identifier")
	pf.BoolVar(&flags.stream, "stream", true, "Stream tokens as they arrive")
	pf.BoolVar(&flags.noStream, "no-stream", false, "Disable streaming")
	pf.BoolVar(&flags.jsonOut, "json", false, "Emit the whole turn as one JSON object")
	pf.StringVar(&flags.tracePath, "trace", "", "Write a JSONL trace of the run to this file")
	pf.BoolVar(&flags.allowShell, "allow-shell", false, "Pre-approve safe and mutating shell commands")
	pf.BoolVar(&flags.allowWrite, "allow-write", false, "Pre-approve mutating file writes")
	pf.BoolVar(&flags.verbose, "verbose", false, "Enable debug logging")

	rootCmd.AddCommand(
		buildChatCmd(),
		buildRunCmd(),
		buildModelCmd(),
		buildConfigCmd(),
		buildDoctorCmd(),
	)
	return rootCmd
}
