package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/caretforge/caretforge/internal/agent"
	"github.com/caretforge/caretforge/pkg/models"
)

// compactKeepLast is how many trailing messages /compact retains.
const compactKeepLast = 4

const replHelp = `Commands:
  /help            show this help
  /clear           drop the conversation history
  /compact         drop all but the last 4 messages
  /model           list models of the current provider
  /model <id>      switch model (use provider/model to switch provider)
  /exit, /quit     leave the session
Reference files with @path; Tab completes after @.`

// runChat drives the interactive REPL.
func runChat(ctx context.Context) error {
	s, err := newSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	if interactive {
		fmt.Printf("CaretForge %s | %s (%s)\n", version, s.model, s.providerName)
		fmt.Println("The agent can modify files and run commands in this directory after asking. /help for commands.")
	}

	reader := newLineReader(s, interactive)
	var history []models.Message

	for {
		line, err := reader.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		switch {
		case input == "/exit", input == "/quit", input == "exit", input == "quit", input == "q":
			return nil

		case input == "/help":
			fmt.Println(replHelp)
			continue

		case input == "/clear":
			history = nil
			fmt.Println("History cleared.")
			continue

		case input == "/compact":
			if len(history) > compactKeepLast {
				history = append([]models.Message(nil), history[len(history)-compactKeepLast:]...)
			}
			fmt.Printf("History compacted to %d message(s).\n", len(history))
			continue

		case input == "/model":
			if err := runReplModelList(ctx, s); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
			continue

		case strings.HasPrefix(input, "/model "):
			spec := strings.TrimSpace(strings.TrimPrefix(input, "/model "))
			if err := s.switchModel(spec); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				continue
			}
			fmt.Printf("Now using %s (%s).\n", s.model, s.providerName)
			continue

		case strings.HasPrefix(input, "/"):
			fmt.Printf("Unknown command %s. /help for commands.\n", strings.Fields(input)[0])
			continue
		}

		prompt := s.expand(input)
		history = append(history, models.Message{Role: models.RoleUser, Content: prompt})

		streaming := flags.streaming()
		result, err := s.loop.Run(ctx, history, agent.RunOptions{
			Model:     s.model,
			Stream:    streaming,
			Callbacks: s.callbacks(streaming),
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			// keep the user message so a retry has context
			continue
		}

		if streaming {
			fmt.Println()
		} else {
			fmt.Println(result.FinalContent)
		}
		// Messages[0] is the system message the loop prepends.
		history = result.Messages[1:]
	}
}

func runReplModelList(ctx context.Context, s *session) error {
	infos, err := s.provider.ListModels(ctx)
	if err != nil {
		return err
	}
	for _, info := range infos {
		marker := "  "
		if info.ID == s.model {
			marker = "* "
		}
		fmt.Printf("%s%s\n", marker, info.ID)
	}
	return nil
}

// lineReader abstracts the prompt input source: a raw-mode terminal with
// tab completion, or plain buffered reads when stdin is a pipe.
type lineReader interface {
	ReadLine() (string, error)
}

func newLineReader(s *session, interactive bool) lineReader {
	if interactive {
		return &ttyReader{session: s}
	}
	return &pipeReader{scanner: bufio.NewScanner(os.Stdin)}
}

type pipeReader struct {
	scanner *bufio.Scanner
}

func (r *pipeReader) ReadLine() (string, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.scanner.Text(), nil
}

// ttyReader reads one line in raw mode so Tab can complete @path references,
// restoring the terminal before the line is processed.
type ttyReader struct {
	session *session
}

func (r *ttyReader) ReadLine() (string, error) {
	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		// No raw mode (e.g. exotic terminal): degrade to plain reads.
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		return strings.TrimRight(line, "\n"), err
	}
	defer term.Restore(fd, oldState)

	screen := struct {
		io.Reader
		io.Writer
	}{os.Stdin, os.Stdout}
	terminal := term.NewTerminal(screen, "caretforge> ")
	terminal.AutoCompleteCallback = func(line string, pos int, key rune) (string, int, bool) {
		if key != '\t' || r.session.index == nil {
			return "", 0, false
		}
		return completeAtRef(r.session.index.CompleteRef, line, pos)
	}
	return terminal.ReadLine()
}

// completeAtRef completes the @prefix token ending at pos with the longest
// common prefix of the index matches.
func completeAtRef(complete func(string) []string, line string, pos int) (string, int, bool) {
	head := line[:pos]
	at := strings.LastIndexByte(head, '@')
	if at < 0 {
		return "", 0, false
	}
	matches := complete(head)
	if len(matches) == 0 {
		return "", 0, false
	}

	replacement := matches[0]
	for _, m := range matches[1:] {
		replacement = commonPrefix(replacement, m)
	}
	if replacement == head[at:] {
		return "", 0, false
	}
	newLine := head[:at] + replacement + line[pos:]
	return newLine, at + len(replacement), true
}

func commonPrefix(a, b string) string {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return a[:i]
		}
	}
	return a[:n]
}
