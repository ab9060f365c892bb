package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/dotsetgreg/wanderbot/pkg/agent"
)

type responder interface {
	Name() string
	Respond(ctx context.Context, userMessage string, opts ...agent.RespondOption) (string, error)
}

func isExitCommand(input string) bool {
	switch strings.ToLower(input) {
	case "exit", "quit":
		return true
	}
	return false
}

// runChat uses readline on an interactive terminal and a plain line reader
// otherwise, e.g. when input is piped.
func runChat(ctx context.Context, bot responder, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "%s ready. Type 'exit' or 'quit' to leave.\n\n", bot.Name())
	if f, ok := in.(*os.File); ok && f == os.Stdin && readline.DefaultIsTerminal() {
		err := interactiveMode(ctx, bot, out)
		if err == nil {
			return nil
		}
		fmt.Fprintf(out, "Error initializing readline: %v\n", err)
		fmt.Fprintln(out, "Falling back to simple input mode...")
	}
	return simpleInteractiveMode(ctx, bot, in, out)
}

func interactiveMode(ctx context.Context, bot responder, out io.Writer) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "You: ",
		HistoryFile:     filepath.Join(os.TempDir(), ".wanderbot_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				fmt.Fprintln(out, "\nGoodbye!")
				return nil
			}
			fmt.Fprintf(out, "Error reading input: %v\n", err)
			continue
		}
		if done := handleLine(ctx, bot, line, out); done {
			return nil
		}
	}
}

func simpleInteractiveMode(ctx context.Context, bot responder, in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)
	for {
		fmt.Fprint(out, "You: ")
		line, err := reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(out, "\nGoodbye!")
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}
		if done := handleLine(ctx, bot, line, out); done {
			return nil
		}
		if err != nil {
			fmt.Fprintln(out, "\nGoodbye!")
			return nil
		}
	}
}

// handleLine answers one line and reports whether the session should end.
func handleLine(ctx context.Context, bot responder, line string, out io.Writer) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return false
	}
	if isExitCommand(input) {
		fmt.Fprintln(out, "Goodbye!")
		return true
	}

	reply, err := bot.Respond(ctx, input)
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return false
	}
	fmt.Fprintf(out, "\n%s:\n%s\n\n", bot.Name(), reply)
	return false
}
