package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dotsetgreg/wanderbot/pkg/agent"
	"github.com/dotsetgreg/wanderbot/pkg/config"
	"github.com/dotsetgreg/wanderbot/pkg/extract"
	"github.com/dotsetgreg/wanderbot/pkg/logger"
	"github.com/dotsetgreg/wanderbot/pkg/profile"
	"github.com/dotsetgreg/wanderbot/pkg/providers"
	"github.com/dotsetgreg/wanderbot/pkg/telemetry"
)

const telemetryShutdownTimeout = 5 * time.Second

// annotationSkipValidation marks commands that must run even when the
// resolved configuration is invalid.
const annotationSkipValidation = "wanderbot/skip-config-validation"

// cliState carries what PersistentPreRunE resolved into the subcommands.
type cliState struct {
	configPath string
	debug      bool

	cfg      *config.Config
	inst     *telemetry.Instruments
	shutdown func(context.Context) error
}

func executeCLI() error {
	return buildRootCommand().Execute()
}

func buildRootCommand() *cobra.Command {
	state := &cliState{}
	var showVersion bool

	root := &cobra.Command{
		Use:   appName,
		Short: "Travel-planning chat assistant backed by Gemini",
		Long: strings.TrimSpace(`wanderbot is a travel-planning assistant for Indian travellers.

It keeps a bounded conversation memory, redacts personal data, plans simple
hotel and weather lookups, and asks Gemini for the answer. Without an API key
it answers from a local offline plan.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		Annotations:   map[string]string{annotationSkipValidation: "true"},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return state.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return state.teardown()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				printVersion(cmd.OutOrStdout())
				return nil
			}
			_ = cmd.Help()
			return fmt.Errorf("a subcommand is required")
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.Flags().BoolVarP(&showVersion, "version", "v", false, "Show build/version metadata")
	root.PersistentFlags().StringVarP(&state.configPath, "config", "c", config.DefaultPath(), "Path to the TOML config file")
	root.PersistentFlags().BoolVarP(&state.debug, "debug", "d", false, "Enable debug logging")

	root.AddCommand(newChatCommand(state))
	root.AddCommand(newAskCommand(state))
	root.AddCommand(newParseCommand(state))
	root.AddCommand(newStatusCommand(state))
	root.AddCommand(newOnboardCommand(state))
	root.AddCommand(newVersionCommand())

	return root
}

func (s *cliState) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(s.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cmd.Annotations[annotationSkipValidation] == "" {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
	}
	s.cfg = cfg

	logger.SetOutput(cmd.ErrOrStderr(), cfg.Log.Format == "json")
	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
	if s.debug {
		logger.SetLevel(logger.DEBUG)
	}

	shutdown, err := telemetry.Init(cmd.Context(), cfg.Telemetry)
	if err != nil {
		logger.WarnCF("telemetry", "Telemetry disabled",
			map[string]interface{}{"error": err.Error()})
	}
	s.shutdown = shutdown
	s.inst = telemetry.Default()
	return nil
}

func (s *cliState) teardown() error {
	if s.shutdown == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
	defer cancel()
	if err := s.shutdown(ctx); err != nil {
		logger.WarnCF("telemetry", "Telemetry shutdown failed",
			map[string]interface{}{"error": err.Error()})
	}
	return nil
}

func newChatCommand(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:     "chat",
		Short:   "Start an interactive travel-planning session",
		Long:    "Read one message per line and print WanderBot's answer. Type exit or quit, or send EOF, to leave.",
		Example: "  wanderbot chat",
		RunE: func(cmd *cobra.Command, args []string) error {
			bot, err := agent.NewBotFromConfig(state.cfg, state.inst)
			if err != nil {
				return err
			}
			logger.InfoCF("agent", "Chat session started",
				map[string]interface{}{
					"session_id": bot.SessionID(),
					"model":      state.cfg.Gemini.Model,
					"live":       state.cfg.HasAPIKey(),
				})
			return runChat(cmd.Context(), bot, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func newAskCommand(state *cliState) *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "ask",
		Short: "Send a single message and print the answer",
		Example: strings.Join([]string{
			"  wanderbot ask -m \"cheap hotels in Munnar under ₹2000\"",
			"  wanderbot ask -m \"weather in Chennai\" --debug",
		}, "\n"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(message) == "" {
				return fmt.Errorf("--message is required")
			}
			bot, err := agent.NewBotFromConfig(state.cfg, state.inst)
			if err != nil {
				return err
			}
			answer, err := bot.Respond(cmd.Context(), message)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), answer)
			return nil
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "Message to send")
	return cmd
}

func newParseCommand(state *cliState) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Convert a travel write-up into structured JSON",
		Long:  "Extract name, location, description, season and recommended_activity from a free-form travel submission read from --file or stdin.",
		Example: strings.Join([]string{
			"  wanderbot parse --file trip.txt",
			"  echo \"Spent a rainy week in Coorg...\" | wanderbot parse",
		}, "\n"),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readSubmission(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			provider, err := providers.CreateProvider(state.cfg, state.inst)
			if err != nil {
				return err
			}
			parser, err := extract.NewParser(provider)
			if err != nil {
				return err
			}
			sub, ok := parser.Parse(cmd.Context(), text)
			if !ok {
				return errors.New("no structured submission could be extracted")
			}
			data, err := json.MarshalIndent(sub, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the submission from this file instead of stdin")
	return cmd
}

func readSubmission(stdin io.Reader, file string) (string, error) {
	var (
		data []byte
		err  error
	)
	if strings.TrimSpace(file) != "" {
		data, err = os.ReadFile(file)
	} else {
		data, err = io.ReadAll(stdin)
	}
	if err != nil {
		return "", fmt.Errorf("read submission: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", errors.New("submission is empty")
	}
	return text, nil
}

func newStatusCommand(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Short:   "Show resolved configuration, profile and tools",
		Example: "  wanderbot status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printStatus(cmd.OutOrStdout(), state)
		},
	}
}

func printStatus(w io.Writer, state *cliState) error {
	cfg := state.cfg
	fmt.Fprintf(w, "%s Status\n", appName)
	fmt.Fprintf(w, "Version: %s\n\n", formatVersion())

	if _, err := os.Stat(state.configPath); err == nil {
		fmt.Fprintln(w, "Config:", state.configPath, "✓")
	} else {
		fmt.Fprintln(w, "Config:", state.configPath, "✗ (using defaults and environment)")
	}

	apiKey := "not set (offline fallback)"
	if cfg.HasAPIKey() {
		apiKey = "set"
	} else if !cfg.Gemini.OfflineFallback {
		apiKey = "not set (required)"
	}
	fmt.Fprintf(w, "API key: %s\n", apiKey)
	fmt.Fprintf(w, "Model: %s (%s)\n", cfg.Gemini.Model, cfg.Gemini.APIVersion)
	fmt.Fprintf(w, "Endpoint: %s\n", cfg.Gemini.APIBase)
	fmt.Fprintf(w, "Auth mode: %s\n", cfg.Gemini.AuthMode)
	fmt.Fprintf(w, "Memory: max %d tokens, target %d tokens\n", cfg.Memory.MaxTokens, cfg.Memory.TargetContextTokens)
	fmt.Fprintf(w, "Telemetry: %v\n", cfg.Telemetry.Enabled)

	p, err := profile.Load(cfg.ProfilePath())
	if err != nil {
		fmt.Fprintf(w, "Profile: error: %v\n", err)
		return nil
	}
	source := "built-in"
	if path := cfg.ProfilePath(); path != "" {
		source = path
	}
	fmt.Fprintf(w, "Profile: %s (%s)\n", p.Name, source)
	if len(p.Tools) == 0 {
		fmt.Fprintln(w, "Tools: none")
		return nil
	}
	fmt.Fprintln(w, "Tools:")
	for _, t := range p.Tools {
		fmt.Fprintf(w, "  - %s: %s\n", t.Name, t.Description)
	}
	return nil
}

func newOnboardCommand(state *cliState) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:         "onboard",
		Short:       "Write a starter config and bot profile",
		Long:        "Create the config file and an editable copy of the built-in WanderBot profile next to it.",
		Example:     "  wanderbot onboard\n  wanderbot onboard --config ./wanderbot.toml --force",
		Annotations: map[string]string{annotationSkipValidation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return onboard(cmd.OutOrStdout(), state.configPath, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")
	return cmd
}

func onboard(w io.Writer, configPath string, force bool) error {
	profilePath := filepath.Join(filepath.Dir(configPath), "profile.yaml")
	if !force {
		for _, path := range []string{configPath, profilePath} {
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
		}
	}

	cfg := config.DefaultConfig()
	cfg.Bot.Profile = profilePath
	if err := config.SaveConfig(configPath, cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	if err := os.WriteFile(profilePath, profile.DefaultYAML(), 0o644); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}

	fmt.Fprintf(w, "%s is ready!\n", appName)
	fmt.Fprintln(w, "\nNext steps:")
	fmt.Fprintln(w, "  1. Export GENAI_API_KEY or set gemini.api_key in", configPath)
	fmt.Fprintln(w, "     Get one at: https://aistudio.google.com/apikey")
	fmt.Fprintln(w, "  2. Edit the bot persona and tools in", profilePath)
	fmt.Fprintln(w, "  3. Chat: wanderbot chat")
	fmt.Fprintln(w, "  4. Check readiness: wanderbot status")
	return nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Show build/version metadata",
		Example:     "  wanderbot version",
		Annotations: map[string]string{annotationSkipValidation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			printVersion(cmd.OutOrStdout())
			return nil
		},
	}
}
