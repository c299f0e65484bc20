// onboard runs the first-run wizard in a terminal: it replaces a phone
// placeholder name, creates a workspace and shows the command that links a
// chat group to it.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/fazosimples/botfut/internal/activation"
	"github.com/fazosimples/botfut/internal/identity"
	"github.com/fazosimples/botfut/internal/logging"
	"github.com/fazosimples/botfut/internal/notification"
	"github.com/fazosimples/botfut/internal/onboarding"
	"github.com/fazosimples/botfut/internal/tui"
	"github.com/fazosimples/botfut/internal/upstream"
	"github.com/fazosimples/botfut/internal/workspace"
)

const defaultBotContact = "+55 11 99999-0000"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	var (
		apiURL     string
		token      string
		botContact string
		logLevel   string
		logFile    string
		timeout    time.Duration
	)

	flagSet := pflag.NewFlagSet("onboard", pflag.ContinueOnError)
	flagSet.StringVar(&apiURL, "api", os.Getenv("UPSTREAM_BASE_URL"), "league API base URL")
	flagSet.StringVar(&token, "token", os.Getenv("BOTFUT_TOKEN"), "bearer credential (default: $BOTFUT_TOKEN)")
	flagSet.StringVar(&botContact, "bot-contact", envOr("BOT_CONTACT", defaultBotContact), "phone number of the bot shown in the instructions")
	flagSet.StringVar(&logLevel, "log-level", envOr("LOG_LEVEL", "info"), "log level")
	flagSet.StringVar(&logFile, "log-file", "", "write JSON log records to this file")
	flagSet.DurationVar(&timeout, "timeout", 15*time.Second, "timeout for each API call")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}

	apiURL = strings.TrimSpace(apiURL)
	token = strings.TrimSpace(token)
	if apiURL == "" {
		return errors.New("--api or UPSTREAM_BASE_URL is required")
	}
	if token == "" {
		return errors.New("--token or BOTFUT_TOKEN is required")
	}

	var logOutput io.Writer = io.Discard
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logOutput = f
	}
	logger := logging.NewWithWriter(logOutput, logLevel, "json")

	ctx := context.Background()
	client := upstream.New(apiURL, timeout, logger)
	identities := identity.NewService(client, identity.NewMemoryStore(), logger)

	user, err := identities.Current(ctx, token)
	if err != nil {
		return fmt.Errorf("load identity: %s", upstream.UserMessage(err, err.Error()))
	}

	wizard := onboarding.New(user, onboarding.Deps{
		Token:      token,
		Profiles:   identities,
		Workspaces: workspace.NewProvisioner(client, notification.NewLoggerNotifier(logger), logger),
		Logger:     logger,
	})
	copier := activation.NewCopier(activation.SystemClipboard{}, activation.OSC52Clipboard{}, nil, logger)

	final, err := tea.NewProgram(tui.New(ctx, wizard, copier, botContact)).Run()
	if err != nil {
		return fmt.Errorf("run terminal UI: %w", err)
	}
	model, ok := final.(tui.Model)
	if !ok {
		return tui.ErrAborted
	}
	exit, ok := model.Exit()
	if !ok {
		return tui.ErrAborted
	}
	fmt.Println(exit.Destination)
	return nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, "onboard: set up your first workspace\n\nUsage:\n  onboard [flags]\n\nFlags:\n")
	flagSet.PrintDefaults()
}
