// Command trpg is the terminal client for a shared TRPG session.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pterm/pterm"

	"github.com/DeweyHur/online-trpg/internal/adapter/gateway"
	"github.com/DeweyHur/online-trpg/internal/config"
	"github.com/DeweyHur/online-trpg/internal/domain"
	"github.com/DeweyHur/online-trpg/internal/prompt"
	"github.com/DeweyHur/online-trpg/internal/session"
	"github.com/DeweyHur/online-trpg/internal/terminal"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage:\n")
	fmt.Fprintf(os.Stderr, "  trpg create <gemini-api-key> <starting prompt...>\n")
	fmt.Fprintf(os.Stderr, "  trpg join <session-id>\n")
}

func main() {
	os.Exit(run(os.Args[1:]))
}

// run returns the process exit code so deferred cleanup always happens.
func run(argv []string) int {
	flags := flag.NewFlagSet("trpg", flag.ContinueOnError)
	flags.Usage = usage
	if err := flags.Parse(argv); err != nil {
		return 2
	}
	args := flags.Args()
	if len(args) == 0 {
		usage()
		return 2
	}

	cfg, err := config.LoadClient()
	if err != nil {
		pterm.Error.Println(err)
		return 1
	}

	// Create a new slog logger backed by the PTerm logger
	handler := pterm.NewSlogHandler(&pterm.DefaultLogger)
	logger := slog.New(handler)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gw := gateway.NewClient(cfg.GatewayURL, cfg.HTTPTimeout)
	view := terminal.NewView(os.Stdout)
	client := session.New(gw, gw, view, session.Options{
		PollInterval:    cfg.PollInterval,
		RerenderDelay:   cfg.RerenderDelay,
		StatsRequestTTL: cfg.StatsRequestTTL,
		ShortStatsCount: cfg.ShortStatsCount,
		Limiter:         cfg.Limiter(),
		Prompts:         prompt.New(cfg.Lang),
		Probe:           view,
		Logger:          logger,
	})
	defer client.Leave()

	var s *domain.Session
	switch args[0] {
	case "create":
		if len(args) < 3 {
			usage()
			return 2
		}
		s, err = create(ctx, client, args[1], strings.Join(args[2:], " "), logger)
	case "join":
		if len(args) != 2 {
			usage()
			return 2
		}
		s, err = client.Join(ctx, args[1])
	default:
		usage()
		return 2
	}
	if err != nil {
		return 1
	}

	pterm.Println(pterm.DefaultBox.WithTitle("Session").WithTitleTopCenter().Sprintf("Share this ID with your party:\n%s", pterm.LightCyan(s.ID)))
	pterm.Info.Println("Type /name <character> to join the table, /help for commands.")

	shell := terminal.NewShell(client, view)
	done := make(chan error, 1)
	go func() {
		done <- shell.Run(ctx, os.Stdin)
	}()

	select {
	case <-ctx.Done():
	case err := <-done:
		if err != nil {
			logger.Error("input closed", "error", err)
		}
	}
	pterm.Info.Println("Left the session.")
	return 0
}

// create starts a session behind a spinner. Without a spinner the wait is
// still announced once.
func create(ctx context.Context, client *session.Client, llmKey, startingPrompt string, logger *slog.Logger) (*domain.Session, error) {
	spinner, err := pterm.DefaultSpinner.Start("The GM is setting the scene...")
	if err != nil {
		logger.Warn("spinner unavailable", "error", err)
		pterm.Info.Println("The GM is setting the scene...")
		return client.Create(ctx, llmKey, startingPrompt)
	}

	s, err := client.Create(ctx, llmKey, startingPrompt)
	if err != nil {
		spinner.Fail("Could not start the adventure")
		return nil, err
	}
	spinner.Success("Adventure ready")
	return s, nil
}
