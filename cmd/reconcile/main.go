// reconcile runs a single duplicate-run reconciliation episode for one
// workflow run and prints the report. With --dry-run it selects duplicates
// without cancelling them.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	githubadapter "github.com/ericfisherdev/runreaper/internal/adapter/driven/github"
	"github.com/ericfisherdev/runreaper/internal/application"
	"github.com/ericfisherdev/runreaper/internal/config"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var (
		repoFlag string
		runID    int64
		dryRun   bool
		token    string
	)

	flagSet := pflag.NewFlagSet("reconcile", pflag.ContinueOnError)
	flagSet.StringVar(&repoFlag, "repo", "", "repository in owner/name form (required)")
	flagSet.Int64Var(&runID, "run-id", 0, "workflow run to reconcile against (required)")
	flagSet.BoolVar(&dryRun, "dry-run", false, "report duplicates without cancelling them")
	flagSet.StringVar(&token, "token", "", "GitHub token (default: $"+config.EnvGitHubToken+")")

	if err := flagSet.Parse(args); err != nil {
		return err
	}

	owner, repo, ok := strings.Cut(repoFlag, "/")
	if !ok || owner == "" || repo == "" {
		return fmt.Errorf("--repo must be owner/name, got %q", repoFlag)
	}
	if runID <= 0 {
		return errors.New("--run-id is required")
	}

	if token != "" {
		if err := os.Setenv(config.EnvGitHubToken, token); err != nil {
			return fmt.Errorf("setting token: %w", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := githubadapter.NewClient(cfg.GitHubToken, cfg.RepoConfigPath)

	ev, err := client.GetRun(ctx, owner, repo, runID)
	if err != nil {
		return err
	}

	svc := application.NewReconcileService(client, nil, nil, cfg.ExcludedEvents, logger)

	reconcile := svc.Reconcile
	if dryRun {
		reconcile = svc.Preview
	}

	fmt.Print(application.FormatReport(reconcile(ctx, *ev)))
	return nil
}
