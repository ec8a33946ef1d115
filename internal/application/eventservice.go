package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/ericfisherdev/runreaper/internal/domain/model"
	"github.com/ericfisherdev/runreaper/internal/domain/port/driven"
)

// EventService performs the single-call remediation actions for pull
// request, issue and comment events. Each action is gated by the
// repository's own config file.
type EventService struct {
	writer  driven.RepoWriter
	configs driven.RepoConfigLoader
	logger  *slog.Logger
}

// NewEventService creates an EventService.
func NewEventService(writer driven.RepoWriter, configs driven.RepoConfigLoader, logger *slog.Logger) *EventService {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventService{
		writer:  writer,
		configs: configs,
		logger:  logger,
	}
}

// GreetPullRequest comments a binder link on a newly opened pull request when
// the repository enables addBinderLink.
func (s *EventService) GreetPullRequest(ctx context.Context, ev model.PullRequestOpened) error {
	cfg, err := s.configs.FetchRepoConfig(ctx, ev.Owner, ev.Repo)
	if err != nil {
		return fmt.Errorf("loading config for %s/%s: %w", ev.Owner, ev.Repo, err)
	}

	if !cfg.AddBinderLink {
		s.logger.Info("skipping binder link", "repo", ev.Owner+"/"+ev.Repo, "pr", ev.Number)
		return nil
	}

	body := BinderComment(ev.HeadUser, ev.HeadRepo, ev.HeadRef, cfg.BinderURLSuffix)
	if err := s.writer.CreateIssueComment(ctx, ev.Owner, ev.Repo, ev.Number, body); err != nil {
		return err
	}

	s.logger.Info("binder link posted", "repo", ev.Owner+"/"+ev.Repo, "pr", ev.Number)
	return nil
}

// TriageIssue applies the repository's triage label to a newly opened issue.
func (s *EventService) TriageIssue(ctx context.Context, ev model.IssueOpened) error {
	cfg, err := s.configs.FetchRepoConfig(ctx, ev.Owner, ev.Repo)
	if err != nil {
		return fmt.Errorf("loading config for %s/%s: %w", ev.Owner, ev.Repo, err)
	}

	if cfg.TriageLabel == "" {
		return nil
	}

	if err := s.writer.AddLabels(ctx, ev.Owner, ev.Repo, ev.Number, []string{cfg.TriageLabel}); err != nil {
		return err
	}

	s.logger.Info("triage label applied", "repo", ev.Owner+"/"+ev.Repo, "issue", ev.Number, "label", cfg.TriageLabel)
	return nil
}

// RestartOnRequest closes and reopens a pull request whose new comment
// contains the repository's restart phrase, which re-triggers its workflows.
func (s *EventService) RestartOnRequest(ctx context.Context, ev model.CommentCreated) error {
	if !ev.IsPullRequest {
		return nil
	}

	cfg, err := s.configs.FetchRepoConfig(ctx, ev.Owner, ev.Repo)
	if err != nil {
		return fmt.Errorf("loading config for %s/%s: %w", ev.Owner, ev.Repo, err)
	}

	phrase := strings.TrimSpace(cfg.RestartPhrase)
	if phrase == "" || !strings.Contains(strings.ToLower(ev.Body), strings.ToLower(phrase)) {
		return nil
	}

	if err := s.writer.SetIssueState(ctx, ev.Owner, ev.Repo, ev.Number, "closed"); err != nil {
		return fmt.Errorf("closing %s/%s#%d for restart: %w", ev.Owner, ev.Repo, ev.Number, err)
	}
	if err := s.writer.SetIssueState(ctx, ev.Owner, ev.Repo, ev.Number, "open"); err != nil {
		return fmt.Errorf("reopening %s/%s#%d after restart: %w", ev.Owner, ev.Repo, ev.Number, err)
	}

	s.logger.Info("pull request restarted", "repo", ev.Owner+"/"+ev.Repo, "pr", ev.Number, "requested_by", ev.Author)
	return nil
}

// BinderComment builds the greeting posted on new pull requests. ref is
// escaped as a single path segment so branch names containing "/" survive.
func BinderComment(user, repo, ref, urlSuffix string) string {
	link := fmt.Sprintf("https://mybinder.org/v2/gh/%s/%s/%s%s", user, repo, url.PathEscape(ref), urlSuffix)
	return fmt.Sprintf("Thanks for making a pull request to %s!\n"+
		"To try out this branch on [binder](https://mybinder.org), follow this link: "+
		"[![Binder](https://mybinder.org/badge_logo.svg)](%s)", repo, link)
}
