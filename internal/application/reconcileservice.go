package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"github.com/ericfisherdev/runreaper/internal/domain/model"
	"github.com/ericfisherdev/runreaper/internal/domain/port/driven"
)

// ReconcileService cancels workflow runs made redundant by a newer run of the
// same workflow on the same branch. Each call to Reconcile is an independent
// episode built from fresh API queries.
type ReconcileService struct {
	runs     driven.RunClient
	episodes driven.EpisodeStore
	sink     driven.DiagnosticSink
	excluded map[string]bool
	logger   *slog.Logger
	now      func() time.Time
}

// NewReconcileService creates a ReconcileService. episodes may be nil, in
// which case reports are only logged. sink may be nil and defaults to a
// no-op. excludedKinds lists activity kinds (run events) that are never
// reconciled.
func NewReconcileService(
	runs driven.RunClient,
	episodes driven.EpisodeStore,
	sink driven.DiagnosticSink,
	excludedKinds []string,
	logger *slog.Logger,
) *ReconcileService {
	if sink == nil {
		sink = driven.NopSink{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	excluded := make(map[string]bool, len(excludedKinds))
	for _, kind := range excludedKinds {
		excluded[strings.ToLower(strings.TrimSpace(kind))] = true
	}

	return &ReconcileService{
		runs:     runs,
		episodes: episodes,
		sink:     sink,
		excluded: excluded,
		logger:   logger,
		now:      time.Now,
	}
}

// Reconcile runs one episode for ev and cancels every duplicate it finds.
// Failures are recorded in the returned report and never returned.
func (s *ReconcileService) Reconcile(ctx context.Context, ev model.TriggerEvent) model.Report {
	return s.reconcile(ctx, ev, false)
}

// Preview runs the same episode as Reconcile but issues no cancellations.
func (s *ReconcileService) Preview(ctx context.Context, ev model.TriggerEvent) model.Report {
	return s.reconcile(ctx, ev, true)
}

func (s *ReconcileService) reconcile(ctx context.Context, ev model.TriggerEvent, dryRun bool) model.Report {
	report := model.Report{
		ID:           newEpisodeID(),
		Owner:        ev.Owner,
		Repo:         ev.Repo,
		Branch:       ev.Branch,
		WorkflowID:   ev.WorkflowID,
		WorkflowName: ev.WorkflowName,
		ActivityKind: ev.ActivityKind,
		RunID:        ev.RunID,
		DryRun:       dryRun,
		StartedAt:    s.now().UTC(),
	}

	if reason := s.notApplicable(ev); reason != "" {
		report.Outcome = model.OutcomeNotApplicable
		report.Reason = reason
		return s.finish(ctx, report)
	}

	report.Queries = s.queryAll(ctx, ev)
	report.Duplicates = SelectDuplicates(ev, report.Queries)

	if len(report.Duplicates) == 0 {
		report.Outcome = model.OutcomeNoDuplicates
		return s.finish(ctx, report)
	}

	report.Outcome = model.OutcomeReconciled
	if !dryRun {
		report.Cancellations = s.cancelAll(ctx, ev, report.Duplicates)
	}

	return s.finish(ctx, report)
}

// notApplicable returns a non-empty reason when ev must not be reconciled.
func (s *ReconcileService) notApplicable(ev model.TriggerEvent) string {
	switch {
	case ev.WorkflowID == 0:
		return "missing workflow id"
	case ev.RunID == 0:
		return "missing run id"
	case s.excluded[strings.ToLower(ev.ActivityKind)]:
		return fmt.Sprintf("activity kind %q is excluded", ev.ActivityKind)
	}
	return ""
}

// queryAll lists runs for every status class concurrently and waits for all
// of them. A failed listing never prevents the others from completing.
func (s *ReconcileService) queryAll(ctx context.Context, ev model.TriggerEvent) []model.StatusQueryResult {
	p := pool.NewWithResults[model.StatusQueryResult]()
	for _, status := range model.QueriedStatuses {
		p.Go(func() model.StatusQueryResult {
			return s.query(ctx, ev, status)
		})
	}
	results := p.Wait()

	slices.SortFunc(results, func(a, b model.StatusQueryResult) int {
		return slices.Index(model.QueriedStatuses, a.Status) - slices.Index(model.QueriedStatuses, b.Status)
	})
	return results
}

func (s *ReconcileService) query(ctx context.Context, ev model.TriggerEvent, status model.RunStatus) model.StatusQueryResult {
	result := model.StatusQueryResult{Status: status}

	runs, err := s.runs.ListRuns(ctx, driven.RunQuery{
		Owner:        ev.Owner,
		Repo:         ev.Repo,
		WorkflowID:   ev.WorkflowID,
		Branch:       ev.Branch,
		ActivityKind: ev.ActivityKind,
		Status:       status,
	})
	if err != nil {
		result.Err = err
		result.StatusCode = statusCodeOf(err)
		s.logger.Warn("run listing failed",
			"repo", ev.FullName(),
			"workflow_id", ev.WorkflowID,
			"status", string(status),
			"http_status", result.StatusCode,
			"error", err,
		)
		return result
	}

	result.Runs = runs
	s.sink.Record("list_runs", map[string]any{
		"repo":        ev.FullName(),
		"workflow_id": ev.WorkflowID,
		"branch":      ev.Branch,
		"event":       ev.ActivityKind,
		"status":      status,
		"runs":        runs,
	})
	s.logger.Debug("runs listed",
		"repo", ev.FullName(),
		"status", string(status),
		"count", len(runs),
	)

	return result
}

// cancelAll requests cancellation of every duplicate concurrently and waits
// for all requests to settle. Outcomes are returned in duplicate order.
func (s *ReconcileService) cancelAll(ctx context.Context, ev model.TriggerEvent, duplicates []model.CandidateRun) []model.CancellationOutcome {
	p := pool.NewWithResults[model.CancellationOutcome]()
	for _, dup := range duplicates {
		p.Go(func() model.CancellationOutcome {
			return s.cancel(ctx, ev, dup.ID)
		})
	}
	outcomes := p.Wait()

	order := make(map[int64]int, len(duplicates))
	for i, dup := range duplicates {
		order[dup.ID] = i
	}
	slices.SortFunc(outcomes, func(a, b model.CancellationOutcome) int {
		return order[a.RunID] - order[b.RunID]
	})
	return outcomes
}

func (s *ReconcileService) cancel(ctx context.Context, ev model.TriggerEvent, runID int64) model.CancellationOutcome {
	outcome := model.CancellationOutcome{RunID: runID}

	if err := s.runs.CancelRun(ctx, ev.Owner, ev.Repo, runID); err != nil {
		outcome.StatusCode = statusCodeOf(err)
		outcome.Message = err.Error()
		s.logger.Warn("run cancellation failed",
			"repo", ev.FullName(),
			"run_id", runID,
			"http_status", outcome.StatusCode,
			"error", err,
		)
	} else {
		outcome.Cancelled = true
		outcome.StatusCode = http.StatusAccepted
		outcome.Message = fmt.Sprintf("Canceled run %d", runID)
	}

	s.sink.Record("cancel_run", outcome)
	return outcome
}

// finish stamps, logs and stores the report. Storage failures are logged only.
func (s *ReconcileService) finish(ctx context.Context, report model.Report) model.Report {
	report.FinishedAt = s.now().UTC()

	s.logger.Info("reconciliation report",
		"episode", report.ID,
		"repo", report.FullName(),
		"branch", report.Branch,
		"workflow", report.WorkflowName,
		"run_id", report.RunID,
		"outcome", string(report.Outcome),
		"duplicates", len(report.Duplicates),
		"cancelled", report.CancelledCount(),
		"failed", report.FailedCount(),
		"dry_run", report.DryRun,
		"duration", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond),
		"report", FormatReport(report),
	)

	if s.episodes != nil {
		if err := s.episodes.Save(ctx, report); err != nil {
			s.logger.Error("save episode failed", "episode", report.ID, "error", err)
		}
	}

	return report
}

// statusCodeOf extracts the HTTP status from an API error, or 0.
func statusCodeOf(err error) int {
	var apiErr *driven.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// newEpisodeID returns a time-ordered UUID so stored episodes sort by id.
func newEpisodeID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
