package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ericfisherdev/runreaper/internal/domain/model"
	"github.com/ericfisherdev/runreaper/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.EpisodeStore = (*EpisodeRepo)(nil)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// EpisodeRepo is the SQLite implementation of the EpisodeStore port interface.
type EpisodeRepo struct {
	db *DB
}

// NewEpisodeRepo creates a new EpisodeRepo backed by the given DB.
func NewEpisodeRepo(db *DB) *EpisodeRepo {
	return &EpisodeRepo{db: db}
}

// episodeRecord is the JSON document stored in the report column. Query and
// cancellation errors are flattened to strings.
type episodeRecord struct {
	Reason        string         `json:"reason,omitempty"`
	Queries       []queryRecord  `json:"queries"`
	Duplicates    []runRecord    `json:"duplicates"`
	Cancellations []cancelRecord `json:"cancellations"`
}

type queryRecord struct {
	Status     string      `json:"status"`
	Runs       []runRecord `json:"runs"`
	Error      string      `json:"error,omitempty"`
	StatusCode int         `json:"status_code,omitempty"`
}

type runRecord struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

type cancelRecord struct {
	RunID      int64  `json:"run_id"`
	Cancelled  bool   `json:"cancelled"`
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
}

// Save inserts a finished episode. Saving the same episode id twice replaces it.
func (r *EpisodeRepo) Save(ctx context.Context, report model.Report) error {
	doc, err := json.Marshal(toRecord(report))
	if err != nil {
		return fmt.Errorf("encode episode %s: %w", report.ID, err)
	}

	const query = `
		INSERT INTO episodes (
			id, repo_full_name, branch, workflow_id, workflow_name, activity_kind,
			run_id, outcome, dry_run, duplicates, cancelled, failed, report,
			started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			outcome = excluded.outcome,
			duplicates = excluded.duplicates,
			cancelled = excluded.cancelled,
			failed = excluded.failed,
			report = excluded.report,
			finished_at = excluded.finished_at
	`

	dryRun := 0
	if report.DryRun {
		dryRun = 1
	}

	_, err = r.db.Writer.ExecContext(ctx, query,
		report.ID, report.FullName(), report.Branch, report.WorkflowID, report.WorkflowName,
		report.ActivityKind, report.RunID, string(report.Outcome), dryRun,
		len(report.Duplicates), report.CancelledCount(), report.FailedCount(), string(doc),
		formatTime(report.StartedAt), formatTime(report.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("insert episode %s: %w", report.ID, err)
	}

	return nil
}

// GetByID returns the full report of an episode, or (nil, nil) if absent.
func (r *EpisodeRepo) GetByID(ctx context.Context, id string) (*model.Report, error) {
	const query = `
		SELECT id, repo_full_name, branch, workflow_id, workflow_name, activity_kind,
			run_id, outcome, dry_run, report, started_at, finished_at
		FROM episodes
		WHERE id = ?
	`

	var (
		report                model.Report
		repoFullName, doc     string
		outcome               string
		dryRun                int
		startedAt, finishedAt string
	)

	err := r.db.Reader.QueryRowContext(ctx, query, id).Scan(
		&report.ID, &repoFullName, &report.Branch, &report.WorkflowID, &report.WorkflowName,
		&report.ActivityKind, &report.RunID, &outcome, &dryRun, &doc, &startedAt, &finishedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get episode %s: %w", id, err)
	}

	report.Owner, report.Repo = splitFullName(repoFullName)
	report.Outcome = model.Outcome(outcome)
	report.DryRun = dryRun != 0

	if report.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if report.FinishedAt, err = parseTime(finishedAt); err != nil {
		return nil, fmt.Errorf("parse finished_at: %w", err)
	}

	var rec episodeRecord
	if err := json.Unmarshal([]byte(doc), &rec); err != nil {
		return nil, fmt.Errorf("decode episode %s: %w", id, err)
	}
	fromRecord(rec, &report)

	return &report, nil
}

// ListRecent returns up to limit episode summaries, newest first.
func (r *EpisodeRepo) ListRecent(ctx context.Context, limit int) ([]model.EpisodeSummary, error) {
	const query = `
		SELECT id, repo_full_name, branch, workflow_name, activity_kind, run_id,
			outcome, duplicates, cancelled, failed, finished_at
		FROM episodes
		ORDER BY finished_at DESC, id DESC
		LIMIT ?
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query episodes: %w", err)
	}
	defer rows.Close()

	summaries := []model.EpisodeSummary{}
	for rows.Next() {
		var s model.EpisodeSummary
		var outcome, finishedAt string

		if err := rows.Scan(
			&s.ID, &s.RepoFullName, &s.Branch, &s.WorkflowName, &s.ActivityKind, &s.RunID,
			&outcome, &s.Duplicates, &s.Cancelled, &s.Failed, &finishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan episode: %w", err)
		}

		s.Outcome = model.Outcome(outcome)
		if s.FinishedAt, err = parseTime(finishedAt); err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate episodes: %w", err)
	}

	return summaries, nil
}

func toRecord(report model.Report) episodeRecord {
	rec := episodeRecord{
		Reason:        report.Reason,
		Queries:       make([]queryRecord, 0, len(report.Queries)),
		Duplicates:    toRunRecords(report.Duplicates),
		Cancellations: make([]cancelRecord, 0, len(report.Cancellations)),
	}

	for _, q := range report.Queries {
		qr := queryRecord{
			Status:     string(q.Status),
			Runs:       toRunRecords(q.Runs),
			StatusCode: q.StatusCode,
		}
		if q.Err != nil {
			qr.Error = q.Err.Error()
		}
		rec.Queries = append(rec.Queries, qr)
	}

	for _, c := range report.Cancellations {
		rec.Cancellations = append(rec.Cancellations, cancelRecord(c))
	}

	return rec
}

func fromRecord(rec episodeRecord, report *model.Report) {
	report.Reason = rec.Reason

	for _, qr := range rec.Queries {
		q := model.StatusQueryResult{
			Status:     model.RunStatus(qr.Status),
			Runs:       fromRunRecords(qr.Runs),
			StatusCode: qr.StatusCode,
		}
		if qr.Error != "" {
			q.Err = errors.New(qr.Error)
		}
		report.Queries = append(report.Queries, q)
	}

	report.Duplicates = fromRunRecords(rec.Duplicates)

	for _, cr := range rec.Cancellations {
		report.Cancellations = append(report.Cancellations, model.CancellationOutcome(cr))
	}
}

func toRunRecords(runs []model.CandidateRun) []runRecord {
	out := make([]runRecord, 0, len(runs))
	for _, run := range runs {
		out = append(out, runRecord{ID: run.ID, CreatedAt: run.CreatedAt.UTC()})
	}
	return out
}

func fromRunRecords(recs []runRecord) []model.CandidateRun {
	out := make([]model.CandidateRun, 0, len(recs))
	for _, rec := range recs {
		out = append(out, model.CandidateRun{ID: rec.ID, CreatedAt: rec.CreatedAt})
	}
	return out
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	formats := []string{
		timeLayout,
		time.RFC3339Nano,
		"2006-01-02 15:04:05",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %q", s)
}

func splitFullName(fullName string) (string, string) {
	owner, repo, _ := strings.Cut(fullName, "/")
	return owner, repo
}
