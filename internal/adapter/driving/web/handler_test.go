package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/runreaper/internal/domain/model"
)

type stubEpisodeStore struct {
	report    *model.Report
	summaries []model.EpisodeSummary
	err       error
}

func (s *stubEpisodeStore) Save(_ context.Context, _ model.Report) error { return nil }
func (s *stubEpisodeStore) GetByID(_ context.Context, _ string) (*model.Report, error) {
	return s.report, s.err
}
func (s *stubEpisodeStore) ListRecent(_ context.Context, _ int) ([]model.EpisodeSummary, error) {
	return s.summaries, s.err
}

func serve(t *testing.T, store *stubEpisodeStore, path string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	RegisterRoutes(mux, NewHandler(store, 10, slog.Default()))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestEpisode_RendersReport(t *testing.T) {
	finished := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	store := &stubEpisodeStore{report: &model.Report{
		ID:           "ep-1",
		Owner:        "owner",
		Repo:         "repo",
		Branch:       "<b>main</b>",
		WorkflowName: "CI",
		ActivityKind: "push",
		RunID:        100,
		Outcome:      model.OutcomeReconciled,
		Queries: []model.StatusQueryResult{
			{Status: model.RunStatusQueued, Runs: []model.CandidateRun{{ID: 50}}},
		},
		Duplicates:    []model.CandidateRun{{ID: 50}},
		Cancellations: []model.CancellationOutcome{{RunID: 50, Cancelled: true, StatusCode: 202}},
		FinishedAt:    finished,
	}}

	rec := serve(t, store, "/episodes/ep-1")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "<h3>Duplicate run reconciliation</h3>")
	assert.Contains(t, body, "<table>")
	assert.Contains(t, body, "Canceled run 50")
	assert.Contains(t, body, "2026-02-10T12:00:00Z")
	assert.NotContains(t, body, "<b>main</b>")
}

func TestEpisode_NotFound(t *testing.T) {
	rec := serve(t, &stubEpisodeStore{}, "/episodes/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEpisode_StoreError(t *testing.T) {
	rec := serve(t, &stubEpisodeStore{err: errors.New("db down")}, "/episodes/ep-1")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestEpisodes_ListsSummaries(t *testing.T) {
	store := &stubEpisodeStore{summaries: []model.EpisodeSummary{
		{ID: "ep-2", RepoFullName: "owner/repo", Branch: "main", WorkflowName: "CI", RunID: 101, Outcome: model.OutcomeNoDuplicates},
		{ID: "ep-1", RepoFullName: "owner/repo", Branch: "main", WorkflowName: "CI", RunID: 100, Outcome: model.OutcomeReconciled, Cancelled: 1},
	}}

	rec := serve(t, store, "/episodes")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `href="/episodes/ep-2"`)
	assert.Contains(t, body, `href="/episodes/ep-1"`)
	assert.Contains(t, body, "no_duplicates")
}

func TestEpisodes_Empty(t *testing.T) {
	rec := serve(t, &stubEpisodeStore{}, "/episodes")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No episodes recorded yet.")
}
