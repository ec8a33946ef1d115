package httphandler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	httphandler "github.com/ericfisherdev/runreaper/internal/adapter/driving/http"
	"github.com/ericfisherdev/runreaper/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock implementations ---

type mockEpisodeStore struct {
	summaries []model.EpisodeSummary
	report    *model.Report
	err       error
	lastLimit int
}

func (m *mockEpisodeStore) Save(_ context.Context, _ model.Report) error { return nil }
func (m *mockEpisodeStore) GetByID(_ context.Context, _ string) (*model.Report, error) {
	return m.report, m.err
}
func (m *mockEpisodeStore) ListRecent(_ context.Context, limit int) ([]model.EpisodeSummary, error) {
	m.lastLimit = limit
	return m.summaries, m.err
}

// --- Test helpers ---

var testTime = time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

func setupMux(store *mockEpisodeStore) http.Handler {
	mux := http.NewServeMux()
	httphandler.RegisterAPIRoutes(mux, httphandler.NewHandler(store, 50, slog.Default()))
	return httphandler.ApplyMiddleware(mux, slog.Default())
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	err := json.NewDecoder(rec.Body).Decode(v)
	require.NoError(t, err)
}

func sampleReport() *model.Report {
	return &model.Report{
		ID:           "ep-1",
		Owner:        "owner",
		Repo:         "repo",
		Branch:       "main",
		WorkflowID:   42,
		WorkflowName: "CI",
		ActivityKind: "push",
		RunID:        100,
		Outcome:      model.OutcomeReconciled,
		Queries: []model.StatusQueryResult{
			{Status: model.RunStatusQueued, Runs: []model.CandidateRun{{ID: 50, CreatedAt: testTime.Add(-time.Minute)}}},
			{Status: model.RunStatusInProgress, Err: errors.New("boom"), StatusCode: 502},
			{Status: model.RunStatusRequested},
		},
		Duplicates: []model.CandidateRun{{ID: 50, CreatedAt: testTime.Add(-time.Minute)}},
		Cancellations: []model.CancellationOutcome{
			{RunID: 50, Cancelled: true, StatusCode: 202, Message: "Canceled run 50"},
		},
		StartedAt:  testTime,
		FinishedAt: testTime.Add(time.Second),
	}
}

// --- Tests ---

func TestListEpisodes(t *testing.T) {
	tests := []struct {
		name       string
		store      *mockEpisodeStore
		query      string
		wantStatus int
		wantLen    int
		wantLimit  int
	}{
		{
			name:       "empty list",
			store:      &mockEpisodeStore{},
			wantStatus: http.StatusOK,
			wantLen:    0,
			wantLimit:  50,
		},
		{
			name: "uses limit parameter",
			store: &mockEpisodeStore{summaries: []model.EpisodeSummary{
				{ID: "b", RepoFullName: "owner/repo", Outcome: model.OutcomeReconciled, Duplicates: 2, Cancelled: 1, Failed: 1, FinishedAt: testTime},
				{ID: "a", RepoFullName: "owner/repo", Outcome: model.OutcomeNoDuplicates, FinishedAt: testTime},
			}},
			query:      "?limit=2",
			wantStatus: http.StatusOK,
			wantLen:    2,
			wantLimit:  2,
		},
		{
			name:       "invalid limit",
			store:      &mockEpisodeStore{},
			query:      "?limit=abc",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "limit too large",
			store:      &mockEpisodeStore{},
			query:      "?limit=100000",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "store error",
			store:      &mockEpisodeStore{err: errors.New("db down")},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := setupMux(tt.store)
			req := httptest.NewRequest(http.MethodGet, "/api/v1/episodes"+tt.query, nil)
			rec := httptest.NewRecorder()

			mux.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus != http.StatusOK {
				return
			}

			var resp []map[string]any
			decodeJSON(t, rec, &resp)
			assert.Len(t, resp, tt.wantLen)
			assert.Equal(t, tt.wantLimit, tt.store.lastLimit)
		})
	}
}

func TestListEpisodes_Fields(t *testing.T) {
	store := &mockEpisodeStore{summaries: []model.EpisodeSummary{{
		ID: "ep-1", RepoFullName: "owner/repo", Branch: "main", WorkflowName: "CI",
		ActivityKind: "push", RunID: 100, Outcome: model.OutcomeReconciled,
		Duplicates: 2, Cancelled: 1, Failed: 1, FinishedAt: testTime,
	}}}
	mux := setupMux(store)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/episodes", nil)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []map[string]any
	decodeJSON(t, rec, &resp)
	require.Len(t, resp, 1)
	assert.Equal(t, "ep-1", resp[0]["id"])
	assert.Equal(t, "owner/repo", resp[0]["repository"])
	assert.Equal(t, "reconciled", resp[0]["outcome"])
	assert.Equal(t, float64(2), resp[0]["duplicates"])
	assert.Equal(t, float64(1), resp[0]["failed"])
	assert.Equal(t, "2026-02-10T12:00:00Z", resp[0]["finished_at"])
}

func TestGetEpisode(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		mux := setupMux(&mockEpisodeStore{report: sampleReport()})
		req := httptest.NewRequest(http.MethodGet, "/api/v1/episodes/ep-1", nil)
		rec := httptest.NewRecorder()

		mux.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp httphandler.ReportResponse
		decodeJSON(t, rec, &resp)
		assert.Equal(t, "ep-1", resp.ID)
		assert.Equal(t, "owner/repo", resp.Repository)
		assert.Equal(t, "reconciled", resp.Outcome)
		require.Len(t, resp.Queries, 3)
		assert.Equal(t, "boom", resp.Queries[1].Error)
		assert.Equal(t, 502, resp.Queries[1].StatusCode)
		require.Len(t, resp.Duplicates, 1)
		assert.Equal(t, int64(50), resp.Duplicates[0].ID)
		require.Len(t, resp.Cancellations, 1)
		assert.True(t, resp.Cancellations[0].Cancelled)
		assert.Contains(t, resp.Text, "Canceled run 50")
	})

	t.Run("not found", func(t *testing.T) {
		mux := setupMux(&mockEpisodeStore{})
		req := httptest.NewRequest(http.MethodGet, "/api/v1/episodes/missing", nil)
		rec := httptest.NewRecorder()

		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		var resp map[string]string
		decodeJSON(t, rec, &resp)
		assert.Equal(t, "episode not found", resp["error"])
	})

	t.Run("store error", func(t *testing.T) {
		mux := setupMux(&mockEpisodeStore{err: errors.New("db down")})
		req := httptest.NewRequest(http.MethodGet, "/api/v1/episodes/ep-1", nil)
		rec := httptest.NewRecorder()

		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestHealth(t *testing.T) {
	mux := setupMux(&mockEpisodeStore{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "ok", resp["status"])
	assert.NotEmpty(t, resp["time"])
}

func TestRecoveryMiddleware(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /panic", func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	})
	handler := httphandler.ApplyMiddleware(mux, slog.Default())

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLoggingMiddleware_RecordsWebhookDelivery(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhook", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	handler := httphandler.ApplyMiddleware(mux, logger)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{}"))
	req.Header.Set("X-GitHub-Delivery", "72d3162e-cc78-11e3-81ab-4c9367dc0958")
	req.Header.Set("X-GitHub-Event", "workflow_run")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "http request", line["msg"])
	assert.Equal(t, "72d3162e-cc78-11e3-81ab-4c9367dc0958", line["delivery"])
	assert.Equal(t, "workflow_run", line["event"])
	assert.Equal(t, float64(http.StatusAccepted), line["status"])
}

func TestLoggingMiddleware_OmitsDeliveryForAPIRequests(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	mux := http.NewServeMux()
	httphandler.RegisterAPIRoutes(mux, httphandler.NewHandler(&mockEpisodeStore{}, 50, logger))
	handler := httphandler.ApplyMiddleware(mux, logger)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "/api/v1/health", line["path"])
	assert.NotContains(t, line, "delivery")
	assert.NotContains(t, line, "event")
}
