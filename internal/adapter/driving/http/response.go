package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/runreaper/internal/application"
	"github.com/ericfisherdev/runreaper/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the JSON representation of the health check.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// EpisodeSummaryResponse is the JSON representation of one listed episode.
type EpisodeSummaryResponse struct {
	ID           string `json:"id"`
	Repository   string `json:"repository"`
	Branch       string `json:"branch"`
	Workflow     string `json:"workflow"`
	ActivityKind string `json:"activity_kind"`
	RunID        int64  `json:"run_id"`
	Outcome      string `json:"outcome"`
	Duplicates   int    `json:"duplicates"`
	Cancelled    int    `json:"cancelled"`
	Failed       int    `json:"failed"`
	FinishedAt   string `json:"finished_at"`
}

// ReportResponse is the JSON representation of a full reconciliation report.
type ReportResponse struct {
	ID            string                 `json:"id"`
	Repository    string                 `json:"repository"`
	Branch        string                 `json:"branch"`
	WorkflowID    int64                  `json:"workflow_id"`
	Workflow      string                 `json:"workflow"`
	ActivityKind  string                 `json:"activity_kind"`
	RunID         int64                  `json:"run_id"`
	Outcome       string                 `json:"outcome"`
	Reason        string                 `json:"reason,omitempty"`
	DryRun        bool                   `json:"dry_run"`
	Queries       []QueryResponse        `json:"queries"`
	Duplicates    []RunResponse          `json:"duplicates"`
	Cancellations []CancellationResponse `json:"cancellations"`
	StartedAt     string                 `json:"started_at"`
	FinishedAt    string                 `json:"finished_at"`
	Text          string                 `json:"text"`
}

// QueryResponse is the JSON representation of one status-class listing.
type QueryResponse struct {
	Status     string        `json:"status"`
	Runs       []RunResponse `json:"runs"`
	Error      string        `json:"error,omitempty"`
	StatusCode int           `json:"status_code,omitempty"`
}

// RunResponse is the JSON representation of a candidate run.
type RunResponse struct {
	ID        int64  `json:"id"`
	CreatedAt string `json:"created_at"`
}

// CancellationResponse is the JSON representation of one cancel request.
type CancellationResponse struct {
	RunID      int64  `json:"run_id"`
	Cancelled  bool   `json:"cancelled"`
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
}

func toEpisodeSummaryResponse(s model.EpisodeSummary) EpisodeSummaryResponse {
	return EpisodeSummaryResponse{
		ID:           s.ID,
		Repository:   s.RepoFullName,
		Branch:       s.Branch,
		Workflow:     s.WorkflowName,
		ActivityKind: s.ActivityKind,
		RunID:        s.RunID,
		Outcome:      string(s.Outcome),
		Duplicates:   s.Duplicates,
		Cancelled:    s.Cancelled,
		Failed:       s.Failed,
		FinishedAt:   s.FinishedAt.UTC().Format(time.RFC3339),
	}
}

func toReportResponse(r model.Report) ReportResponse {
	resp := ReportResponse{
		ID:            r.ID,
		Repository:    r.FullName(),
		Branch:        r.Branch,
		WorkflowID:    r.WorkflowID,
		Workflow:      r.WorkflowName,
		ActivityKind:  r.ActivityKind,
		RunID:         r.RunID,
		Outcome:       string(r.Outcome),
		Reason:        r.Reason,
		DryRun:        r.DryRun,
		Queries:       make([]QueryResponse, 0, len(r.Queries)),
		Duplicates:    toRunResponses(r.Duplicates),
		Cancellations: make([]CancellationResponse, 0, len(r.Cancellations)),
		StartedAt:     r.StartedAt.UTC().Format(time.RFC3339Nano),
		FinishedAt:    r.FinishedAt.UTC().Format(time.RFC3339Nano),
		Text:          application.FormatReport(r),
	}

	for _, q := range r.Queries {
		qr := QueryResponse{
			Status:     string(q.Status),
			Runs:       toRunResponses(q.Runs),
			StatusCode: q.StatusCode,
		}
		if q.Err != nil {
			qr.Error = q.Err.Error()
		}
		resp.Queries = append(resp.Queries, qr)
	}

	for _, c := range r.Cancellations {
		resp.Cancellations = append(resp.Cancellations, CancellationResponse(c))
	}

	return resp
}

func toRunResponses(runs []model.CandidateRun) []RunResponse {
	out := make([]RunResponse, 0, len(runs))
	for _, run := range runs {
		out = append(out, RunResponse{ID: run.ID, CreatedAt: run.CreatedAt.UTC().Format(time.RFC3339)})
	}
	return out
}
