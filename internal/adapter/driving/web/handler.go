// Package web implements the HTML driving adapter for browsing reconciliation
// episodes.
package web

import (
	"bytes"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/ericfisherdev/runreaper/internal/application"
	"github.com/ericfisherdev/runreaper/internal/domain/port/driven"
)

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Handler is the web GUI driving adapter that serves HTML episode pages.
type Handler struct {
	episodes     driven.EpisodeStore
	historyLimit int
	logger       *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(episodes driven.EpisodeStore, historyLimit int, logger *slog.Logger) *Handler {
	if historyLimit <= 0 {
		historyLimit = 50
	}
	return &Handler{
		episodes:     episodes,
		historyLimit: historyLimit,
		logger:       logger,
	}
}

type episodePage struct {
	Title      string
	ID         string
	Body       template.HTML
	Trace      string
	FinishedAt string
}

type episodeRow struct {
	ID         string
	Repository string
	Branch     string
	Workflow   string
	RunID      int64
	Outcome    string
	Cancelled  int
	Failed     int
	FinishedAt string
}

// Episode renders a single reconciliation report.
func (h *Handler) Episode(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	report, err := h.episodes.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to load episode", "id", id, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if report == nil {
		http.Error(w, "episode not found", http.StatusNotFound)
		return
	}

	page := episodePage{
		Title: "Episode " + report.ID + " · " + report.FullName(),
		ID:    report.ID,
		// RenderMarkdown output is sanitized by bluemonday.
		Body:       template.HTML(RenderMarkdown(application.ReportMarkdown(*report))),
		Trace:      application.FormatReport(*report),
		FinishedAt: report.FinishedAt.UTC().Format(time.RFC3339),
	}

	h.render(w, "episode.html", page)
}

// Episodes renders the most recent episodes, newest first.
func (h *Handler) Episodes(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.episodes.ListRecent(r.Context(), h.historyLimit)
	if err != nil {
		h.logger.Error("failed to list episodes", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	rows := make([]episodeRow, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, episodeRow{
			ID:         s.ID,
			Repository: s.RepoFullName,
			Branch:     s.Branch,
			Workflow:   s.WorkflowName,
			RunID:      s.RunID,
			Outcome:    string(s.Outcome),
			Cancelled:  s.Cancelled,
			Failed:     s.Failed,
			FinishedAt: s.FinishedAt.UTC().Format(time.RFC3339),
		})
	}

	h.render(w, "episodes.html", struct{ Episodes []episodeRow }{Episodes: rows})
}

// render executes into a buffer first so a template error never leaves a
// half-written page behind.
func (h *Handler) render(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		h.logger.Error("failed to render page", "template", name, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
