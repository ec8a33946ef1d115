package httphandler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ericfisherdev/runreaper/internal/domain/port/driven"
)

// maxHistoryLimit caps the limit query parameter of the episode listing.
const maxHistoryLimit = 500

// Handler is the HTTP driving adapter that serves the REST API over the
// reconciliation episode history.
type Handler struct {
	episodes     driven.EpisodeStore
	historyLimit int
	logger       *slog.Logger
}

// NewHandler creates a Handler. historyLimit is the default page size of the
// episode listing.
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

// RegisterAPIRoutes registers all REST API routes on the provided mux.
func RegisterAPIRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("GET /api/v1/episodes", h.ListEpisodes)
	mux.HandleFunc("GET /api/v1/episodes/{id}", h.GetEpisode)
}

// ApplyMiddleware wraps handler with logging and recovery middleware.
func ApplyMiddleware(handler http.Handler, logger *slog.Logger) http.Handler {
	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, handler)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// ListEpisodes returns the most recent reconciliation episodes, newest first.
func (h *Handler) ListEpisodes(w http.ResponseWriter, r *http.Request) {
	limit := h.historyLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 || parsed > maxHistoryLimit {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	summaries, err := h.episodes.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list episodes", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]EpisodeSummaryResponse, 0, len(summaries))
	for _, s := range summaries {
		resp = append(resp, toEpisodeSummaryResponse(s))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetEpisode returns the full report of a single episode.
func (h *Handler) GetEpisode(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	report, err := h.episodes.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get episode", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if report == nil {
		writeError(w, http.StatusNotFound, "episode not found")
		return
	}

	writeJSON(w, http.StatusOK, toReportResponse(*report))
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}
