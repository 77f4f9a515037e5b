// Package api exposes the search engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	apperrors "github.com/deidaraiorek/gogol/internal/errors"
	"github.com/deidaraiorek/gogol/internal/indexer"
	"github.com/deidaraiorek/gogol/internal/logger"
	"github.com/deidaraiorek/gogol/internal/search"
)

// Engine is the search boundary served by the API.
type Engine interface {
	Ready() bool
	Search(ctx context.Context, query string, topK int) (search.Response, error)
	Stats(ctx context.Context) (indexer.Stats, error)
	BuildIndex(ctx context.Context, force bool) (indexer.Stats, error)
}

type Handler struct {
	engine       Engine
	defaultLimit int
	maxResults   int
}

func NewHandler(engine Engine, defaultLimit, maxResults int) *Handler {
	return &Handler{
		engine:       engine,
		defaultLimit: defaultLimit,
		maxResults:   maxResults,
	}
}

func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "Gogol search API",
		"version": "1.0.0",
		"endpoints": []string{
			"GET /api/health",
			"GET /api/stats",
			"GET /api/search?q=<query>&limit=<n>",
			"POST /api/index/rebuild?force=<bool>",
		},
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if !h.engine.Ready() {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":      "degraded",
			"message":     "index has not been built yet",
			"index_ready": false,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"message":     "search engine ready",
		"index_ready": true,
	})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.engine.Stats(r.Context())
	if err != nil {
		h.fail(w, r, "stats failed", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	limit := h.defaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if parsed > h.maxResults {
			parsed = h.maxResults
		}
		limit = parsed
	}

	resp, err := h.engine.Search(r.Context(), query, limit)
	if err != nil {
		h.fail(w, r, "search failed", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	force := false
	if forceStr := r.URL.Query().Get("force"); forceStr != "" {
		parsed, err := strconv.ParseBool(forceStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "force must be a boolean")
			return
		}
		force = parsed
	}

	stats, err := h.engine.BuildIndex(r.Context(), force)
	if errors.Is(err, apperrors.ErrStaleScores) {
		logger.FromContext(r.Context()).Warn("index rebuilt with stale scores", "error", err)
		writeJSON(w, http.StatusOK, stats)
		return
	}
	if err != nil {
		h.fail(w, r, "rebuild failed", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := apperrors.HTTPStatusCode(err)
	log := logger.FromContext(r.Context())
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		log.Error(msg, "error", err)
		writeError(w, status, msg)
		return
	}
	log.Warn(msg, "error", err)
	writeError(w, status, errorMessage(err))
}

func errorMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
