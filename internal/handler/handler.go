// Package handler exposes the HTTP API: document registration and removal,
// search, and operational endpoints for index and cache state.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mwaghorn2000/oxidex/internal/service"
	apperrors "github.com/mwaghorn2000/oxidex/pkg/errors"
	"github.com/mwaghorn2000/oxidex/pkg/logger"
	"github.com/mwaghorn2000/oxidex/pkg/tracing"
)

// Handler routes API requests to the service layer.
type Handler struct {
	svc    *service.Service
	logger *slog.Logger
}

// New creates a Handler over svc.
func New(svc *service.Service) *Handler {
	return &Handler{
		svc:    svc,
		logger: slog.Default().With("component", "http-handler"),
	}
}

// Register mounts the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/documents", h.AddDocument)
	mux.HandleFunc("GET /api/v1/documents/{id}", h.GetDocument)
	mux.HandleFunc("DELETE /api/v1/documents/{id}", h.RemoveDocument)
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/index/stats", h.IndexStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.InvalidateCache)
}

type addDocumentRequest struct {
	Path string `json:"path"`
}

// AddDocument registers the file named in the request body and returns the
// assigned document entry.
func (h *Handler) AddDocument(w http.ResponseWriter, r *http.Request) {
	var req addDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, apperrors.Newf(apperrors.ErrInvalidInput,
			http.StatusBadRequest, "malformed request body: %v", err))
		return
	}

	ctx, span := tracing.StartChild(r.Context(), "add_document")
	span.SetAttr("path", req.Path)
	entry, err := h.svc.AddDocument(ctx, req.Path)
	span.End()
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, entry)
}

// GetDocument returns the registry entry for the id in the path.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	entry, err := h.svc.GetDocument(id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, entry)
}

// RemoveDocument deletes the document with the id in the path.
func (h *Handler) RemoveDocument(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	ctx, span := tracing.StartChild(r.Context(), "remove_document")
	span.SetAttr("doc_id", id)
	err = h.svc.RemoveDocument(ctx, id)
	span.End()
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search runs a single-term query. q carries the term, limit the optional
// result cap.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.respondError(w, r, apperrors.Newf(apperrors.ErrInvalidInput,
				http.StatusBadRequest, "limit must be a positive integer, got %q", raw))
			return
		}
		limit = parsed
	}

	ctx, span := tracing.StartChild(r.Context(), "search")
	span.SetAttr("query", query)
	resp, err := h.svc.Search(ctx, query, limit)
	if err != nil {
		span.End()
		h.respondError(w, r, err)
		return
	}
	span.SetAttr("total_hits", resp.TotalHits)
	span.SetAttr("cache_hit", resp.CacheHit)
	span.End()
	h.respondJSON(w, http.StatusOK, resp)
}

type indexStatsResponse struct {
	TotalDocs    int   `json:"total_docs"`
	IndexedTerms int   `json:"indexed_terms"`
	CacheEnabled bool  `json:"cache_enabled"`
	CacheHits    int64 `json:"cache_hits"`
	CacheMisses  int64 `json:"cache_misses"`
}

// IndexStats reports registry size, term count, and cache counters.
func (h *Handler) IndexStats(w http.ResponseWriter, r *http.Request) {
	hits, misses, enabled := h.svc.CacheStats()
	h.respondJSON(w, http.StatusOK, indexStatsResponse{
		TotalDocs:    h.svc.TotalDocs(),
		IndexedTerms: h.svc.TermCount(),
		CacheEnabled: enabled,
		CacheHits:    hits,
		CacheMisses:  misses,
	})
}

// InvalidateCache drops every cached search result.
func (h *Handler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.InvalidateCache(r.Context()); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseID(raw string) (uint64, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, apperrors.Newf(apperrors.ErrInvalidInput,
			http.StatusBadRequest, "document id must be a non-negative integer, got %q", raw)
	}
	return id, nil
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatusCode(err)
	requestID := logger.RequestIDFromContext(r.Context())
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			"method", r.Method, "path", r.URL.Path,
			"status", status, "request_id", requestID, "error", err)
	} else {
		h.logger.Debug("request rejected",
			"method", r.Method, "path", r.URL.Path,
			"status", status, "request_id", requestID, "error", err)
	}
	h.respondJSON(w, status, errorResponse{Error: err.Error(), RequestID: requestID})
}
